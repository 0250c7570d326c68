package pipeline

// Version is the engine version foreign callers check against.
const Version = "0.1.0"
