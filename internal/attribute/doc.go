// Package attribute implements the namespaced key/value facts attached to
// objects and frames.
//
// An attribute maps (namespace, name) to an ordered sequence of typed values.
// Values are not deduplicated. Each value may carry a confidence in [0, 1];
// whether a confidence was recorded is tracked separately from its magnitude.
package attribute
