package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/pipeline"
)

// HandleInfo describes one live handle.
type HandleInfo struct {
	Handle  pipeline.Handle      `json:"handle"`
	Stage   string               `json:"stage"`
	Kind    pipeline.PayloadKind `json:"kind"`
	Pending int                  `json:"pending_updates"`
	Trace   map[string]string    `json:"trace,omitempty"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (app *App) StagesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pipeline": app.Pipeline.Name(),
		"live":     app.Pipeline.Live(),
		"stages":   app.Pipeline.Stages(),
	})
}

func (app *App) StageHandlesHandler(w http.ResponseWriter, r *http.Request) {
	hs, err := app.Pipeline.Handles(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	writeJSON(w, http.StatusOK, hs)
}

func (app *App) ContentionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Pipeline.Contention())
}

func (app *App) HandleHandler(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}
	stage, err := app.Pipeline.StageOf(h)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := app.Pipeline.KindOf(h)
	if err != nil {
		writeError(w, err)
		return
	}
	pending, err := app.Pipeline.PendingUpdates(h)
	if err != nil {
		writeError(w, err)
		return
	}
	trace, err := app.Pipeline.TraceContext(h)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HandleInfo{Handle: h, Stage: stage, Kind: kind, Pending: pending, Trace: trace})
}

func (app *App) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}
	kind, err := app.Pipeline.KindOf(h)
	if err != nil {
		writeError(w, err)
		return
	}
	if kind == pipeline.FramePayload {
		f, err := app.Pipeline.Frame(h)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f.Snapshot())
		return
	}
	b, err := app.Pipeline.Batch(h)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot())
}

func (app *App) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if app.Store == nil {
		http.Error(w, "transition log disabled", http.StatusNotImplemented)
		return
	}
	h, ok := parseHandle(w, r)
	if !ok {
		return
	}
	trs, err := app.Store.ReadHandleHistory(r.Context(), app.RunID, h)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trs)
}

func (app *App) RecorderHandler(w http.ResponseWriter, r *http.Request) {
	if app.Recorder == nil {
		http.Error(w, "transition log disabled", http.StatusNotImplemented)
		return
	}
	writeJSON(w, http.StatusOK, app.Recorder.Stats())
}

func parseHandle(w http.ResponseWriter, r *http.Request) (pipeline.Handle, bool) {
	raw := chi.URLParam(r, "handle")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "bad handle %q", raw))
		return 0, false
	}
	return pipeline.Handle(n), true
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeUnknownHandle, errs.CodeUnknownStage, errs.CodeNotFound:
		return http.StatusNotFound
	case "":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	body := errorBody{Code: string(code), Message: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		body.Details = e.Details
	}
	writeJSON(w, statusFor(code), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
