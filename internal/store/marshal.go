package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/framepipe/internal/pipeline"
)

// marshalJSON encodes v with HTML escaping disabled and no trailing newline,
// so stored text is stable and readable with sqlite3's json functions.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func marshalHandles(hs []pipeline.Handle) (string, error) {
	if len(hs) == 0 {
		return "[]", nil
	}
	data, err := marshalJSON(hs)
	if err != nil {
		return "", fmt.Errorf("marshal handles: %w", err)
	}
	return data, nil
}

func unmarshalHandles(data string) ([]pipeline.Handle, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var hs []pipeline.Handle
	if err := json.Unmarshal([]byte(data), &hs); err != nil {
		return nil, fmt.Errorf("unmarshal handles: %w", err)
	}
	return hs, nil
}

type stageRow struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func marshalStages(stages []pipeline.StageConfig) (string, error) {
	rows := make([]stageRow, len(stages))
	for i, s := range stages {
		rows[i] = stageRow{Name: s.Name, Kind: s.Kind.String()}
	}
	data, err := marshalJSON(rows)
	if err != nil {
		return "", fmt.Errorf("marshal stages: %w", err)
	}
	return data, nil
}

func unmarshalStages(data string) ([]pipeline.StageConfig, error) {
	var rows []stageRow
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("unmarshal stages: %w", err)
	}
	out := make([]pipeline.StageConfig, len(rows))
	for i, r := range rows {
		k, err := pipeline.ParsePayloadKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("unmarshal stages: %w", err)
		}
		out[i] = pipeline.StageConfig{Name: r.Name, Kind: k}
	}
	return out, nil
}
