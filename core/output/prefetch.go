package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opensdd/osdd-api/clients/go/osdd"
	"github.com/opensdd/sprintwatch/core/report"
	"google.golang.org/protobuf/encoding/protojson"
)

const (
	SprintDataID   = "sprint"
	engineerPrefix = "engineer/"
)

// EngineerDataID is the prefetch entry id of one engineer.
func EngineerDataID(engineer string) string { return engineerPrefix + engineer }

type fetchedEntry struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// PrefetchResult converts r into the OSDD prefetch payload. Entry data is the
// newline-joined issue URLs, or "error: <cause>" for a failed engineer.
func PrefetchResult(r *report.SprintReport) (*osdd.PrefetchResult, error) {
	entries := make([]fetchedEntry, 0, len(r.Engineers)+1)
	entries = append(entries, fetchedEntry{ID: SprintDataID, Data: r.Sprint.Name})
	for _, e := range r.Engineers {
		payload := strings.Join(e.URLs(), "\n")
		if e.Failed() {
			payload = "error: " + e.Err.Error()
		}
		entries = append(entries, fetchedEntry{ID: EngineerDataID(e.Engineer), Data: payload})
	}

	raw, err := json.Marshal(map[string][]fetchedEntry{"data": entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prefetch entries: %w", err)
	}
	res := &osdd.PrefetchResult{}
	if err := protojson.Unmarshal(raw, res); err != nil {
		return nil, fmt.Errorf("failed to build prefetch result: %w", err)
	}
	return res, nil
}

// Prefetch writes the report as a protojson PrefetchResult, so the tool can
// back a recipe prefetch command.
func Prefetch(w io.Writer, r *report.SprintReport) error {
	res, err := PrefetchResult(r)
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal prefetch result: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write prefetch result: %w", err)
	}
	return nil
}
