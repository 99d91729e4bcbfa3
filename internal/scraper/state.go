package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// State holds everything a run accumulates: extracted records and the
// set of identifiers already attempted. It is owned by a single
// goroutine for the run's duration.
type State struct {
	Records   []BusinessRecord
	Processed map[string]bool
}

// NewState creates an empty run state
func NewState() *State {
	return &State{
		Processed: make(map[string]bool),
	}
}

// Coverage summarizes per-field extraction counts for the final report
type Coverage struct {
	Total       int
	WithPhone   int
	WithEmail   int
	WithAddress int
	WithWebsite int
}

// Coverage computes per-field coverage over the collected records
func (s *State) Coverage() Coverage {
	c := Coverage{Total: len(s.Records)}
	for _, r := range s.Records {
		if r.Phone != "" {
			c.WithPhone++
		}
		if r.Email != "" {
			c.WithEmail++
		}
		if r.Address != "" {
			c.WithAddress++
		}
		if r.Website != "" {
			c.WithWebsite++
		}
	}
	return c
}

// LoadCheckpoint reconstructs a run state from a previously persisted
// checkpoint file. The processed set is rebuilt from the records'
// source URLs so resumed runs skip pages already attempted.
func LoadCheckpoint(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}

	var records []BusinessRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}

	state := NewState()
	state.Records = records
	for _, r := range records {
		if r.SourceURL != "" {
			state.Processed[r.SourceURL] = true
		}
	}
	return state, nil
}

// DeduplicateByName drops records whose trimmed name already appeared;
// the earlier record wins. Two distinct businesses sharing a display
// name will collide, which is accepted.
func DeduplicateByName(records []BusinessRecord) []BusinessRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]BusinessRecord, 0, len(records))
	for _, r := range records {
		key := strings.TrimSpace(r.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
