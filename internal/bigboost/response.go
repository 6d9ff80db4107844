package bigboost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
)

// Response is a successful provider answer. Body is exactly what the
// provider sent; Envelope holds the fields the gateway needs to look at.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Envelope   Envelope
	Statuses   []domain.StatusEntry
}

// Envelope is the top level of a BigBoost answer. The provider documents a
// lowercase "status" list, while live responses carry "Status" keyed by
// dataset; both are accepted.
type Envelope struct {
	Result              json.RawMessage `json:"Result,omitempty"`
	ResultLower         json.RawMessage `json:"result,omitempty"`
	StatusLower         json.RawMessage `json:"status,omitempty"`
	Status              json.RawMessage `json:"Status,omitempty"`
	QueryID             string          `json:"QueryId,omitempty"`
	ElapsedMilliseconds json.RawMessage `json:"ElapsedMilliseconds,omitempty"`
	QueryDate           string          `json:"QueryDate,omitempty"`
	Evidences           json.RawMessage `json:"Evidences,omitempty"`
}

// ResultData returns Result, or result when only the lowercase form is set.
func (e Envelope) ResultData() json.RawMessage {
	if len(e.Result) > 0 {
		return e.Result
	}
	return e.ResultLower
}

// StatusData returns the raw Status value, falling back to status.
func (e Envelope) StatusData() json.RawMessage {
	if len(e.Status) > 0 {
		return e.Status
	}
	return e.StatusLower
}

// Statuses flattens both status shapes into one ordered list: the status
// list first, in order, then Status by dataset name.
func (e Envelope) Statuses() ([]domain.StatusEntry, error) {
	lower, err := parseStatuses(e.StatusLower)
	if err != nil {
		return nil, fmt.Errorf("status list: %w", err)
	}
	upper, err := parseStatuses(e.Status)
	if err != nil {
		return nil, fmt.Errorf("status by dataset: %w", err)
	}
	return append(lower, upper...), nil
}

func parseStatuses(raw json.RawMessage) ([]domain.StatusEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var entries []domain.StatusEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil

	case '{':
		var byDataset map[string][]domain.StatusEntry
		if err := json.Unmarshal(trimmed, &byDataset); err != nil {
			return nil, err
		}
		datasets := make([]string, 0, len(byDataset))
		for ds := range byDataset {
			datasets = append(datasets, ds)
		}
		sort.Strings(datasets)

		var entries []domain.StatusEntry
		for _, ds := range datasets {
			for _, s := range byDataset[ds] {
				if s.Dataset == "" {
					s.Dataset = ds
				}
				entries = append(entries, s)
			}
		}
		return entries, nil

	default:
		return nil, fmt.Errorf("unexpected status shape %q", trimmed[:1])
	}
}
