package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidationDetail is one entry of a structured validation error.
type ValidationDetail struct {
	Type  string   `json:"type"`
	Loc   []string `json:"loc"`
	Msg   string   `json:"msg"`
	Input any      `json:"input"`
}

// UnmarshalJSON accepts loc entries that are strings or numbers.
func (d *ValidationDetail) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string            `json:"type"`
		Loc   []json.RawMessage `json:"loc"`
		Msg   string            `json:"msg"`
		Input any               `json:"input"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Type = raw.Type
	d.Msg = raw.Msg
	d.Input = raw.Input
	d.Loc = make([]string, 0, len(raw.Loc))
	for _, entry := range raw.Loc {
		var text string
		if err := json.Unmarshal(entry, &text); err == nil {
			d.Loc = append(d.Loc, text)
			continue
		}
		var number json.Number
		decoder := json.NewDecoder(bytes.NewReader(entry))
		decoder.UseNumber()
		if err := decoder.Decode(&number); err == nil {
			d.Loc = append(d.Loc, number.String())
			continue
		}
		d.Loc = append(d.Loc, strings.TrimSpace(string(entry)))
	}
	return nil
}

// Field returns the last loc segment, the field the message refers to.
func (d ValidationDetail) Field() string {
	if len(d.Loc) == 0 {
		return ""
	}
	return d.Loc[len(d.Loc)-1]
}

// APIError is a non-2xx response. Detail holds structured validation
// entries; Message holds a plain string detail when the server sent one.
type APIError struct {
	StatusCode int
	Detail     []ValidationDetail
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if len(e.Detail) > 0 {
		parts := make([]string, 0, len(e.Detail))
		for _, detail := range e.Detail {
			parts = append(parts, strings.TrimSpace(detail.Field()+" "+detail.Msg))
		}
		return fmt.Sprintf("client: status %d: %s", e.StatusCode, strings.Join(parts, "; "))
	}
	if e.Message != "" {
		return fmt.Sprintf("client: status %d: %s", e.StatusCode, e.Message)
	}
	return "client: status " + strconv.Itoa(e.StatusCode)
}

// Structured reports whether the server described the failure.
func (e *APIError) Structured() bool {
	return len(e.Detail) > 0 || e.Message != ""
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: body}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	var details []ValidationDetail
	if err := json.Unmarshal(envelope.Detail, &details); err == nil {
		apiErr.Detail = details
		return apiErr
	}
	var message string
	if err := json.Unmarshal(envelope.Detail, &message); err == nil {
		apiErr.Message = strings.TrimSpace(message)
	}
	return apiErr
}
