package tcloud

import (
	"encoding/json"
	"fmt"
)

// Result is a successful API response.
type Result struct {
	// RequestID identifies the call on the provider side.
	RequestID string
	// Body is the raw Response object for the caller to decode.
	Body json.RawMessage
}

// Decode unmarshals the Response object into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// parseResponse maps a gateway reply onto a Result or a typed *Error. Every
// reply is wrapped in a Response envelope, an Error object inside it marks
// failure regardless of the HTTP status.
func parseResponse(statusCode int, body []byte) (*Result, error) {
	var env struct {
		Response json.RawMessage `json:"Response"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Response == nil {
		return nil, fmt.Errorf("tcloud: malformed response envelope (status %d): %q", statusCode, truncate(body, 256))
	}

	var probe struct {
		Error *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
		RequestID string `json:"RequestId"`
	}
	if err := json.Unmarshal(env.Response, &probe); err != nil {
		return nil, fmt.Errorf("tcloud: malformed response object (status %d): %w", statusCode, err)
	}
	if probe.Error != nil {
		return nil, &Error{
			Code:       probe.Error.Code,
			Message:    probe.Error.Message,
			RequestID:  probe.RequestID,
			StatusCode: statusCode,
		}
	}
	return &Result{RequestID: probe.RequestID, Body: env.Response}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
