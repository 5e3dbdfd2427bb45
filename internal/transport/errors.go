package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrAborted is returned once a reader has been deliberately cancelled.
var ErrAborted = errors.New("transport aborted")

// ConnectError reports a failure before any response was received.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connection failed: %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx response from the run endpoint.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Detail)
}

// StreamError reports a read failure after the stream was established.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}

// decodeStatusDetail extracts a readable message from an error body.
func decodeStatusDetail(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		switch detail := parsed.Detail.(type) {
		case string:
			return detail
		case nil:
		default:
			if data, err := json.Marshal(detail); err == nil {
				return string(data)
			}
		}
	}
	return strings.TrimSpace(string(body))
}
