// Package response provides helpers for writing consistent JSON output.
//
// Every command prints JSON. Success output may be any shape (a student,
// a list, a count); errors always look like:
//
//	{ "status": "error", "error": "no student with id 7" }
package response

import (
	"encoding/json"
	"io"
)

// Response is the envelope written when a command fails.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StatusError marks an error envelope.
const StatusError = "error"

// WriteJSON encodes data as indented JSON followed by a newline.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// GeneralError wraps any Go error into the standard envelope.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}
