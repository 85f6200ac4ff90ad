package authcore

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the uniform JSON envelope of every HTTP reply.
type Response struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError is the public part of an Error.
type ResponseError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Respond writes data as a successful envelope with the given status.
func Respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// RespondError writes err as a failed envelope. Foreign errors are reported
// as internal errors without their text.
func RespondError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	message := msgInternal
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	writeJSON(w, kind.Status(), Response{
		Error: &ResponseError{Kind: kind, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
