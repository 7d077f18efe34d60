package router

import (
	"encoding/json"
	"errors"

	"github.com/teemow/agendabot/internal/booking"
)

// KindInternal marks failures that are not engine errors, e.g. panics.
const KindInternal = "internal"

// Envelope is the uniform result of an operation.
type Envelope map[string]any

// Success reports whether the operation succeeded.
func (e Envelope) Success() bool {
	ok, _ := e["success"].(bool)
	return ok
}

// ErrorMessage returns the error string of a failed envelope.
func (e Envelope) ErrorMessage() string {
	msg, _ := e["error"].(string)
	return msg
}

// ErrorKind returns the error kind of a failed envelope.
func (e Envelope) ErrorKind() string {
	kind, _ := e["error_kind"].(string)
	return kind
}

// JSON encodes the envelope. Encoding failures yield an error envelope.
func (e Envelope) JSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Envelope{"success": false, "error": "failed to encode result: " + err.Error(), "error_kind": KindInternal})
	}
	return string(b)
}

// Failure builds the envelope for err.
func Failure(err error) Envelope {
	env := Envelope{"success": false, "error": err.Error()}
	var bookingErr *booking.Error
	if !errors.As(err, &bookingErr) {
		env["error_kind"] = KindInternal
		return env
	}
	env["error_kind"] = string(bookingErr.Kind)
	if bookingErr.Code != "" {
		env["error_code"] = bookingErr.Code
	}
	if bookingErr.AuthRequired() {
		env["authRequired"] = true
	}
	return env
}
