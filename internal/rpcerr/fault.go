// Package rpcerr defines the unified backend fault carried across the
// wire-adapter boundary, and the traceback parsing every adapter shares.
package rpcerr

import (
	"fmt"
	"regexp"
	"strings"
)

// Fault is the unified backend error produced by every wire adapter and
// consumed by the Error Classifier.
type Fault struct {
	Message    string
	ErrorClass string // optional
	Traceback  string // optional, full traceback text
	Model      string // optional
	Method     string // optional
}

func (f *Fault) Error() string {
	if f.ErrorClass != "" {
		return fmt.Sprintf("%s: %s", f.ErrorClass, f.Message)
	}
	return f.Message
}

// AuthenticationError is returned by Authenticate when the backend rejects
// credentials outright (including a uid of 0/false, which every adapter
// treats as failure rather than "no error").
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// tracebackLastLineRe matches the conventional "ClassName: message" form of
// the final line of a Python-style traceback.
var tracebackLastLineRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*:\s*(.+)$`)

// ParseTraceback extracts a structured Fault from a raw traceback string by
// inspecting its last non-empty line. If that line does not match the
// "ClassName: message" convention, the line itself is kept as the message
// and ErrorClass is left empty; a string with no non-empty line is kept
// whole as the message.
func ParseTraceback(traceback string) *Fault {
	f := &Fault{Traceback: traceback}

	lines := strings.Split(strings.TrimRight(traceback, "\n"), "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			last = strings.TrimSpace(lines[i])
			break
		}
	}
	if last == "" {
		f.Message = traceback
		return f
	}

	if m := tracebackLastLineRe.FindStringSubmatch(last); m != nil {
		f.ErrorClass = m[1]
		f.Message = m[2]
		return f
	}

	f.Message = last
	return f
}

// New constructs a Fault directly from adapter-known fields, without a
// traceback to parse (e.g. an HTTP-status-derived fault from Modern-REST).
func New(message, errorClass string) *Fault {
	return &Fault{Message: message, ErrorClass: errorClass}
}

// WithCall annotates a Fault with the model/method of the call that
// produced it, for use by the Error Classifier's placeholder injection.
func (f *Fault) WithCall(model, method string) *Fault {
	f.Model = model
	f.Method = method
	return f
}
