// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"fmt"
	"maps"
	"net/http"
)

// New creates a WarrenError for a known code with free-form details.
func New(code ErrorCode, details string) *WarrenError {
	def, ok := errorDefinitions[code]
	if !ok {
		def = struct {
			message    string
			domain     Domain
			httpStatus int
		}{"Unknown error", DomainMisc, http.StatusInternalServerError}
	}
	return &WarrenError{
		Code:       code,
		Domain:     def.domain,
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
	}
}

// Wrap attaches a known code to an underlying error. If the error already is
// a WarrenError with the same code it is returned unchanged so metadata is
// not lost on re-wrapping.
func Wrap(err error, code ErrorCode) *WarrenError {
	if err == nil {
		return New(code, "")
	}
	if we, ok := err.(*WarrenError); ok && we.Code == code {
		return we
	}
	we := New(code, err.Error())
	we.err = err
	return we
}

func (e *WarrenError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s-%d] %s: %s", e.Domain, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *WarrenError) Unwrap() error {
	return e.err
}

// WithMetadata returns the error with an added metadata key/value.
func (e *WarrenError) WithMetadata(key, value string) *WarrenError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Clone returns a deep copy; useful when a template error fans out across
// multiple paths in a recursive apply.
func (e *WarrenError) Clone() *WarrenError {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		maps.Copy(c.Metadata, e.Metadata)
	}
	return &c
}

// GetCode extracts the ErrorCode from an error, unwrapping as needed.
func GetCode(err error) (ErrorCode, bool) {
	for err != nil {
		if we, ok := err.(*WarrenError); ok {
			return we.Code, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return 0, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := GetCode(err)
	return ok && c == code
}

// IsWarrenError reports whether err is (or wraps) a WarrenError.
func IsWarrenError(err error) bool {
	_, ok := GetCode(err)
	return ok
}

// NewCommandError builds a CommandExecution error annotated with the command
// line, exit code and captured stderr.
func NewCommandError(cmd string, exitCode int, stderr string) *WarrenError {
	return New(CommandExecution, stderr).
		WithMetadata("command", cmd).
		WithMetadata("exit_code", fmt.Sprintf("%d", exitCode))
}
