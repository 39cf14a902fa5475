package camera

import "fmt"

// ErrorCode classifies camera errors.
type ErrorCode string

// Error codes for camera operations.
const (
	CodeNoCamera       ErrorCode = "NO_CAMERA"
	CodeNodeNotFound   ErrorCode = "NODE_NOT_FOUND"
	CodeInvalidEntry   ErrorCode = "INVALID_ENTRY"
	CodeOutOfRange     ErrorCode = "OUT_OF_RANGE"
	CodeNotWritable    ErrorCode = "NOT_WRITABLE"
	CodeAcquisition    ErrorCode = "ACQUISITION"
	CodeNotInitialized ErrorCode = "NOT_INITIALIZED"
	CodeUnknownDriver  ErrorCode = "UNKNOWN_DRIVER"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrNoCamera       = &Error{Code: CodeNoCamera, Message: "no camera connected"}
	ErrNodeNotFound   = &Error{Code: CodeNodeNotFound, Message: "node not found"}
	ErrInvalidEntry   = &Error{Code: CodeInvalidEntry, Message: "invalid enumeration entry"}
	ErrOutOfRange     = &Error{Code: CodeOutOfRange, Message: "value out of range"}
	ErrNotWritable    = &Error{Code: CodeNotWritable, Message: "node not writable"}
	ErrAcquisition    = &Error{Code: CodeAcquisition, Message: "image acquisition failed"}
	ErrNotInitialized = &Error{Code: CodeNotInitialized, Message: "camera not initialized"}
	ErrUnknownDriver  = &Error{Code: CodeUnknownDriver, Message: "unknown camera driver"}
)

// Error is a camera or node map failure.
type Error struct {
	Code    ErrorCode
	Node    string // node name, empty when not node related
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Node != "" {
		msg += " " + e.Node
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a camera error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates an error with the given code.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewNodeError creates an error about a specific node.
func NewNodeError(code ErrorCode, node, message string) *Error {
	return &Error{Code: code, Node: node, Message: message}
}
