package errors

import "fmt"

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorTransport
	ErrorServe
	ErrorInvalidArgument
)

// TransportError represents connection and listener errors
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorSocketCreateFailure
	TransportErrorSocketBindFailure
	TransportErrorSocketListenFailure
	TransportErrorAcceptFailure
	TransportErrorSocketConnectFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorConnectionClosed
	TransportErrorDnsFailure
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorSocketCreateFailure:
		return "socket creation failed"
	case TransportErrorSocketBindFailure:
		return "socket bind failed"
	case TransportErrorSocketListenFailure:
		return "socket listen failed"
	case TransportErrorAcceptFailure:
		return "accept failed"
	case TransportErrorSocketConnectFailure:
		return "socket connection failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorDnsFailure:
		return "DNS lookup failed"
	case TransportErrorIoUringInit:
		return "io_uring initialization failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submission failed"
	default:
		return fmt.Sprintf("unknown transport error: %d", int(e))
	}
}

// ServeError represents failures while producing a response body
type ServeError int

const (
	ServeErrorNone ServeError = iota
	ServeErrorFileOpenFailure
	ServeErrorFileMapFailure
	ServeErrorExecFailure
	ServeErrorChildFailure
	ServeErrorInvalidResponse
)

func (e ServeError) String() string {
	switch e {
	case ServeErrorFileOpenFailure:
		return "file open failed"
	case ServeErrorFileMapFailure:
		return "file map failed"
	case ServeErrorExecFailure:
		return "CGI program launch failed"
	case ServeErrorChildFailure:
		return "CGI program failed"
	case ServeErrorInvalidResponse:
		return "invalid response"
	default:
		return fmt.Sprintf("unknown serve error: %d", int(e))
	}
}

// ServerError is the main error type returned by the transport, content and server packages
type ServerError struct {
	Type          ErrorType
	TransportErr  TransportError
	ServeErr      ServeError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e == nil {
		return "no error"
	}

	var typeStr string
	switch e.Type {
	case ErrorTransport:
		typeStr = fmt.Sprintf("Transport error (%s)", e.TransportErr)
	case ErrorServe:
		typeStr = fmt.Sprintf("Serve error (%s)", e.ServeErr)
	case ErrorInvalidArgument:
		typeStr = "Invalid argument"
	default:
		typeStr = "Unknown error"
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *ServerError) Unwrap() error {
	return e.UnderlyingErr
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewServeError creates a new serve error
func NewServeError(err ServeError, message string, underlying error) *ServerError {
	return &ServerError{
		Type:          ErrorServe,
		ServeErr:      err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *ServerError {
	return &ServerError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// IsTransport reports whether err is a ServerError of the given transport kind
func IsTransport(err error, kind TransportError) bool {
	var se *ServerError
	if !As(err, &se) {
		return false
	}
	return se.Type == ErrorTransport && se.TransportErr == kind
}

// IsServe reports whether err is a ServerError of the given serve kind
func IsServe(err error, kind ServeError) bool {
	var se *ServerError
	if !As(err, &se) {
		return false
	}
	return se.Type == ErrorServe && se.ServeErr == kind
}
