package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

type Code codes.Code

const (
	CodeInvalidArgument  = Code(codes.InvalidArgument)
	CodeNotFound         = Code(codes.NotFound)
	CodeAlreadyExists    = Code(codes.AlreadyExists)
	CodePermissionDenied = Code(codes.PermissionDenied)
	CodeUnauthenticated  = Code(codes.Unauthenticated)
	CodeUnavailable      = Code(codes.Unavailable)
	CodeInternal         = Code(codes.Internal)
)

var code2http = map[Code]int{
	CodeInvalidArgument:  http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeAlreadyExists:    http.StatusConflict,
	CodePermissionDenied: http.StatusForbidden,
	CodeUnauthenticated:  http.StatusUnauthorized,
	CodeUnavailable:      http.StatusBadGateway,
	CodeInternal:         http.StatusInternalServerError,
}

var http2code = map[int]Code{
	http.StatusBadRequest:   CodeInvalidArgument,
	http.StatusUnauthorized: CodeUnauthenticated,
	http.StatusForbidden:    CodePermissionDenied,
	http.StatusNotFound:     CodeNotFound,
	http.StatusConflict:     CodeAlreadyExists,
}

// Error is the error type shared by every layer of the application. Message is safe to show to a user.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %s, message: %s", codes.Code(e.Code), e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

// FromHTTPStatus maps a non-2xx status returned by an upstream API to a Code.
func FromHTTPStatus(status int) Code {
	if c, ok := http2code[status]; ok {
		return c
	}

	return CodeInternal
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

func Invalid(format string, args ...any) *Error {
	return New(CodeInvalidArgument, WithMessagef(format, args...))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
