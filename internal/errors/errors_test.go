package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usfbank/surveyweb/internal/errors"
)

func TestConvert(t *testing.T) {
	cause := stderrors.New("boom")

	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error becomes internal": {
			err:      cause,
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped typed error keeps its code": {
			err:      fmt.Errorf("list surveys: %w", errors.New(errors.CodeUnauthenticated)),
			wantCode: errors.CodeUnauthenticated,
			wantHTTP: http.StatusUnauthorized,
		},
		"unavailable maps to bad gateway": {
			err:      errors.New(errors.CodeUnavailable, errors.WithCause(cause)),
			wantCode: errors.CodeUnavailable,
			wantHTTP: http.StatusBadGateway,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	assert.Equal(t, errors.CodeInvalidArgument, errors.FromHTTPStatus(http.StatusBadRequest))
	assert.Equal(t, errors.CodeUnauthenticated, errors.FromHTTPStatus(http.StatusUnauthorized))
	assert.Equal(t, errors.CodePermissionDenied, errors.FromHTTPStatus(http.StatusForbidden))
	assert.Equal(t, errors.CodeNotFound, errors.FromHTTPStatus(http.StatusNotFound))
	assert.Equal(t, errors.CodeAlreadyExists, errors.FromHTTPStatus(http.StatusConflict))
	assert.Equal(t, errors.CodeInternal, errors.FromHTTPStatus(http.StatusTeapot))
}

func TestError_Message(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	e := errors.New(errors.CodeUnavailable, errors.WithMessagef("survey %s unreachable", "ASSOC180"), errors.WithCause(cause))

	require.ErrorIs(t, e, cause)
	assert.Equal(t, "survey ASSOC180 unreachable", e.Message)
	assert.True(t, errors.Is(e, errors.CodeUnavailable))
	assert.False(t, errors.Is(cause, errors.CodeUnavailable))
}
