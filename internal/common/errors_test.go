package common

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrorKindUnknown},
		{"network", NewNetworkError("http://example.com", "connection refused", nil), ErrorKindNetwork},
		{"wrapped network", WrapError(NewNetworkError("http://example.com", "reset", nil), "fetch failed"), ErrorKindNetwork},
		{"timeout sentinel", ErrTimeout, ErrorKindTimeout},
		{"context deadline", context.DeadlineExceeded, ErrorKindTimeout},
		{"parsing", NewParsingError("slot table", "no rows found", nil), ErrorKindParsing},
		{"configuration", NewConfigurationError("monitor", "check_interval", "must be positive"), ErrorKindConfiguration},
		{"persistence", NewPersistenceError("read", "/tmp/snapshot.json", errors.New("corrupt")), ErrorKindPersistence},
		{"dispatch", NewDispatchError("desktop", errors.New("no display")), ErrorKindDispatch},
		{"plain", errors.New("something odd"), ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewConfigurationError("filters", "months", "out of range")))
	assert.False(t, IsFatal(NewNetworkError("http://example.com", "down", nil)))
	assert.False(t, IsFatal(NewPersistenceError("write", "ledger.json", errors.New("disk full"))))
	assert.False(t, IsFatal(nil))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "context"))

	base := errors.New("boom")
	wrapped := WrapError(base, "while checking")
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "while checking")
}
