package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ne := New(ErrConfigInvalid, CategoryConfig, "bad value")

	assert.Equal(t, ErrConfigInvalid, ne.Code)
	assert.Equal(t, CategoryConfig, ne.Category)
	assert.Equal(t, "bad value", ne.Message)
	assert.NotNil(t, ne.Context)
	assert.Nil(t, ne.Cause)
	assert.False(t, ne.HasSuggestions())
}

func TestNexusError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *NexusError
		want string
	}{
		{
			name: "without cause",
			err:  New(ErrBrainUnhealthy, CategoryBrain, "health check failed"),
			want: "BRAIN_UNHEALTHY: health check failed",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("connection refused"), ErrNetworkUnreachable, CategoryNetwork, "request failed"),
			want: "NETWORK_UNREACHABLE: request failed: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrapAndIs(t *testing.T) {
	root := fmt.Errorf("dial tcp: refused")
	ne := Wrap(root, ErrNetworkUnreachable, CategoryNetwork, "request failed")
	wrapped := fmt.Errorf("scan: %w", ne)

	assert.True(t, errors.Is(wrapped, root))
	assert.True(t, errors.Is(wrapped, New(ErrNetworkUnreachable, CategoryNetwork, "")))
	assert.False(t, errors.Is(wrapped, New(ErrNetworkTimeout, CategoryNetwork, "")))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, ne, got)
	assert.True(t, IsCategory(wrapped, CategoryNetwork))
	assert.True(t, IsCode(wrapped, ErrNetworkUnreachable))
	assert.False(t, IsCode(root, ErrNetworkUnreachable))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unreachable", New(ErrNetworkUnreachable, CategoryNetwork, ""), true},
		{"timeout", New(ErrNetworkTimeout, CategoryNetwork, ""), true},
		{"server error", HTTPStatus(503, "GET", "/stats", ""), true},
		{"rejected", HTTPStatus(422, "POST", "/memory/action", "bad"), false},
		{"decode", New(ErrBrainDecodeFailed, CategoryBrain, ""), false},
		{"plain error", fmt.Errorf("boom"), false},
		{"nil", nil, false},
		{"wrapped", fmt.Errorf("outer: %w", New(ErrBrainServerError, CategoryBrain, "")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	ne := HTTPStatus(404, "GET", "/neural-mesh/stats", "not found")
	assert.Equal(t, ErrBrainRequestRejected, ne.Code)
	assert.Equal(t, CategoryBrain, ne.Category)
	assert.Equal(t, "404", ne.Context["status"])
	assert.Equal(t, "not found", ne.Context["body"])

	ne = HTTPStatus(500, "POST", "/memory/action", "")
	assert.Equal(t, ErrBrainServerError, ne.Code)
	_, hasBody := ne.Context["body"]
	assert.False(t, hasBody)
}

func TestConstructorsAttachSuggestions(t *testing.T) {
	ne := NetworkWrap(fmt.Errorf("refused"), ErrNetworkUnreachable, "http://localhost:8001/health")
	assert.Equal(t, CategoryNetwork, ne.Category)
	assert.Equal(t, "http://localhost:8001/health", ne.Context["url"])
	assert.NotEmpty(t, ne.Suggestions)

	ne = Optimizationf(ErrUnknownOptimization, "no plan for %q", "teleport")
	assert.Equal(t, `no plan for "teleport"`, ne.Message)
	assert.NotEmpty(t, ne.Suggestions)

	assert.Nil(t, SuggestionsFor("NO_SUCH_CODE"))
	assert.Nil(t, AttachSuggestions(nil))
}

func TestSuggestionsForReturnsCopy(t *testing.T) {
	s := SuggestionsFor(ErrConfigReadFailed)
	require.NotEmpty(t, s)
	s[0] = "mutated"
	assert.NotEqual(t, "mutated", SuggestionsFor(ErrConfigReadFailed)[0])
}

func TestContextString(t *testing.T) {
	ne := New(ErrConfigInvalid, CategoryConfig, "x").
		WithContext("field", "engine.heartbeat_interval").
		WithContext("value", "0s")
	assert.Equal(t, `field="engine.heartbeat_interval", value="0s"`, ne.ContextString())
	assert.Equal(t, "", New("A", CategoryInternal, "x").ContextString())
}

func TestFormatter(t *testing.T) {
	f := &Formatter{Indent: "  "}

	assert.Equal(t, "", f.Format(nil))
	assert.Equal(t, "Error: boom", f.Format(fmt.Errorf("boom")))

	ne := New(ErrOptimizationBusy, CategoryOptimization, "too many optimizations running").
		WithContext("running", "2").
		WithCause(fmt.Errorf("semaphore full")).
		WithSuggestions("wait")
	want := "ERROR [OPTIMIZATION_BUSY]: too many optimizations running\n" +
		"  running: 2\n" +
		"  cause: semaphore full\n" +
		"\n" +
		"  → wait"
	assert.Equal(t, want, f.Format(ne))
	assert.Equal(t, want, Sprint(fmt.Errorf("wrapped: %w", ne)))

	colored := &Formatter{UseColor: true, Indent: "  "}
	assert.Contains(t, colored.Format(ne), colorRed)
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Memory API Error", CategoryLabel(CategoryBrain))
	assert.Equal(t, "Journal Error", CategoryLabel(CategoryJournal))
	assert.Equal(t, "Error", CategoryLabel(Category("unknown")))
}
