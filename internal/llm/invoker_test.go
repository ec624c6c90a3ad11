package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type response struct {
	text  string
	err   error
	block bool
}

type fakeClient struct {
	mu        sync.Mutex
	responses []response
	calls     int
	prompts   []string
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	r := f.responses[len(f.responses)-1]
	if idx < len(f.responses) {
		r = f.responses[idx]
	}
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func (f *fakeClient) GetModel(ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error             { return nil }

func newTestInvoker(c Client) *Invoker {
	return NewInvoker(c, WithTimeout(50*time.Millisecond), WithRetryDelay(time.Millisecond))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestInvoker_Success(t *testing.T) {
	c := &fakeClient{responses: []response{{text: "```json\n{\"phases\": []}\n```"}}}

	out, err := newTestInvoker(c).Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"phases": []}`, out)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, []string{"prompt"}, c.prompts)
}

func TestInvoker_RetriesTransientOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "backend unavailable")},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota")},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}},
		{"http 503", &googleapi.Error{Code: http.StatusServiceUnavailable}},
		{"network", timeoutErr{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClient{responses: []response{{err: tt.err}, {text: `{"ok": true}`}}}

			out, err := newTestInvoker(c).Generate(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, `{"ok": true}`, out)
			assert.Equal(t, 2, c.calls)
		})
	}
}

func TestInvoker_GivesUpAfterOneRetry(t *testing.T) {
	c := &fakeClient{responses: []response{{err: status.Error(codes.Unavailable, "down")}}}

	_, err := newTestInvoker(c).Generate(context.Background(), "p")
	var failure *GenerationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonProvider, failure.Reason)
	assert.Equal(t, 2, failure.Attempts)
	assert.Equal(t, 2, c.calls)
}

func TestInvoker_TimeoutIsRetried(t *testing.T) {
	c := &fakeClient{responses: []response{{block: true}}}

	_, err := newTestInvoker(c).Generate(context.Background(), "p")
	var failure *GenerationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonTimeout, failure.Reason)
	assert.Equal(t, 2, failure.Attempts)
}

func TestInvoker_NonTransientNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		resp   response
		reason FailureReason
	}{
		{"invalid argument", response{err: status.Error(codes.InvalidArgument, "bad prompt")}, ReasonProvider},
		{"http 400", response{err: &googleapi.Error{Code: http.StatusBadRequest}}, ReasonProvider},
		{"empty text", response{text: "   "}, ReasonEmpty},
		{"no candidates", response{err: ErrEmptyResponse}, ReasonEmpty},
		{"prose only", response{text: "Sorry, I can't produce that plan."}, ReasonUnparseable},
		{"truncated json", response{text: `{"phases": [`}, ReasonUnparseable},
		{"unknown error", response{err: errors.New("boom")}, ReasonProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClient{responses: []response{tt.resp, {text: `{"ok": true}`}}}

			_, err := newTestInvoker(c).Generate(context.Background(), "p")
			var failure *GenerationFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.reason, failure.Reason)
			assert.False(t, failure.Transient)
			assert.Equal(t, 1, failure.Attempts)
			assert.Equal(t, 1, c.calls)
		})
	}
}

func TestInvoker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &fakeClient{responses: []response{{block: true}}}

	_, err := newTestInvoker(c).Generate(ctx, "p")
	var failure *GenerationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonCanceled, failure.Reason)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reason    FailureReason
		transient bool
	}{
		{"internal", status.Error(codes.Internal, "x"), ReasonProvider, true},
		{"aborted", status.Error(codes.Aborted, "x"), ReasonProvider, true},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ReasonTimeout, true},
		{"permission", status.Error(codes.PermissionDenied, "x"), ReasonProvider, false},
		{"http 500", &googleapi.Error{Code: 500}, ReasonProvider, true},
		{"http 404", &googleapi.Error{Code: 404}, ReasonProvider, false},
		{"net", timeoutErr{}, ReasonTransport, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, transient := classify(tt.err)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.transient, transient)
		})
	}
}
