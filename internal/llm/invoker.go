package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/training-planner/internal/observability"
)

// Invoker defaults
const (
	DefaultTimeout    = 90 * time.Second
	DefaultRetryDelay = 2 * time.Second
	maxRetries        = 1
)

// Invoker submits an assembled prompt to the backend and returns its JSON text. Each
// attempt is bounded by a timeout and a transient failure is retried once.
type Invoker struct {
	client     Client
	tier       ModelTier
	timeout    time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// InvokerOption configures an Invoker
type InvokerOption func(*Invoker)

// WithTier selects the model tier
func WithTier(tier ModelTier) InvokerOption {
	return func(inv *Invoker) { inv.tier = tier }
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		if d > 0 {
			inv.timeout = d
		}
	}
}

// WithRetryDelay sets the pause before the retry
func WithRetryDelay(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		if d >= 0 {
			inv.retryDelay = d
		}
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) InvokerOption {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// NewInvoker creates an Invoker over client
func NewInvoker(client Client, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		client:     client,
		tier:       TierStandard,
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Generate returns the cleaned JSON text produced for prompt. All failures are
// *GenerationFailure.
func (inv *Invoker) Generate(ctx context.Context, prompt string) (string, error) {
	var (
		attempts int
		output   string
	)

	op := func() error {
		attempts++
		text, failure := inv.attempt(ctx, prompt)
		if failure != nil {
			if failure.Transient {
				return failure
			}
			return backoff.Permanent(failure)
		}
		output = text
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(inv.retryDelay), maxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		inv.logger.Warn("generation attempt failed, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
			zap.String("model", inv.client.GetModel(inv.tier)),
		)
	}

	err := backoff.RetryNotify(op, policy, notify)
	observability.BackendAttempts.Observe(float64(attempts))
	if err == nil {
		return output, nil
	}

	var failure *GenerationFailure
	if !errors.As(err, &failure) {
		// Canceled while waiting to retry
		failure = &GenerationFailure{Reason: ReasonCanceled, Cause: err}
	}
	failure.Attempts = attempts
	return "", failure
}

func (inv *Invoker) attempt(ctx context.Context, prompt string) (string, *GenerationFailure) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	text, err := inv.client.GenerateJSON(attemptCtx, prompt, inv.tier)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return "", &GenerationFailure{Reason: ReasonCanceled, Cause: ctx.Err()}
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			return "", &GenerationFailure{Reason: ReasonTimeout, Transient: true, Cause: err}
		}
		reason, transient := classify(err)
		return "", &GenerationFailure{Reason: reason, Transient: transient, Cause: err}
	}

	cleaned := CleanJSONBlock(text)
	if strings.TrimSpace(cleaned) == "" {
		return "", &GenerationFailure{Reason: ReasonEmpty, Cause: ErrEmptyResponse}
	}
	if !json.Valid([]byte(cleaned)) {
		return "", &GenerationFailure{Reason: ReasonUnparseable, Cause: errors.New("model output is not valid JSON")}
	}
	return cleaned, nil
}

// classify maps a backend error to a failure reason and whether it may be retried.
func classify(err error) (FailureReason, bool) {
	if errors.Is(err, ErrEmptyResponse) {
		return ReasonEmpty, false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return ReasonProvider, apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		switch st.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.Aborted:
			return ReasonProvider, true
		case codes.DeadlineExceeded:
			return ReasonTimeout, true
		default:
			return ReasonProvider, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonTransport, true
	}

	return ReasonProvider, false
}
