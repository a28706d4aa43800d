package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"dxt-admin/internal/apiclient"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var ErrMutationFailed = errors.New("mutation failed")

// RejectedError is a mutation the backend answered with success:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("mutation rejected: %s", e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrMutationFailed
}

// Notifier shows the outcome of a mutation to the admin.
type Notifier interface {
	Success(ctx context.Context, message string)
	Failure(ctx context.Context, message string)
}

// Outcome is implemented by backend responses carrying a success flag.
type Outcome interface {
	Succeeded() bool
	Reason() string
}

type Mutation[T any] struct {
	Name        string
	Run         func(ctx context.Context) (T, error)
	Invalidates []Key
	Success     string
	Failure     string
	Notifier    Notifier
	// Once disables the retry for requests that are not idempotent.
	Once bool
}

// Mutate runs m. On success the declared keys are invalidated and the success
// notification is sent. On failure, including a success:false response, the
// cache is left untouched and the failure notification carries the backend
// message or m.Failure.
func Mutate[T any](ctx context.Context, c *Cache, m Mutation[T]) (T, error) {
	var result T

	op := func() error {
		v, err := m.Run(ctx)
		if err != nil {
			if !retryableMutation(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}
	retries := max(c.cfg.MutationRetries, 0)
	if m.Once {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.MutationDelay), uint64(retries)),
		ctx,
	)
	err := backoff.Retry(op, policy)

	if err == nil {
		if o, ok := any(result).(Outcome); ok && !o.Succeeded() {
			err = &RejectedError{Message: o.Reason()}
		}
	}

	if err != nil {
		c.logger.Warn("Mutation failed", zap.String("mutation", m.Name), zap.Error(err))
		if m.Notifier != nil {
			m.Notifier.Failure(ctx, FailureMessage(err, m.Failure))
		}
		return result, err
	}

	for _, key := range m.Invalidates {
		c.Invalidate(key)
	}
	c.logger.Info("Mutation succeeded", zap.String("mutation", m.Name), zap.Int("invalidated_keys", len(m.Invalidates)))
	if m.Notifier != nil && m.Success != "" {
		m.Notifier.Success(ctx, m.Success)
	}
	return result, nil
}

// FailureMessage is the text shown for a failed mutation.
func FailureMessage(err error, fallback string) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return apiclient.MessageOr(err, fallback)
}

// retryableMutation allows a retry only for transport failures and 5xx.
func retryableMutation(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, apiclient.ErrInvalidPayload) {
		return false
	}
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
