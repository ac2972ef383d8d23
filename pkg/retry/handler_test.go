package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
	"github.com/Dhairya-911/vedang-portfolio/pkg/retry"
	"github.com/Dhairya-911/vedang-portfolio/pkg/timeutil"
)

func defaultBackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(
		time.Millisecond,
		2.0,
		10*time.Millisecond,
	)
}

type mockError struct {
	msg       string
	retryable bool
	severity  failure.Severity
}

func (m *mockError) Error() string {
	return m.msg
}

func (m *mockError) Severity() failure.Severity {
	return m.severity
}

func (m *mockError) IsRetryable() bool {
	return m.retryable
}

func transient() *mockError {
	return &mockError{msg: "transient error", retryable: true, severity: failure.SeverityRecoverable}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		callCount++
		return "success", nil
	}

	params := retry.NewRetryParam(0, 0, 42, 3, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error, got: %v", result.Err())
	}
	if result.Value() != "success" {
		t.Fatalf("expected 'success', got: %s", result.Value())
	}
	if result.Attempts() != 1 || callCount != 1 {
		t.Fatalf("expected 1 attempt, got: %d (calls %d)", result.Attempts(), callCount)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		callCount++
		if callCount < 3 {
			return "", transient()
		}
		return "success", nil
	}

	params := retry.NewRetryParam(0, time.Millisecond, 42, 5, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error, got: %v", result.Err())
	}
	if result.Attempts() != 3 {
		t.Fatalf("expected 3 attempts, got: %d", result.Attempts())
	}
}

func TestRetry_NonRetryableErrorReturnsImmediately(t *testing.T) {
	callCount := 0
	expectedErr := &mockError{msg: "fatal error", retryable: false, severity: failure.SeverityFatal}
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		callCount++
		return "", expectedErr
	}

	params := retry.NewRetryParam(0, 0, 42, 5, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Fatalf("expected 1 call for non-retryable error, got: %d", callCount)
	}
	if result.Err() != expectedErr {
		t.Fatalf("expected original error, got: %v", result.Err())
	}
}

func TestRetry_ExhaustedAttempts(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (int, failure.ClassifiedError) {
		callCount++
		return 0, transient()
	}

	params := retry.NewRetryParam(0, 0, 42, 3, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.IsSuccess() {
		t.Fatal("expected error after exhausting attempts, got nil")
	}
	if callCount != 3 || result.Attempts() != 3 {
		t.Fatalf("expected 3 calls, got: %d", callCount)
	}
	var retryErr *retry.RetryError
	if !errors.As(result.Err(), &retryErr) {
		t.Fatalf("expected RetryError, got %T", result.Err())
	}
	if retryErr.Cause != retry.ErrExhaustedAttempts {
		t.Fatalf("expected error cause 'ErrExhaustedAttempts', got: '%s'", retryErr.Cause)
	}
	if result.Err().Severity() != failure.SeverityRecoverable {
		t.Fatalf("expected recoverable severity, got: %v", result.Err().Severity())
	}
}

func TestRetry_SingleAttemptSurfacesOriginalError(t *testing.T) {
	original := transient()
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		return "", original
	}

	params := retry.NewRetryParam(0, 0, 42, 1, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.Err() != original {
		t.Fatalf("expected the original error, got: %v", result.Err())
	}
}

func TestRetry_MaxAttemptsLessThanOne(t *testing.T) {
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		return "success", nil
	}

	params := retry.NewRetryParam(0, 0, 42, 0, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	var retryErr *retry.RetryError
	if !errors.As(result.Err(), &retryErr) {
		t.Fatalf("expected RetryError, got %v", result.Err())
	}
	if retryErr.Cause != retry.ErrZeroAttempt {
		t.Fatalf("expected error cause is ErrZeroAttempt, got %s", retryErr.Cause)
	}
	if result.Attempts() != 0 {
		t.Fatalf("expected 0 attempts, got: %d", result.Attempts())
	}
}

func TestRetry_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		callCount++
		cancel()
		return "", transient()
	}

	params := retry.NewRetryParam(time.Second, 0, 42, 5, defaultBackoffParam())
	result := retry.Retry(ctx, params, fn)

	var retryErr *retry.RetryError
	if !errors.As(result.Err(), &retryErr) {
		t.Fatalf("expected RetryError, got %v", result.Err())
	}
	if retryErr.Cause != retry.ErrContextDone {
		t.Fatalf("expected ErrContextDone, got %s", retryErr.Cause)
	}
	if callCount != 1 {
		t.Fatalf("expected a single call before cancellation, got %d", callCount)
	}
}

type errorWithoutIsRetryable struct {
	msg string
}

func (e *errorWithoutIsRetryable) Error() string {
	return e.msg
}

func (e *errorWithoutIsRetryable) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func TestRetry_DefaultRetryableWhenNoIsRetryable(t *testing.T) {
	callCount := 0
	fn := func(ctx context.Context) (string, failure.ClassifiedError) {
		callCount++
		if callCount < 2 {
			return "", &errorWithoutIsRetryable{msg: "error without retryable flag"}
		}
		return "success", nil
	}

	params := retry.NewRetryParam(0, 0, 42, 3, defaultBackoffParam())
	result := retry.Retry(context.Background(), params, fn)

	if result.IsFailure() {
		t.Fatalf("expected no error after retry, got: %v", result.Err())
	}
	if callCount != 2 {
		t.Fatalf("expected 2 calls (default to retryable), got: %d", callCount)
	}
}
