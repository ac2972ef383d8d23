package partition

import (
	"fmt"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseUnavailable       StorageErrorCause = "storage unavailable"
	ErrCauseQuotaExceeded     StorageErrorCause = "quota exceeded"
	ErrCausePartitionNotFound StorageErrorCause = "partition not found"
	ErrCauseCorruptEntry      StorageErrorCause = "corrupt entry"
	ErrCauseInvalidName       StorageErrorCause = "invalid partition name"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Partition string
}

func (e *StorageError) Error() string {
	if e.Partition != "" {
		return fmt.Sprintf("storage error: %s (%s): %s", e.Cause, e.Partition, e.Message)
	}
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

// Is matches any *StorageError with the same cause, so callers can write
// errors.Is(err, &StorageError{Cause: ErrCauseQuotaExceeded}).
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return t.Cause == "" || t.Cause == e.Cause
}

// MapStorageErrorToMetadataCause maps local storage errors to the
// observability ErrorCause table. It is the only place that mapping lives.
func MapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnavailable, ErrCauseQuotaExceeded, ErrCausePartitionNotFound, ErrCauseCorruptEntry:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidName:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
