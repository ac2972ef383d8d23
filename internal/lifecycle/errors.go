package lifecycle

import (
	"fmt"

	"github.com/Dhairya-911/vedang-portfolio/internal/metadata"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

type InstallErrorCause string

const (
	ErrCauseManifestFetch   InstallErrorCause = "manifest fetch failed"
	ErrCauseInvalidManifest InstallErrorCause = "invalid manifest url"
	ErrCauseStorageWrite    InstallErrorCause = "precache write failed"
)

// InstallError aborts an install. Nothing from a failed install stays in
// storage.
type InstallError struct {
	Message string
	Cause   InstallErrorCause
	URL     string
	Err     error
}

func (e *InstallError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("install error: %s: %s (%s)", e.Cause, e.URL, e.Message)
	}
	return fmt.Sprintf("install error: %s: %s", e.Cause, e.Message)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *InstallError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *InstallError) Is(target error) bool {
	t, ok := target.(*InstallError)
	if !ok {
		return false
	}
	return e.Cause == t.Cause
}

// StateError reports a transition attempted from the wrong state.
type StateError struct {
	Op      string
	Current State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("lifecycle error: cannot %s while %s", e.Op, e.Current)
}

func (e *StateError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func mapInstallErrorToMetadataCause(err *InstallError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseManifestFetch:
		return metadata.CauseNetworkFailure
	case ErrCauseInvalidManifest:
		return metadata.CauseContentInvalid
	case ErrCauseStorageWrite:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
