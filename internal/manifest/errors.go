package manifest

import (
	"fmt"

	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

type ManifestErrorCause string

const (
	ErrCauseParse ManifestErrorCause = "html parse failed"
	ErrCauseFetch ManifestErrorCause = "page fetch failed"
	ErrCauseWrite ManifestErrorCause = "manifest write failed"
)

type ManifestError struct {
	Message string
	Cause   ManifestErrorCause
	URL     string
	Err     error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest error: %s: %s (%s)", e.Cause, e.URL, e.Message)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

func (e *ManifestError) Severity() failure.Severity {
	return failure.SeverityFatal
}
