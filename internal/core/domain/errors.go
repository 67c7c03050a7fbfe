package domain

import (
	"errors"
	"fmt"
)

var (
	ErrClaimNotFound      = errors.New("claim not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidFinding     = errors.New("invalid finding")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrAnalysisInFlight   = errors.New("analysis already in flight")
	ErrAssessmentNotReady = errors.New("assessment not ready")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
