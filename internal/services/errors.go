package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRejected marks a terminal upstream rejection; never retried.
	ErrRejected = errors.New("upstream rejection")
	// ErrTimeout marks a deadline breach (approval age, tracking wait).
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks a failure the next poll cycle may clear.
	ErrTransient = errors.New("transient failure")
	// ErrExternal marks an external service error during side-effecting work.
	ErrExternal = errors.New("external service error")
	// ErrConfiguration marks a missing or unusable configuration value.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing remote resource.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether an error is worth retrying on a later cycle.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrExternal)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
