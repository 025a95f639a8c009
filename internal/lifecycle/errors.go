package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-configvault/pkg/domain"
	"github.com/goliatone/go-configvault/pkg/interfaces/validate"
)

var (
	// ErrInvalidState is returned when an operation is not legal for the
	// record's current lifecycle state.
	ErrInvalidState = errors.New("lifecycle: invalid state")

	// ErrRetentionNotExpired is returned when a purge without force hits a
	// record still inside its retention period.
	ErrRetentionNotExpired = errors.New("lifecycle: retention period not expired")

	// ErrNotInitialized is returned when a password check is requested
	// before any encrypted record established the vault metadata.
	ErrNotInitialized = errors.New("lifecycle: vault not initialized")
)

func invalidState(op string, state domain.State) error {
	return fmt.Errorf("%w: cannot %s record in state %q", ErrInvalidState, op, state)
}

func retentionNotExpired(remaining time.Duration) error {
	return fmt.Errorf("%w: %s remaining", ErrRetentionNotExpired, remaining)
}

// ValidationError reports content that failed format validation.
type ValidationError struct {
	Format domain.Format
	Issues []validate.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("lifecycle: content is not valid %s", e.Format)
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Line > 0 {
			parts[i] = fmt.Sprintf("line %d: %s", issue.Line, issue.Message)
		} else {
			parts[i] = issue.Message
		}
	}
	return fmt.Sprintf("lifecycle: content is not valid %s: %s", e.Format, strings.Join(parts, "; "))
}
