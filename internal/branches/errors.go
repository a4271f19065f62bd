package branches

import (
	"errors"
	"fmt"

	"github.com/temirov/neonbranch/internal/controlplane"
)

const (
	exhaustedRetriesMessageConstant           = "branch deletion not confirmed"
	exhaustedRetriesTemplateConstant          = "branch %s in project %s not confirmed after %d attempts (last status %d); last response: %s"
	exhaustedRetriesWithCauseTemplateConstant = "branch %s in project %s not confirmed after %d attempts: %s; last response: %s"
	clientNotConfiguredMessageConstant        = "control plane client not configured"
	unconfirmedAttemptTemplateConstant        = "control plane response %s (status %d)"
)

var (
	// ErrExhaustedRetries matches every ExhaustedRetriesError.
	ErrExhaustedRetries = errors.New(exhaustedRetriesMessageConstant)
	// ErrClientNotConfigured indicates the deleter was constructed without a control plane client.
	ErrClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)
)

// ExhaustedRetriesError reports that every attempt finished without the API naming the deleted branch.
type ExhaustedRetriesError struct {
	Locator        controlplane.BranchLocator
	Attempts       int
	LastStatusCode int
	LastBody       string
	LastCause      error
}

// Error describes the exhausted attempts and the last observed response.
func (exhaustedError ExhaustedRetriesError) Error() string {
	if exhaustedError.LastCause != nil {
		return fmt.Sprintf(
			exhaustedRetriesWithCauseTemplateConstant,
			exhaustedError.Locator.BranchID,
			exhaustedError.Locator.ProjectID,
			exhaustedError.Attempts,
			exhaustedError.LastCause,
			exhaustedError.LastBody,
		)
	}
	return fmt.Sprintf(
		exhaustedRetriesTemplateConstant,
		exhaustedError.Locator.BranchID,
		exhaustedError.Locator.ProjectID,
		exhaustedError.Attempts,
		exhaustedError.LastStatusCode,
		exhaustedError.LastBody,
	)
}

// Is matches ErrExhaustedRetries.
func (exhaustedError ExhaustedRetriesError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// Unwrap exposes the transport failure of the final attempt, if any.
func (exhaustedError ExhaustedRetriesError) Unwrap() error {
	return exhaustedError.LastCause
}

// unconfirmedAttemptError marks an attempt whose response did not name the branch.
type unconfirmedAttemptError struct {
	outcome    controlplane.AttemptOutcome
	statusCode int
}

func (attemptError unconfirmedAttemptError) Error() string {
	return fmt.Sprintf(unconfirmedAttemptTemplateConstant, attemptError.outcome, attemptError.statusCode)
}
