package branches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/temirov/neonbranch/internal/controlplane"
)

const (
	deletionInterruptedTemplateConstant  = "branch deletion interrupted after %d attempts: %w"
	logMessageAttemptRetryConstant       = "branch deletion not confirmed; retrying"
	logMessageDeletionConfirmedConstant  = "branch deletion confirmed"
	logMessageIdentifierMismatchConstant = "control plane confirmed a different branch identifier"
	logFieldAttemptConstant              = "attempt"
	logFieldMaximumAttemptsConstant      = "max_attempts"
	logFieldRetryInConstant              = "retry_in"
	logFieldReasonConstant               = "reason"
	logFieldProjectIDConstant            = "project_id"
	logFieldBranchIDConstant             = "branch_id"
	logFieldConfirmedBranchIDConstant    = "confirmed_branch_id"
)

// RetryPolicy bounds the deletion attempts.
type RetryPolicy struct {
	MaximumAttempts int
	Interval        time.Duration
}

// DefaultRetryPolicy returns ten attempts spaced one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaximumAttempts: defaultMaximumAttemptsConstant,
		Interval:        defaultRetryIntervalConstant,
	}
}

func (policy RetryPolicy) normalized() RetryPolicy {
	defaults := DefaultRetryPolicy()
	normalizedPolicy := policy
	if normalizedPolicy.MaximumAttempts <= 0 {
		normalizedPolicy.MaximumAttempts = defaults.MaximumAttempts
	}
	if normalizedPolicy.Interval <= 0 {
		normalizedPolicy.Interval = defaults.Interval
	}
	return normalizedPolicy
}

// Deleter removes a branch and waits for the control plane to confirm it.
type Deleter struct {
	logger *zap.Logger
	client controlplane.BranchDeletionClient
	policy RetryPolicy
}

// NewDeleter constructs a Deleter. Non-positive policy values fall back to DefaultRetryPolicy.
func NewDeleter(logger *zap.Logger, client controlplane.BranchDeletionClient, policy RetryPolicy) (*Deleter, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deleter{logger: logger, client: client, policy: policy.normalized()}, nil
}

// Delete issues deletion requests sequentially until a response names the deleted
// branch or the attempt budget is spent. Empty bodies, unconfirmed bodies, and
// transport failures are retried after a fixed interval; invalid input is not.
func (deleter *Deleter) Delete(executionContext context.Context, locator controlplane.BranchLocator) (string, error) {
	attemptsMade := 0
	var lastResult controlplane.AttemptResult
	var lastCause error

	operation := func() (string, error) {
		attemptsMade++
		lastResult = controlplane.AttemptResult{}
		lastCause = nil

		result, deleteError := deleter.client.DeleteBranch(executionContext, locator)
		if deleteError != nil {
			var inputError controlplane.InvalidInputError
			if errors.As(deleteError, &inputError) || errors.Is(deleteError, controlplane.ErrHTTPClientNotConfigured) {
				return "", backoff.Permanent(deleteError)
			}
			lastResult = result
			lastCause = deleteError
			return "", deleteError
		}

		lastResult = result
		if result.Confirmed() {
			return *result.BranchID, nil
		}

		return "", unconfirmedAttemptError{outcome: result.Outcome, statusCode: result.StatusCode}
	}

	notify := func(attemptError error, retryIn time.Duration) {
		deleter.logger.Warn(
			logMessageAttemptRetryConstant,
			zap.String(logFieldProjectIDConstant, locator.ProjectID),
			zap.String(logFieldBranchIDConstant, locator.BranchID),
			zap.Int(logFieldAttemptConstant, attemptsMade),
			zap.Int(logFieldMaximumAttemptsConstant, deleter.policy.MaximumAttempts),
			zap.Duration(logFieldRetryInConstant, retryIn),
			zap.String(logFieldReasonConstant, attemptError.Error()),
		)
	}

	confirmedBranchID, retryError := backoff.Retry(
		executionContext,
		operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(deleter.policy.Interval)),
		backoff.WithMaxTries(uint(deleter.policy.MaximumAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if retryError == nil {
		deleter.logConfirmation(locator, confirmedBranchID, attemptsMade)
		return confirmedBranchID, nil
	}

	if contextError := executionContext.Err(); contextError != nil {
		return "", fmt.Errorf(deletionInterruptedTemplateConstant, attemptsMade, contextError)
	}

	var inputError controlplane.InvalidInputError
	if errors.As(retryError, &inputError) {
		return "", inputError
	}
	if errors.Is(retryError, controlplane.ErrHTTPClientNotConfigured) {
		return "", controlplane.ErrHTTPClientNotConfigured
	}

	return "", ExhaustedRetriesError{
		Locator:        locator,
		Attempts:       attemptsMade,
		LastStatusCode: lastResult.StatusCode,
		LastBody:       lastResult.RawBody,
		LastCause:      lastCause,
	}
}

func (deleter *Deleter) logConfirmation(locator controlplane.BranchLocator, confirmedBranchID string, attemptsMade int) {
	if confirmedBranchID != locator.BranchID {
		deleter.logger.Warn(
			logMessageIdentifierMismatchConstant,
			zap.String(logFieldBranchIDConstant, locator.BranchID),
			zap.String(logFieldConfirmedBranchIDConstant, confirmedBranchID),
		)
	}

	deleter.logger.Info(
		logMessageDeletionConfirmedConstant,
		zap.String(logFieldProjectIDConstant, locator.ProjectID),
		zap.String(logFieldBranchIDConstant, confirmedBranchID),
		zap.Int(logFieldAttemptConstant, attemptsMade),
	)
}
