package controlplane

import (
	"encoding/json"
	"strings"
)

const (
	absentIdentifierSentinelConstant = "null"
)

// AttemptOutcome classifies a single deletion round trip.
type AttemptOutcome string

// Attempt outcome enumerations.
const (
	// AttemptOutcomeConfirmed reports a response naming the deleted branch.
	AttemptOutcomeConfirmed AttemptOutcome = AttemptOutcome("confirmed")
	// AttemptOutcomeEmpty reports a blank response body.
	AttemptOutcomeEmpty AttemptOutcome = AttemptOutcome("empty")
	// AttemptOutcomeUnconfirmed reports a body that does not name a branch.
	AttemptOutcomeUnconfirmed AttemptOutcome = AttemptOutcome("unconfirmed")
)

// AttemptResult captures what one deletion round trip observed.
type AttemptResult struct {
	StatusCode int
	RawBody    string
	BranchID   *string
	Outcome    AttemptOutcome
}

// Confirmed reports whether the response named the deleted branch.
func (result AttemptResult) Confirmed() bool {
	return result.Outcome == AttemptOutcomeConfirmed && result.BranchID != nil
}

type branchDeletionResponse struct {
	Branch *struct {
		ID *string `json:"id"`
	} `json:"branch"`
}

// ClassifyResponseBody interprets a raw response body. The branch identifier is
// present only when branch.id decodes to a non-blank string other than "null".
func ClassifyResponseBody(rawBody []byte) (*string, AttemptOutcome) {
	trimmedBody := strings.TrimSpace(string(rawBody))
	if len(trimmedBody) == 0 {
		return nil, AttemptOutcomeEmpty
	}

	var response branchDeletionResponse
	if decodingError := json.Unmarshal([]byte(trimmedBody), &response); decodingError != nil {
		return nil, AttemptOutcomeUnconfirmed
	}

	if response.Branch == nil {
		return nil, AttemptOutcomeUnconfirmed
	}

	branchID := normalizeIdentifier(response.Branch.ID)
	if branchID == nil {
		return nil, AttemptOutcomeUnconfirmed
	}

	return branchID, AttemptOutcomeConfirmed
}

func normalizeIdentifier(candidate *string) *string {
	if candidate == nil {
		return nil
	}

	trimmedIdentifier := strings.TrimSpace(*candidate)
	if len(trimmedIdentifier) == 0 || trimmedIdentifier == absentIdentifierSentinelConstant {
		return nil
	}

	return &trimmedIdentifier
}
