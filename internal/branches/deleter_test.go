package branches_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/neonbranch/internal/branches"
	"github.com/temirov/neonbranch/internal/controlplane"
)

const (
	testProjectIDConstant           = "proj-123"
	testBranchIDConstant            = "br-456"
	testTokenConstant               = "test-token"
	testConfirmedBodyConstant       = `{"branch":{"id":"br-456"}}`
	testSentinelBodyConstant        = `{"branch":{"id":"null"}}`
	testNotFoundBodyConstant        = `{"code":"","message":"branch not found"}`
	testRetryIntervalConstant       = time.Millisecond
	testMaximumAttemptsConstant     = 10
	testSubtestNameTemplateConstant = "%d_%s"
	testRetryMessageConstant        = "branch deletion not confirmed; retrying"
	testRetryInFieldConstant        = "retry_in"
	testAttemptFieldConstant        = "attempt"
	testHTTPSchemeConstant          = "http"
)

type scriptedResponse struct {
	statusCode int
	body       string
}

// scriptedControlPlane serves responses in order and repeats the final one once the script runs out.
type scriptedControlPlane struct {
	mutex     sync.Mutex
	responses []scriptedResponse
	calls     int
	paths     []string
}

func (controlPlane *scriptedControlPlane) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	controlPlane.mutex.Lock()
	responseIndex := controlPlane.calls
	if responseIndex >= len(controlPlane.responses) {
		responseIndex = len(controlPlane.responses) - 1
	}
	controlPlane.calls++
	controlPlane.paths = append(controlPlane.paths, request.Method+" "+request.URL.Path)
	response := controlPlane.responses[responseIndex]
	controlPlane.mutex.Unlock()

	statusCode := response.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	responseWriter.WriteHeader(statusCode)
	_, _ = responseWriter.Write([]byte(response.body))
}

func (controlPlane *scriptedControlPlane) callCount() int {
	controlPlane.mutex.Lock()
	defer controlPlane.mutex.Unlock()
	return controlPlane.calls
}

func startScriptedControlPlane(testInstance *testing.T, responses ...scriptedResponse) (*scriptedControlPlane, controlplane.BranchLocator) {
	testInstance.Helper()

	controlPlane := &scriptedControlPlane{responses: responses}
	server := httptest.NewServer(controlPlane)
	testInstance.Cleanup(server.Close)

	parsedURL, parseError := url.Parse(server.URL)
	require.NoError(testInstance, parseError)

	return controlPlane, controlplane.BranchLocator{
		Host:      parsedURL.Host,
		ProjectID: testProjectIDConstant,
		BranchID:  testBranchIDConstant,
	}
}

func newHTTPDeleter(testInstance *testing.T, logger *zap.Logger) *branches.Deleter {
	testInstance.Helper()

	client, clientError := controlplane.NewClient(controlplane.ClientOptions{
		Token:  testTokenConstant,
		Scheme: testHTTPSchemeConstant,
		Logger: logger,
	})
	require.NoError(testInstance, clientError)

	deleter, deleterError := branches.NewDeleter(logger, client, branches.RetryPolicy{
		MaximumAttempts: testMaximumAttemptsConstant,
		Interval:        testRetryIntervalConstant,
	})
	require.NoError(testInstance, deleterError)
	return deleter
}

func repeatedResponses(count int, response scriptedResponse) []scriptedResponse {
	responses := make([]scriptedResponse, 0, count)
	for index := 0; index < count; index++ {
		responses = append(responses, response)
	}
	return responses
}

func retryEntries(observedLogs *observer.ObservedLogs) []observer.LoggedEntry {
	return observedLogs.FilterMessage(testRetryMessageConstant).All()
}

func TestDeleterConfirmsAfterTransientResponses(testInstance *testing.T) {
	confirmed := scriptedResponse{body: testConfirmedBodyConstant}
	empty := scriptedResponse{body: ""}

	testCases := []struct {
		name          string
		responses     []scriptedResponse
		expectedCalls int
	}{
		{
			name:          "first_attempt_confirms",
			responses:     []scriptedResponse{confirmed},
			expectedCalls: 1,
		},
		{
			name:          "one_empty_body",
			responses:     append(repeatedResponses(1, empty), confirmed),
			expectedCalls: 2,
		},
		{
			name:          "three_empty_bodies",
			responses:     append(repeatedResponses(3, empty), confirmed),
			expectedCalls: 4,
		},
		{
			name:          "confirmation_on_final_attempt",
			responses:     append(repeatedResponses(9, empty), confirmed),
			expectedCalls: 10,
		},
		{
			name:          "sentinel_then_confirmation",
			responses:     append(repeatedResponses(4, scriptedResponse{body: testSentinelBodyConstant}), confirmed),
			expectedCalls: 5,
		},
		{
			name:          "error_status_then_confirmation",
			responses:     []scriptedResponse{{statusCode: http.StatusServiceUnavailable, body: "upstream unavailable"}, {statusCode: http.StatusLocked, body: `{"message":"project already has running operations"}`}, confirmed},
			expectedCalls: 3,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			controlPlane, locator := startScriptedControlPlane(testInstance, testCase.responses...)

			logCore, observedLogs := observer.New(zap.DebugLevel)
			deleter := newHTTPDeleter(testInstance, zap.New(logCore))

			confirmedBranchID, deleteError := deleter.Delete(context.Background(), locator)
			require.NoError(testInstance, deleteError)
			require.Equal(testInstance, testBranchIDConstant, confirmedBranchID)
			require.Equal(testInstance, testCase.expectedCalls, controlPlane.callCount())

			retries := retryEntries(observedLogs)
			require.Len(testInstance, retries, testCase.expectedCalls-1)
			for retryIndex, entry := range retries {
				require.Equal(testInstance, zap.WarnLevel, entry.Level)
				require.Equal(testInstance, testRetryIntervalConstant, entry.ContextMap()[testRetryInFieldConstant])
				require.EqualValues(testInstance, retryIndex+1, entry.ContextMap()[testAttemptFieldConstant])
			}
		})
	}
}

func TestDeleterSpecExampleScenario(testInstance *testing.T) {
	controlPlane, locator := startScriptedControlPlane(
		testInstance,
		scriptedResponse{body: ""},
		scriptedResponse{body: testSentinelBodyConstant},
		scriptedResponse{body: testConfirmedBodyConstant},
	)
	deleter := newHTTPDeleter(testInstance, nil)

	confirmedBranchID, deleteError := deleter.Delete(context.Background(), locator)
	require.NoError(testInstance, deleteError)
	require.Equal(testInstance, testBranchIDConstant, confirmedBranchID)
	require.Equal(testInstance, 3, controlPlane.callCount())

	controlPlane.mutex.Lock()
	defer controlPlane.mutex.Unlock()
	for _, requestLine := range controlPlane.paths {
		require.Equal(testInstance, "DELETE /api/v2/projects/proj-123/branches/br-456", requestLine)
	}
}

func TestDeleterExhaustsRetries(testInstance *testing.T) {
	testCases := []struct {
		name             string
		response         scriptedResponse
		expectedLastBody string
		expectedStatus   int
	}{
		{name: "sentinel_every_time", response: scriptedResponse{body: testSentinelBodyConstant}, expectedLastBody: testSentinelBodyConstant, expectedStatus: http.StatusOK},
		{name: "empty_every_time", response: scriptedResponse{body: ""}, expectedLastBody: "", expectedStatus: http.StatusOK},
		{name: "not_found_every_time", response: scriptedResponse{statusCode: http.StatusNotFound, body: testNotFoundBodyConstant}, expectedLastBody: testNotFoundBodyConstant, expectedStatus: http.StatusNotFound},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			controlPlane, locator := startScriptedControlPlane(testInstance, testCase.response)

			logCore, observedLogs := observer.New(zap.DebugLevel)
			deleter := newHTTPDeleter(testInstance, zap.New(logCore))

			confirmedBranchID, deleteError := deleter.Delete(context.Background(), locator)
			require.Empty(testInstance, confirmedBranchID)
			require.ErrorIs(testInstance, deleteError, branches.ErrExhaustedRetries)

			var exhaustedError branches.ExhaustedRetriesError
			require.ErrorAs(testInstance, deleteError, &exhaustedError)
			require.Equal(testInstance, testMaximumAttemptsConstant, exhaustedError.Attempts)
			require.Equal(testInstance, testCase.expectedLastBody, exhaustedError.LastBody)
			require.Equal(testInstance, testCase.expectedStatus, exhaustedError.LastStatusCode)
			require.NoError(testInstance, exhaustedError.LastCause)
			require.True(testInstance, strings.HasSuffix(deleteError.Error(), "last response: "+testCase.expectedLastBody), deleteError.Error())

			require.Equal(testInstance, testMaximumAttemptsConstant, controlPlane.callCount())
			require.Len(testInstance, retryEntries(observedLogs), testMaximumAttemptsConstant-1)
		})
	}
}

func TestDeleterRepeatedDeletionTerminates(testInstance *testing.T) {
	controlPlane, locator := startScriptedControlPlane(
		testInstance,
		scriptedResponse{body: testConfirmedBodyConstant},
		scriptedResponse{statusCode: http.StatusNotFound, body: testNotFoundBodyConstant},
	)
	deleter := newHTTPDeleter(testInstance, nil)

	firstBranchID, firstError := deleter.Delete(context.Background(), locator)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, testBranchIDConstant, firstBranchID)

	secondBranchID, secondError := deleter.Delete(context.Background(), locator)
	require.Empty(testInstance, secondBranchID)
	require.ErrorIs(testInstance, secondError, branches.ErrExhaustedRetries)
	require.Equal(testInstance, 1+testMaximumAttemptsConstant, controlPlane.callCount())
}

type stubAttempt struct {
	result controlplane.AttemptResult
	err    error
}

type stubDeletionClient struct {
	attempts []stubAttempt
	calls    int
	onCall   func(callNumber int)
}

func (client *stubDeletionClient) DeleteBranch(executionContext context.Context, locator controlplane.BranchLocator) (controlplane.AttemptResult, error) {
	attemptIndex := client.calls
	if attemptIndex >= len(client.attempts) {
		attemptIndex = len(client.attempts) - 1
	}
	client.calls++
	if client.onCall != nil {
		client.onCall(client.calls)
	}
	attempt := client.attempts[attemptIndex]
	return attempt.result, attempt.err
}

func confirmedAttempt(branchID string) stubAttempt {
	return stubAttempt{result: controlplane.AttemptResult{StatusCode: http.StatusOK, RawBody: testConfirmedBodyConstant, BranchID: &branchID, Outcome: controlplane.AttemptOutcomeConfirmed}}
}

func transportAttempt() stubAttempt {
	return stubAttempt{err: controlplane.TransportError{Method: http.MethodDelete, Path: "/api/v2/projects/proj-123/branches/br-456", Cause: errors.New("connection refused")}}
}

func newStubDeleter(testInstance *testing.T, client controlplane.BranchDeletionClient, maximumAttempts int) *branches.Deleter {
	testInstance.Helper()

	deleter, deleterError := branches.NewDeleter(nil, client, branches.RetryPolicy{MaximumAttempts: maximumAttempts, Interval: testRetryIntervalConstant})
	require.NoError(testInstance, deleterError)
	return deleter
}

func testLocator() controlplane.BranchLocator {
	return controlplane.BranchLocator{Host: "console-stage.neon.build", ProjectID: testProjectIDConstant, BranchID: testBranchIDConstant}
}

func TestDeleterRetriesTransportErrors(testInstance *testing.T) {
	client := &stubDeletionClient{attempts: []stubAttempt{transportAttempt(), transportAttempt(), confirmedAttempt(testBranchIDConstant)}}
	deleter := newStubDeleter(testInstance, client, testMaximumAttemptsConstant)

	confirmedBranchID, deleteError := deleter.Delete(context.Background(), testLocator())
	require.NoError(testInstance, deleteError)
	require.Equal(testInstance, testBranchIDConstant, confirmedBranchID)
	require.Equal(testInstance, 3, client.calls)
}

func TestDeleterSurfacesFinalTransportError(testInstance *testing.T) {
	client := &stubDeletionClient{attempts: []stubAttempt{transportAttempt()}}
	deleter := newStubDeleter(testInstance, client, 3)

	_, deleteError := deleter.Delete(context.Background(), testLocator())
	require.ErrorIs(testInstance, deleteError, branches.ErrExhaustedRetries)

	var transportError controlplane.TransportError
	require.ErrorAs(testInstance, deleteError, &transportError)
	require.Equal(testInstance, 3, client.calls)
}

func TestDeleterDoesNotRetryInvalidInput(testInstance *testing.T) {
	client := &stubDeletionClient{attempts: []stubAttempt{{err: controlplane.InvalidInputError{FieldName: "host", Message: "value required"}}}}
	deleter := newStubDeleter(testInstance, client, testMaximumAttemptsConstant)

	_, deleteError := deleter.Delete(context.Background(), testLocator())

	var inputError controlplane.InvalidInputError
	require.ErrorAs(testInstance, deleteError, &inputError)
	require.False(testInstance, errors.Is(deleteError, branches.ErrExhaustedRetries))
	require.Equal(testInstance, 1, client.calls)
}

func TestDeleterStopsWhenContextCancelled(testInstance *testing.T) {
	cancellableContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &stubDeletionClient{
		attempts: []stubAttempt{{result: controlplane.AttemptResult{StatusCode: http.StatusOK, Outcome: controlplane.AttemptOutcomeEmpty}}},
		onCall: func(callNumber int) {
			if callNumber == 2 {
				cancel()
			}
		},
	}
	deleter := newStubDeleter(testInstance, client, testMaximumAttemptsConstant)

	_, deleteError := deleter.Delete(cancellableContext, testLocator())
	require.ErrorIs(testInstance, deleteError, context.Canceled)
	require.False(testInstance, errors.Is(deleteError, branches.ErrExhaustedRetries))
	require.Equal(testInstance, 2, client.calls)
}

func TestDeleterReportsConfirmedIdentifier(testInstance *testing.T) {
	client := &stubDeletionClient{attempts: []stubAttempt{confirmedAttempt("br-other")}}

	logCore, observedLogs := observer.New(zap.DebugLevel)
	deleter, deleterError := branches.NewDeleter(zap.New(logCore), client, branches.RetryPolicy{})
	require.NoError(testInstance, deleterError)

	confirmedBranchID, deleteError := deleter.Delete(context.Background(), testLocator())
	require.NoError(testInstance, deleteError)
	require.Equal(testInstance, "br-other", confirmedBranchID)
	require.Equal(testInstance, 1, observedLogs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestNewDeleterValidation(testInstance *testing.T) {
	deleter, deleterError := branches.NewDeleter(nil, nil, branches.DefaultRetryPolicy())
	require.Nil(testInstance, deleter)
	require.ErrorIs(testInstance, deleterError, branches.ErrClientNotConfigured)

	defaults := branches.DefaultRetryPolicy()
	require.Equal(testInstance, 10, defaults.MaximumAttempts)
	require.Equal(testInstance, time.Second, defaults.Interval)
}
