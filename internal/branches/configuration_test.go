package branches_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/neonbranch/internal/branches"
)

func TestDefaultCommandConfiguration(testInstance *testing.T) {
	configuration := branches.DefaultCommandConfiguration()
	require.Equal(testInstance, "console-stage.neon.build", configuration.APIHost)
	require.Equal(testInstance, 10, configuration.MaximumAttempts)
	require.Equal(testInstance, time.Second, configuration.RetryInterval)
	require.Equal(testInstance, 30*time.Second, configuration.RequestTimeout)
	require.Empty(testInstance, configuration.ProjectID)
	require.Empty(testInstance, configuration.BranchID)
	require.False(testInstance, configuration.DryRun)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := branches.DefaultConfigurationValues("tools.branch_delete")

	expected := map[string]any{
		"tools.branch_delete.api_key":         "",
		"tools.branch_delete.api_key_source":  "",
		"tools.branch_delete.api_host":        "console-stage.neon.build",
		"tools.branch_delete.project_id":      "",
		"tools.branch_delete.branch_id":       "",
		"tools.branch_delete.max_attempts":    10,
		"tools.branch_delete.retry_interval":  "1s",
		"tools.branch_delete.request_timeout": "30s",
		"tools.branch_delete.dry_run":         false,
	}
	require.Equal(testInstance, expected, values)
}

func TestCommandSanitizesConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*branches.CommandConfiguration)
		expectedCalls int
	}{
		{
			name: "non_positive_attempts_use_default",
			mutate: func(configuration *branches.CommandConfiguration) {
				configuration.MaximumAttempts = 0
			},
			expectedCalls: 10,
		},
		{
			name: "explicit_attempts_respected",
			mutate: func(configuration *branches.CommandConfiguration) {
				configuration.MaximumAttempts = 2
			},
			expectedCalls: 2,
		},
		{
			name: "identifiers_trimmed",
			mutate: func(configuration *branches.CommandConfiguration) {
				configuration.MaximumAttempts = 1
				configuration.ProjectID = "  " + testProjectIDConstant + "  "
				configuration.BranchID = "\t" + testBranchIDConstant + "\n"
			},
			expectedCalls: 1,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			controlPlane, locator := startScriptedControlPlane(testInstance, scriptedResponse{body: testSentinelBodyConstant})

			configuration := fastConfiguration(locator.Host)
			configuration.ProjectID = testProjectIDConstant
			configuration.BranchID = testBranchIDConstant
			testCase.mutate(&configuration)

			harness := newCommandHarness(configuration)
			_, executionError := harness.execute(testInstance)
			require.ErrorIs(testInstance, executionError, branches.ErrExhaustedRetries)
			require.Equal(testInstance, testCase.expectedCalls, controlPlane.callCount())

			controlPlane.mutex.Lock()
			defer controlPlane.mutex.Unlock()
			require.Equal(testInstance, "DELETE /api/v2/projects/proj-123/branches/br-456", controlPlane.paths[0])
		})
	}
}
