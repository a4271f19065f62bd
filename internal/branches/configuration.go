package branches

import (
	"strings"
	"time"
)

const (
	defaultAPIHostConstant                  = "console-stage.neon.build"
	defaultMaximumAttemptsConstant          = 10
	defaultRetryIntervalConstant            = time.Second
	defaultRequestTimeoutConstant           = 30 * time.Second
	configurationAPIKeyKeyConstant          = "api_key"
	configurationAPIKeySourceKeyConstant    = "api_key_source"
	configurationAPIHostKeyConstant         = "api_host"
	configurationProjectIDKeyConstant       = "project_id"
	configurationBranchIDKeyConstant        = "branch_id"
	configurationMaximumAttemptsKeyConstant = "max_attempts"
	configurationRetryIntervalKeyConstant   = "retry_interval"
	configurationRequestTimeoutKeyConstant  = "request_timeout"
	configurationDryRunKeyConstant          = "dry_run"
	configurationKeySeparatorConstant       = "."
)

// CommandConfiguration captures configuration values for the branch deletion command.
type CommandConfiguration struct {
	APIKey          string        `mapstructure:"api_key"`
	APIKeySource    string        `mapstructure:"api_key_source"`
	APIHost         string        `mapstructure:"api_host"`
	ProjectID       string        `mapstructure:"project_id"`
	BranchID        string        `mapstructure:"branch_id"`
	MaximumAttempts int           `mapstructure:"max_attempts"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	DryRun          bool          `mapstructure:"dry_run"`
}

// DefaultCommandConfiguration provides baseline configuration values for branch deletion.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		APIHost:         defaultAPIHostConstant,
		MaximumAttempts: defaultMaximumAttemptsConstant,
		RetryInterval:   defaultRetryIntervalConstant,
		RequestTimeout:  defaultRequestTimeoutConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults beneath rootKey. Every key is
// registered so prefixed environment variables can override it.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationAPIKeyKeyConstant:          defaults.APIKey,
		prefix + configurationAPIKeySourceKeyConstant:    defaults.APIKeySource,
		prefix + configurationAPIHostKeyConstant:         defaults.APIHost,
		prefix + configurationProjectIDKeyConstant:       defaults.ProjectID,
		prefix + configurationBranchIDKeyConstant:        defaults.BranchID,
		prefix + configurationMaximumAttemptsKeyConstant: defaults.MaximumAttempts,
		prefix + configurationRetryIntervalKeyConstant:   defaults.RetryInterval.String(),
		prefix + configurationRequestTimeoutKeyConstant:  defaults.RequestTimeout.String(),
		prefix + configurationDryRunKeyConstant:          defaults.DryRun,
	}
}

// sanitize trims textual values and restores defaults for unusable numeric ones.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.APIKey = strings.TrimSpace(configuration.APIKey)
	sanitized.APIKeySource = strings.TrimSpace(configuration.APIKeySource)
	sanitized.APIHost = strings.TrimSpace(configuration.APIHost)
	sanitized.ProjectID = strings.TrimSpace(configuration.ProjectID)
	sanitized.BranchID = strings.TrimSpace(configuration.BranchID)

	if len(sanitized.APIHost) == 0 {
		sanitized.APIHost = defaults.APIHost
	}
	if sanitized.MaximumAttempts <= 0 {
		sanitized.MaximumAttempts = defaults.MaximumAttempts
	}
	if sanitized.RetryInterval <= 0 {
		sanitized.RetryInterval = defaults.RetryInterval
	}
	if sanitized.RequestTimeout < 0 {
		sanitized.RequestTimeout = defaults.RequestTimeout
	}

	return sanitized
}
