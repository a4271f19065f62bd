package branches

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/neonbranch/internal/controlplane"
	"github.com/temirov/neonbranch/internal/credentials"
)

const (
	commandUseConstant                     = "branch-delete"
	commandShortDescriptionConstant        = "Delete a control plane branch and wait for confirmation"
	commandLongDescriptionConstant         = "branch-delete removes a database branch through the control plane API, retrying until the API confirms the deleted branch identifier."
	commandExecutionErrorTemplateConstant  = "branch deletion failed: %w"
	unexpectedArgumentsMessageConstant     = "branch-delete does not accept positional arguments"
	confirmedOutputTemplateConstant        = "%s\n"
	flagAPIKeyNameConstant                 = "api-key"
	flagAPIKeyDescriptionConstant          = "Control plane API key (prefer --api-key-source or NEON_API_KEY)"
	flagAPIKeySourceNameConstant           = "api-key-source"
	flagAPIKeySourceDescriptionConstant    = "Where to read the API key from: env:NAME or file:PATH"
	flagAPIHostNameConstant                = "api-host"
	flagAPIHostDescriptionConstant         = "Control plane API host name"
	flagProjectIDNameConstant              = "project-id"
	flagProjectIDDescriptionConstant       = "Project containing the branch"
	flagBranchIDNameConstant               = "branch-id"
	flagBranchIDDescriptionConstant        = "Branch to delete"
	flagMaximumAttemptsNameConstant        = "max-attempts"
	flagMaximumAttemptsDescriptionConstant = "Maximum number of deletion attempts"
	flagRetryIntervalNameConstant          = "retry-interval"
	flagRetryIntervalDescriptionConstant   = "Fixed wait between attempts"
	flagRequestTimeoutNameConstant         = "request-timeout"
	flagRequestTimeoutDescriptionConstant  = "Timeout for each request (0 disables)"
	flagDryRunNameConstant                 = "dry-run"
	flagDryRunDescriptionConstant          = "Log the deletion request without sending it"
	logMessageSkippedConstant              = "branch deletion skipped; project or branch identifier not set"
	logMessageDryRunConstant               = "dry run; branch deletion request not sent"
	logMessageStartingConstant             = "deleting branch"
	logFieldAPIHostConstant                = "api_host"
	logFieldRequestPathConstant            = "path"
	logFieldRetryIntervalConstant          = "retry_interval"
	logFieldCredentialsConstant            = "credentials_present"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the loaded command configuration.
type ConfigurationProvider func() CommandConfiguration

// ClientFactory constructs the control plane client used by the command.
type ClientFactory func(options controlplane.ClientOptions) (controlplane.BranchDeletionClient, error)

// CredentialResolver locates the API key for the command.
type CredentialResolver interface {
	Resolve(request credentials.Request) (string, error)
}

// CommandBuilder assembles the Cobra command for branch deletion.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ClientFactory         ClientFactory
	CredentialResolver    CredentialResolver
	BaseTransport         http.RoundTripper
}

// Build constructs the branch-delete command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:          commandUseConstant,
		Short:        commandShortDescriptionConstant,
		Long:         commandLongDescriptionConstant,
		SilenceUsage: true,
		RunE:         builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagAPIKeyNameConstant, "", flagAPIKeyDescriptionConstant)
	command.Flags().String(flagAPIKeySourceNameConstant, "", flagAPIKeySourceDescriptionConstant)
	command.Flags().String(flagAPIHostNameConstant, defaults.APIHost, flagAPIHostDescriptionConstant)
	command.Flags().String(flagProjectIDNameConstant, "", flagProjectIDDescriptionConstant)
	command.Flags().String(flagBranchIDNameConstant, "", flagBranchIDDescriptionConstant)
	command.Flags().Int(flagMaximumAttemptsNameConstant, defaults.MaximumAttempts, flagMaximumAttemptsDescriptionConstant)
	command.Flags().Duration(flagRetryIntervalNameConstant, defaults.RetryInterval, flagRetryIntervalDescriptionConstant)
	command.Flags().Duration(flagRequestTimeoutNameConstant, defaults.RequestTimeout, flagRequestTimeoutDescriptionConstant)
	command.Flags().Bool(flagDryRunNameConstant, defaults.DryRun, flagDryRunDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.parseOptions(command)
	logger := builder.resolveLogger()

	locator := controlplane.BranchLocator{
		Host:      configuration.APIHost,
		ProjectID: configuration.ProjectID,
		BranchID:  configuration.BranchID,
	}

	if !locator.Complete() {
		logger.Info(
			logMessageSkippedConstant,
			zap.String(logFieldProjectIDConstant, locator.ProjectID),
			zap.String(logFieldBranchIDConstant, locator.BranchID),
		)
		return nil
	}

	token, credentialsError := builder.resolveCredentialResolver().Resolve(credentials.Request{
		APIKey:       configuration.APIKey,
		APIKeySource: configuration.APIKeySource,
	})
	if credentialsError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, credentialsError)
	}

	logger.Info(
		logMessageStartingConstant,
		zap.String(logFieldAPIHostConstant, locator.Host),
		zap.String(logFieldProjectIDConstant, locator.ProjectID),
		zap.String(logFieldBranchIDConstant, locator.BranchID),
		zap.Int(logFieldMaximumAttemptsConstant, configuration.MaximumAttempts),
		zap.Duration(logFieldRetryIntervalConstant, configuration.RetryInterval),
		zap.Bool(logFieldCredentialsConstant, len(token) > 0),
	)

	if configuration.DryRun {
		logger.Info(
			logMessageDryRunConstant,
			zap.String(logFieldAPIHostConstant, locator.Host),
			zap.String(logFieldRequestPathConstant, locator.Path()),
		)
		return nil
	}

	client, clientError := builder.resolveClientFactory()(controlplane.ClientOptions{
		Token:          token,
		RequestTimeout: configuration.RequestTimeout,
		BaseTransport:  builder.BaseTransport,
		Logger:         logger,
	})
	if clientError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, clientError)
	}

	deleter, deleterError := NewDeleter(logger, client, RetryPolicy{
		MaximumAttempts: configuration.MaximumAttempts,
		Interval:        configuration.RetryInterval,
	})
	if deleterError != nil {
		return deleterError
	}

	confirmedBranchID, deleteError := deleter.Delete(command.Context(), locator)
	if deleteError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, deleteError)
	}

	fmt.Fprintf(command.OutOrStdout(), confirmedOutputTemplateConstant, confirmedBranchID)
	return nil
}

// parseOptions overlays explicitly set flags on the provided configuration.
func (builder *CommandBuilder) parseOptions(command *cobra.Command) CommandConfiguration {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	if flagSet.Changed(flagAPIKeyNameConstant) {
		configuration.APIKey, _ = flagSet.GetString(flagAPIKeyNameConstant)
	}
	if flagSet.Changed(flagAPIKeySourceNameConstant) {
		configuration.APIKeySource, _ = flagSet.GetString(flagAPIKeySourceNameConstant)
	}
	if flagSet.Changed(flagAPIHostNameConstant) {
		configuration.APIHost, _ = flagSet.GetString(flagAPIHostNameConstant)
	}
	if flagSet.Changed(flagProjectIDNameConstant) {
		configuration.ProjectID, _ = flagSet.GetString(flagProjectIDNameConstant)
	}
	if flagSet.Changed(flagBranchIDNameConstant) {
		configuration.BranchID, _ = flagSet.GetString(flagBranchIDNameConstant)
	}
	if flagSet.Changed(flagMaximumAttemptsNameConstant) {
		configuration.MaximumAttempts, _ = flagSet.GetInt(flagMaximumAttemptsNameConstant)
	}
	if flagSet.Changed(flagRetryIntervalNameConstant) {
		configuration.RetryInterval, _ = flagSet.GetDuration(flagRetryIntervalNameConstant)
	}
	if flagSet.Changed(flagRequestTimeoutNameConstant) {
		configuration.RequestTimeout, _ = flagSet.GetDuration(flagRequestTimeoutNameConstant)
	}
	if flagSet.Changed(flagDryRunNameConstant) {
		configuration.DryRun, _ = flagSet.GetBool(flagDryRunNameConstant)
	}

	return configuration.sanitize()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveCredentialResolver() CredentialResolver {
	if builder.CredentialResolver != nil {
		return builder.CredentialResolver
	}
	return credentials.NewResolver(nil, nil, nil)
}

func (builder *CommandBuilder) resolveClientFactory() ClientFactory {
	if builder.ClientFactory != nil {
		return builder.ClientFactory
	}
	return defaultClientFactory
}

func defaultClientFactory(options controlplane.ClientOptions) (controlplane.BranchDeletionClient, error) {
	client, creationError := controlplane.NewClient(options)
	if creationError != nil {
		return nil, creationError
	}
	return client, nil
}
