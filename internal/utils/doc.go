// Package utils exposes the configuration and logging helpers shared by neonbranch commands.
//
// ConfigurationLoader layers embedded defaults, configuration files, and
// prefixed environment variables through Viper. LoggerFactory builds zap
// loggers that keep diagnostics on standard error.
package utils
