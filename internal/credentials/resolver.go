package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variable names consulted when no explicit key or source is configured.
const (
	EnvNeonAPIKey = "NEON_API_KEY"
	EnvAPIKey     = "API_KEY"
)

const (
	missingCredentialsMessageConstant     = "api key not provided; set --api-key, --api-key-source, or NEON_API_KEY"
	tokenSourceResolutionTemplateConstant = "unable to resolve api key from %s: %w"
)

// ErrMissingCredentials indicates that no API key could be located.
var ErrMissingCredentials = errors.New(missingCredentialsMessageConstant)

var fallbackEnvironmentVariables = []string{
	EnvNeonAPIKey,
	EnvAPIKey,
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// Request describes the configured credential inputs.
type Request struct {
	APIKey       string
	APIKeySource string
}

// Resolver locates the control plane API key.
type Resolver struct {
	environmentLookup     EnvironmentLookup
	fileReader            FileReader
	homeDirectoryProvider HomeDirectoryProvider
}

// NewResolver creates a resolver, substituting operating system defaults for nil dependencies.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader, homeDirectoryProvider HomeDirectoryProvider) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	if homeDirectoryProvider == nil {
		homeDirectoryProvider = defaultHomeDirectoryProvider
	}

	return &Resolver{
		environmentLookup:     environmentLookup,
		fileReader:            fileReader,
		homeDirectoryProvider: homeDirectoryProvider,
	}
}

// Resolve returns the API key from the explicit value, then the declared token
// source, then the fallback environment variables.
func (resolver *Resolver) Resolve(request Request) (string, error) {
	if explicitKey := strings.TrimSpace(request.APIKey); len(explicitKey) > 0 {
		return explicitKey, nil
	}

	if sourceDeclaration := strings.TrimSpace(request.APIKeySource); len(sourceDeclaration) > 0 {
		source, parseError := ParseTokenSource(sourceDeclaration)
		if parseError != nil {
			return "", parseError
		}
		token, readError := resolver.readSource(source)
		if readError != nil {
			return "", fmt.Errorf(tokenSourceResolutionTemplateConstant, source.Type, readError)
		}
		return token, nil
	}

	for _, environmentVariable := range fallbackEnvironmentVariables {
		value, found := resolver.environmentLookup(environmentVariable)
		if !found {
			continue
		}
		if trimmedValue := strings.TrimSpace(value); len(trimmedValue) > 0 {
			return trimmedValue, nil
		}
	}

	return "", ErrMissingCredentials
}
