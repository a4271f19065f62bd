package cli

import _ "embed"

// embeddedDefaultConfigurationContent declares every branch-delete key so
// prefixed environment variables resolve even without a user configuration file.
//
//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the neonbranch defaults document
// and its Viper configuration type.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	defaultsDocument := make([]byte, len(embeddedDefaultConfigurationContent))
	copy(defaultsDocument, embeddedDefaultConfigurationContent)
	return defaultsDocument, configurationTypeConstant
}
