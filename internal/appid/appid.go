package appid

import "strings"

// Identity names used for binaries, config directories and environment variables.
const (
	BinaryName  = "crptdoc"
	ConfigName  = "crptdoc"
	EnvPrefix   = "CRPTDOC_"
	Description = "Rate-limited document submission client for the Chestny ZNAK registry"
)

// EnvVar returns the prefixed environment variable for name, e.g. EnvVar("API_TOKEN").
func EnvVar(name string) string {
	return EnvPrefix + strings.ToUpper(strings.TrimSpace(name))
}

// UserAgent identifies the client on outbound requests.
func UserAgent(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}
	return BinaryName + "/" + version
}
