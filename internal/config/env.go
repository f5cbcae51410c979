package config

import "os"

// Env returns true when a given environment variable is set to "yes".
// Used for opt-in switches such as CHATLOAD_INSECURE_TLS.
func Env(env string) bool {
	return "yes" == os.Getenv(env)
}

// EnvOrDefault returns the value of env if set and non-empty, otherwise def.
func EnvOrDefault(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
