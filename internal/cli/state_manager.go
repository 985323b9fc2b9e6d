package cli

import (
	"os"
	"strings"

	"github.com/topoctl/topoctl/pkg/state"
	"github.com/topoctl/topoctl/pkg/state/backend"
)

// Environment variable names for state backend configuration.
const (
	// EnvStateBackend sets the state backend type (local, s3, gcs, azurerm).
	EnvStateBackend = "TOPOCTL_STATE_BACKEND"

	// EnvStatePrefix is the prefix for backend-specific config environment
	// variables. For example, TOPOCTL_STATE_PATH sets the "path" config for
	// the local backend, TOPOCTL_STATE_BUCKET the "bucket" for S3/GCS.
	EnvStatePrefix = "TOPOCTL_STATE_"
)

// createStateManagerWithConfig creates a state manager with the given backend
// type and config.
//
// Configuration precedence (highest to lowest):
//  1. CLI flags (--backend, --backend-config)
//  2. Environment variables (TOPOCTL_STATE_BACKEND, TOPOCTL_STATE_*)
//  3. Hardcoded defaults (local backend with ~/.topoctl/state)
func createStateManagerWithConfig(backendType string, backendConfig []string) (state.Manager, error) {
	effectiveBackend := "local"
	effectiveConfig := make(map[string]string)

	if envBackend := os.Getenv(EnvStateBackend); envBackend != "" {
		effectiveBackend = envBackend
	}

	// Backend-specific env vars (TOPOCTL_STATE_PATH, TOPOCTL_STATE_BUCKET, ...)
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvStatePrefix) && !strings.HasPrefix(env, EnvStateBackend) {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				key := strings.ToLower(strings.TrimPrefix(parts[0], EnvStatePrefix))
				effectiveConfig[key] = parts[1]
			}
		}
	}

	// CLI flags take highest priority
	if backendType != "" {
		effectiveBackend = backendType
	}

	for _, c := range backendConfig {
		parts := strings.SplitN(c, "=", 2)
		if len(parts) == 2 {
			effectiveConfig[parts[0]] = parts[1]
		}
	}

	config := backend.Config{
		Type:   effectiveBackend,
		Config: effectiveConfig,
	}

	return state.NewManagerFromConfig(config)
}
