package cli

import (
	"os"
	"strings"

	"github.com/topoctl/topoctl/pkg/engine"
	"github.com/topoctl/topoctl/pkg/provisioner"
	"github.com/topoctl/topoctl/pkg/state"
)

// Environment variable names for provisioner configuration.
const (
	// EnvProvisioner sets the provisioner name.
	EnvProvisioner = "TOPOCTL_PROVISIONER"

	// EnvProvisionerPrefix is the prefix for provisioner-specific config
	// environment variables (TOPOCTL_PROVISIONER_FAIL_KIND, ...).
	EnvProvisionerPrefix = "TOPOCTL_PROVISIONER_"
)

// defaultParallelism is the default number of concurrent provisioning calls.
const defaultParallelism = 10

// createProvisioner resolves the provisioner from flags and environment.
// Provisioners register themselves via init() from blank imports in root.go.
func createProvisioner(name string, config []string) (provisioner.Provisioner, error) {
	effectiveName := "simulator"
	effectiveConfig := make(map[string]string)

	if envName := os.Getenv(EnvProvisioner); envName != "" {
		effectiveName = envName
	}
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvProvisionerPrefix) {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				key := strings.ToLower(strings.TrimPrefix(parts[0], EnvProvisionerPrefix))
				effectiveConfig[key] = parts[1]
			}
		}
	}

	if name != "" {
		effectiveName = name
	}
	for _, c := range config {
		parts := strings.SplitN(c, "=", 2)
		if len(parts) == 2 {
			effectiveConfig[parts[0]] = parts[1]
		}
	}

	return provisioner.New(effectiveName, effectiveConfig)
}

// createEngine wires a state manager and provisioner into an engine.
func createEngine(stateManager state.Manager, p provisioner.Provisioner) *engine.Engine {
	return engine.NewEngine(stateManager, p)
}
