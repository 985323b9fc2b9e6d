// Package cli implements the topoctl CLI commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Import state backends to register them via init()
	_ "github.com/topoctl/topoctl/pkg/state/backend/azurerm"
	_ "github.com/topoctl/topoctl/pkg/state/backend/gcs"
	_ "github.com/topoctl/topoctl/pkg/state/backend/local"
	_ "github.com/topoctl/topoctl/pkg/state/backend/s3"

	// Import provisioners to register them via init()
	_ "github.com/topoctl/topoctl/pkg/provisioner/simulator"
)

var (
	cfgFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "topoctl",
	Short: "Declare and provision infrastructure topologies",
	Long: `topoctl evaluates declarative topology files into dependency graphs
and provisions the resources they describe.

Resources reference each other's outputs; topoctl resolves the references,
orders the work, and runs independent resources in parallel.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.topoctl/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "local", "State backend type (local, s3, gcs, azurerm)")
	rootCmd.PersistentFlags().StringArray("backend-config", nil, "Backend configuration (key=value)")

	// Bind to viper
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.SetEnvPrefix("TOPOCTL")
	viper.AutomaticEnv()

	// Add subcommands
	rootCmd.AddCommand(newUpCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newDestroyCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newStateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.topoctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// Read config file if it exists
	_ = viper.ReadInConfig()
}
