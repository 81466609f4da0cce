package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	nodeConfigPath    = "node.yaml"
	centralConfigPath = "central.yaml"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gsqr",
	Short: "GSQR embedding-based Q-routing agent",
	Long: `GSQR is a reinforcement-learning geographic routing protocol for mobile
wireless networks. Each node scores candidate next hops with pre-trained node
embeddings and adapts them online from delivery feedback.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Initialize GSQR",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "gsqr",
		Title: "GSQR Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node-specific config")
	rootCmd.PersistentFlags().StringVarP(&centralConfigPath, "central-config", "c", centralConfigPath, "network-global config")
}
