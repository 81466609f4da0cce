package cmd

import (
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ethan-al/gsqr/core"
	"github.com/ethan-al/gsqr/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gsqr agent",
	Long:  `This will run the gsqr agent on the current host, broadcasting Hello beacons and learning from delivery feedback.`,
	Run: func(cmd *cobra.Command, args []string) {
		var centralCfg state.CentralCfg
		file, err := os.ReadFile(centralConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &centralCfg)
		if err != nil {
			panic(err)
		}

		var nodeCfg state.LocalCfg
		file, err = os.ReadFile(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &nodeCfg)
		if err != nil {
			panic(err)
		}

		state.ExpandCentralConfig(&centralCfg)
		err = state.CentralConfigValidator(&centralCfg)
		if err != nil {
			panic(err)
		}
		if !nodeCfg.Bind.IsValid() {
			if node := centralCfg.TryGetNode(nodeCfg.Id); node != nil {
				nodeCfg.Bind = node.Bind
			}
		}
		err = state.NodeConfigValidator(&nodeCfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		err = core.Start(centralCfg, nodeCfg, level)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "gsqr",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
