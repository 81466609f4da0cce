package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/ethan-al/gsqr/state"
)

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Invalid node id: %s\n", args[0])
			os.Exit(-1)
		}
		port, _ := cmd.Flags().GetUint16("port")

		nodeCfg := state.LocalCfg{
			Id:   state.NodeId(id),
			Bind: netip.AddrPortFrom(netip.IPv4Unspecified(), port),
		}

		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			panic(err)
		}

		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, ncfg, 0700)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "init",
}

var newNetCmd = &cobra.Command{
	Use:   "new-net [id@host:port ...]",
	Short: "Create a central network configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Usage()
			return
		}
		cfg := state.CentralCfg{}
		for _, arg := range args {
			node, err := parseNodeSpec(arg)
			if err != nil {
				fmt.Printf("Invalid node spec %q: %v\n", arg, err)
				os.Exit(-1)
			}
			cfg.Nodes = append(cfg.Nodes, node)
		}
		state.ExpandCentralConfig(&cfg)
		if err := state.CentralConfigValidator(&cfg); err != nil {
			fmt.Printf("Invalid network: %v\n", err)
			os.Exit(-1)
		}

		ccfg, err := yaml.Marshal(&cfg)
		if err != nil {
			panic(err)
		}
		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, ccfg, 0700)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "init",
}

func parseNodeSpec(spec string) (state.NodeCfg, error) {
	for i := range spec {
		if spec[i] == '@' {
			id, err := strconv.ParseUint(spec[:i], 10, 32)
			if err != nil {
				return state.NodeCfg{}, err
			}
			bind, err := netip.ParseAddrPort(spec[i+1:])
			if err != nil {
				return state.NodeCfg{}, err
			}
			return state.NodeCfg{Id: state.NodeId(id), Bind: bind}, nil
		}
	}
	return state.NodeCfg{}, fmt.Errorf("expected id@host:port")
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().Uint16P("port", "p", state.HelloPort, "hello broadcast port")
	newCmd.Flags().StringP("output", "o", "node.yaml", "output path")

	rootCmd.AddCommand(newNetCmd)
	newNetCmd.Flags().StringP("output", "o", "central.yaml", "output path")
}
