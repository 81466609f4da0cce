package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethan-al/gsqr/state"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings [file.csv]",
	Short: "Inspect a trained embedding table",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		store := state.NewEmbeddingStore()
		n, err := store.LoadFile(args[0])
		if err != nil {
			fmt.Printf("Failed to load table: %v\n", err)
			os.Exit(-1)
		}
		fmt.Printf("%d embeddings (%.1f KiB)\n", n, store.MemoryKB())
		for _, id := range store.Ids() {
			h, bias := store.Get(id)
			norm := 0.0
			for _, v := range h {
				norm += v * v
			}
			fmt.Printf("  node %-6d |h| = %-8.4f bias = %.4f\n", id, math.Sqrt(norm), bias)
		}
	},
	GroupID: "gsqr",
}

func init() {
	rootCmd.AddCommand(embeddingsCmd)
}
