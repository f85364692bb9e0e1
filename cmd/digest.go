package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var digestCmd = &cobra.Command{
	Use:   "digest FILE",
	Short: "Print the cache key of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := printDigest(cmd.OutOrStdout(), args[0]); err != nil {
			newLogger().Fatal("computing digest", zap.String("file", args[0]), zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}

func printDigest(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, cache.Digest(data))
	return err
}
