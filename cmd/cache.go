package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errCacheMiss = errors.New("no cached analysis for this hash")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the analysis cache",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get HASH",
	Short: "Print a cached analysis exactly as stored",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		backend, closeFn, err := newBackend(ctx, config.Storage, logger)
		defer closeFn()
		if err != nil {
			logger.Fatal("opening cache", zap.Error(err))
		}

		if err := cacheGet(ctx, cmd.OutOrStdout(), backend, args[0]); err != nil {
			logger.Fatal("reading cache", zap.String("hash", args[0]), zap.Error(err))
		}
	},
}

func init() {
	cacheCmd.AddCommand(cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheGet(ctx context.Context, w io.Writer, backend cache.Backend, hash string) error {
	raw, ok, err := cache.New[struct{}](backend, nil).LookupRaw(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", errCacheMiss, hash)
	}
	_, err = w.Write(raw)
	return err
}
