package cmd

import (
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/history"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Work with saved analyses",
}

var historyShowCmd = &cobra.Command{
	Use:   "show USER",
	Short: "List the saved analyses of a user, newest last",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		store, err := history.NewStore(config.History.Dir, logger)
		if err != nil {
			logger.Fatal("opening history", zap.Error(err))
		}

		entries, err := store.List(args[0])
		if err != nil {
			logger.Fatal("listing history", zap.String("user", args[0]), zap.Error(err))
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "json" {
			err = report.JSON(cmd.OutOrStdout(), entries)
		} else {
			err = report.History(cmd.OutOrStdout(), entries)
		}
		if err != nil {
			logger.Fatal("printing history", zap.Error(err))
		}
	},
}

func init() {
	historyShowCmd.Flags().StringP("output", "o", "text", "output format: text or json")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
