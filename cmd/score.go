package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cv"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/report"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/scoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreCmd = &cobra.Command{
	Use:   "score METRICS.json",
	Short: "Score an already extracted metrics object without calling the model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()

		output, _ := cmd.Flags().GetString("output")
		if err := scoreFile(cmd.OutOrStdout(), args[0], output); err != nil {
			logger.Fatal("scoring metrics", zap.String("file", args[0]), zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("output", "o", "text", "output format: text or json")
}

func scoreFile(w io.Writer, path, output string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	metrics, err := cv.DecodeJSON(data)
	if err != nil {
		return err
	}

	result, err := scoring.Score(metrics)
	if err != nil {
		return err
	}

	switch output {
	case "json":
		return report.JSON(w, result)
	case "", "text":
		if err := report.Scores(w, *result); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return report.Breakdown(w, *result)
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
}
