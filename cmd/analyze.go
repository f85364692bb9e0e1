package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/ai"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/history"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/report"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptBreakdown   = "Show score breakdown"
	PromptFeedback    = "Show feedback"
	PromptDumpJSON    = "Dump analysis to file"
	PromptSaveHistory = "Save to history"
	PromptExit        = "Exit"
)

var errExit = errors.New("exit requested")

var analyzePrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptBreakdown, PromptFeedback, PromptDumpJSON, PromptSaveHistory, PromptExit},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a CV and print its score",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyze(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("mime", "", "document MIME type (detected from the file when unset)")
	analyzeCmd.Flags().BoolP("yes", "y", false, "do not show the interactive menu after the analysis")
	analyzeCmd.Flags().String("history-user", "", "save the analysis to this user's history")
}

func runAnalyze(cmd *cobra.Command, path string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	mimeFlag, _ := cmd.Flags().GetString("mime")
	doc, err := readDocument(path, mimeFlag)
	if err != nil {
		logger.Fatal("reading document", zap.Error(err))
	}

	analyzer, closeCache, err := newAnalyzer(ctx, config, logger, nil)
	defer closeCache()
	if err != nil {
		logger.Fatal("building analyzer", zap.Error(err))
	}

	logger.Info("analyzing document", zap.String("file", doc.Name), zap.String("mime_type", doc.MIMEType))

	result, err := analyzer.Analyze(ctx, doc)
	if err != nil {
		logger.Fatal("analysis failed", zap.String("outcome", analysis.Outcome(err)), zap.Error(err))
	}

	out := cmd.OutOrStdout()
	if err := report.Scores(out, result.Result); err != nil {
		logger.Fatal("printing report", zap.Error(err))
	}
	fmt.Fprintf(out, "\nhash: %s\n\n", result.Hash)

	user, _ := cmd.Flags().GetString("history-user")
	yes, _ := cmd.Flags().GetBool("yes")

	if yes {
		if err := report.Feedback(out, result.Feedback); err != nil {
			logger.Fatal("printing feedback", zap.Error(err))
		}
		if user != "" {
			if err := saveHistory(config, logger, user, doc.Name, result); err != nil {
				logger.Fatal("saving history", zap.Error(err))
			}
		}
		return
	}

	for {
		_, action, err := analyzePrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(cmd, action, config, logger, user, doc, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(cmd *cobra.Command, action string, config *Config, logger *zap.Logger, user string, doc ai.Document, result *analysis.Result) error {
	out := cmd.OutOrStdout()

	switch action {
	case PromptBreakdown:
		return report.Breakdown(out, result.Result)
	case PromptFeedback:
		return report.Feedback(out, result.Feedback)
	case PromptDumpJSON:
		filename, err := dumpToTmpFile(result)
		if err != nil {
			return fmt.Errorf("dump analysis to file: %w", err)
		}
		logger.Info("dumping analysis to file", zap.String("filename", filename))
		return nil
	case PromptSaveHistory:
		if user == "" {
			userPrompt := promptui.Prompt{
				Label: "History user",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user must not be empty")
					}
					return nil
				},
			}
			entered, err := userPrompt.Run()
			if err != nil {
				return err
			}
			user = strings.TrimSpace(entered)
		}
		return saveHistory(config, logger, user, doc.Name, result)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func saveHistory(config *Config, logger *zap.Logger, user, fileName string, result *analysis.Result) error {
	store, err := history.NewStore(config.History.Dir, logger)
	if err != nil {
		return err
	}
	entry, err := store.Append(user, fileName, *result)
	if err != nil {
		return err
	}
	for key, trend := range entry.Trends {
		logger.Debug("trend", zap.String("category", key), zap.String("trend", string(trend)))
	}
	return nil
}

func dumpToTmpFile(result *analysis.Result) (string, error) {
	file, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := report.JSON(file, result); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// readDocument loads path and resolves its MIME type from the flag, the file
// extension or the content, in that order.
func readDocument(path, mimeType string) (ai.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.Document{}, err
	}

	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
			mimeType, _, _ = mime.ParseMediaType(byExt)
		}
	}
	if mimeType == "" {
		mimeType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	return ai.Document{Data: data, MIMEType: mimeType, Name: filepath.Base(path)}, nil
}
