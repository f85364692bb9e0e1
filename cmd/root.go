package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/analysis"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/cache"
	"github.com/Grizzopc/Empleo-y-CV-con-AI-Studio/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "cv-booster"
)

type Config struct {
	Storage  *StorageConfig  `mapstructure:"storage"`
	AI       *AIConfig       `mapstructure:"ai"`
	Analysis *AnalysisConfig `mapstructure:"analysis"`
	History  *HistoryConfig  `mapstructure:"history"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type StorageConfig struct {
	// Backend is one of memory, file, s3, gcs or postgres.
	Backend  string          `mapstructure:"backend"`
	Dir      string          `mapstructure:"dir"`
	S3       cache.S3Config  `mapstructure:"s3"`
	GCS      cache.GCSConfig `mapstructure:"gcs"`
	Postgres PostgresConfig  `mapstructure:"postgres"`
}

type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AnalysisConfig struct {
	MaxDocumentBytes int           `mapstructure:"max-document-bytes"`
	// Timeout bounds one analysis, shared by every request for the same document.
	Timeout          time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-booster scores CVs with a deterministic rule engine and caches every analysis by content",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("storage.postgres.url-file", "CV_BOOSTER_DATABASE_URL_FILE"); err != nil {
		log.Fatalf("binding CV_BOOSTER_DATABASE_URL_FILE environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-booster.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", ".cv-booster/cache")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("analysis.max-document-bytes", analysis.DefaultMaxDocumentBytes)
	v.SetDefault("analysis.timeout", "5m")
	v.SetDefault("history.dir", ".cv-booster/history")
	v.SetDefault("server.addr", ":8080")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// An explicit config file must parse. Without one, defaults and the
	// environment are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Analysis == nil {
		config.Analysis = &AnalysisConfig{}
	}
	if config.History == nil {
		config.History = &HistoryConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}

// newLogger builds the logger from the global flags.
func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
