package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/triage/config"
	"node.town/triage/etc"
)

var (
	logger    *log.Logger
	logCloser io.Closer = io.NopCloser(nil)
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(protocolsCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("deepgram-api-key", "", "Deepgram API key")
	flags.String("openai-api-key", "", "OpenAI API key")
	flags.String("gemini-api-key", "", "Gemini API key")
	flags.String("llm-provider", "openai", "Language model provider (openai or gemini)")
	flags.String("llm-model", "", "Language model name")
	flags.String("language", "nl", "Transcription language")
	flags.Int("http-port", 5000, "HTTP server port")
	flags.String("log-level", "info", "Log level")
	flags.String("log-file", "", "Append logs to this file instead of stderr")
	flags.String("dossier", "", "Patient dossier YAML (defaults to the demo dossier)")
	flags.String("protocols", "", "Protocol catalog YAML (defaults to the built-in catalog)")

	for _, name := range []string{
		"deepgram-api-key",
		"openai-api-key",
		"gemini-api-key",
		"llm-provider",
		"llm-model",
		"language",
		"http-port",
		"log-level",
		"log-file",
		"dossier",
		"protocols",
	} {
		viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Live triage assistant for nurse phone calls",
	Long: `triage relays call audio to Deepgram, keeps a rolling transcript and
pushes triage suggestions and summaries to the client as the call goes on.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logCloser.Close()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig decodes the viper state and sets up the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	l, closer, err := etc.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	logger = l
	logCloser = closer
	styleLogger(logger)

	return cfg, nil
}

func styleLogger(logger *log.Logger) {
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)
}

// createLoggers splits the process logger into the prefixed loggers the
// components log through.
func createLoggers() (mainLogger, hearLogger, chatLogger *log.Logger) {
	mainLogger = logger.WithPrefix("main")
	hearLogger = logger.WithPrefix("hear")
	chatLogger = logger.WithPrefix("chat")
	return
}
