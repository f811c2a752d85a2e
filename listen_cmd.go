package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"node.town/triage/relay"
	"node.town/triage/session"
	"node.town/triage/stt"
	"node.town/triage/suggest"
	"node.town/triage/summary"
)

var listenCmd = &cobra.Command{
	Use:   "listen <file|url|->",
	Short: "Run one triage session against recorded audio",
	Long: `Run one triage session against a WAV or raw PCM file, an HTTP audio
stream or stdin, and render its events in the terminal. Type "report" or
"followup" to request a summary, "quit" to end the session.`,
	Args: cobra.ExactArgs(1),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().Bool("interim", false, "Show interim transcripts")
	listenCmd.Flags().Bool("no-suggestions", false, "Do not generate suggestions")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mainLogger, hearLogger, chatLogger := createLoggers()

	if err := cfg.RequireDeepgram(); err != nil {
		mainLogger.Error(err.Error())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, closer, err := newLanguageModel(ctx, cfg, chatLogger, nil)
	if err != nil {
		mainLogger.Error("language model", "error", err)
		return err
	}
	defer closer.Close()

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	patient, err := loadDossier(cfg.DossierPath)
	if err != nil {
		return err
	}

	audio, err := relay.Open(ctx, args[0], hearLogger)
	if err != nil {
		mainLogger.Error("open audio", "source", args[0], "error", err)
		return err
	}

	// Commands share stdin with the audio when it is read from "-".
	var in io.Reader = os.Stdin
	if args[0] == "-" {
		in = nil
	}
	client := newConsole(in, cmd.OutOrStdout())
	client.showAll, _ = cmd.Flags().GetBool("interim")

	deps := session.Deps{
		Upstream:  stt.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.Deepgram(), hearLogger),
		Audio:     audio,
		Matcher:   catalog,
		Summaries: summary.NewDispatcher(model, chatLogger),
		Dossier:   patient,
		Logger:    hearLogger,
	}
	if off, _ := cmd.Flags().GetBool("no-suggestions"); !off {
		deps.Suggester = suggest.NewLLMGenerator(model)
	}

	s := session.New(client, deps, cfg.Session())
	mainLogger.Info("listen", "session", s.ID, "source", args[0])

	if err := s.Run(ctx); err != nil {
		mainLogger.Error("session ended", "error", err)
		return err
	}
	mainLogger.Info("done", "utterances", s.Buffer().Len())
	return nil
}
