package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"node.town/triage/metrics"
	"node.town/triage/session"
	"node.town/triage/stt"
	"node.town/triage/suggest"
	"node.town/triage/summary"
	"node.town/triage/www"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live triage sessions over websocket",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	model, closer, err := newLanguageModel(ctx, cfg, chatLogger, m)
	if err != nil {
		mainLogger.Error("language model", "error", err)
		return err
	}
	defer closer.Close()

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		mainLogger.Error("protocol catalog", "error", err)
		return err
	}
	patient, err := loadDossier(cfg.DossierPath)
	if err != nil {
		mainLogger.Error("dossier", "error", err)
		return err
	}

	deepgram := stt.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.Deepgram(), hearLogger)
	suggester := suggest.NewLLMGenerator(model)
	summaries := summary.NewDispatcher(model, chatLogger)
	sessionConfig := cfg.Session()

	server := www.NewServer(www.Options{
		Logger:  mainLogger,
		Catalog: catalog,
		NewSession: func(conn session.ClientConn) *session.Session {
			return session.New(conn, session.Deps{
				Upstream:  deepgram,
				Suggester: suggester,
				Matcher:   catalog,
				Summaries: summaries,
				Dossier:   patient,
				Logger:    hearLogger,
				Metrics:   m,
			}, sessionConfig)
		},
		Gatherer: reg,
	})

	mainLogger.Info("ready", "endpoint", deepgram.Endpoint(), "protocols", len(catalog.All()))
	return server.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTPPort))
}
