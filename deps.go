package main

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"node.town/triage/checklist"
	"node.town/triage/config"
	"node.town/triage/dossier"
	"node.town/triage/llm"
)

func loadCatalog(path string) (*checklist.Catalog, error) {
	if path == "" {
		return checklist.Default(), nil
	}
	return checklist.Load(path)
}

func loadDossier(path string) (*dossier.Dossier, error) {
	if path == "" {
		return dossier.Demo(), nil
	}
	return dossier.Load(path)
}

// newLanguageModel builds the configured provider, wrapped so that every
// call is logged and observed.
func newLanguageModel(
	ctx context.Context,
	cfg *config.Config,
	logger *log.Logger,
	observer llm.Observer,
) (llm.LanguageModel, io.Closer, error) {
	if err := cfg.RequireLanguageModel(); err != nil {
		return nil, nil, err
	}

	var (
		model  llm.LanguageModel
		closer io.Closer = io.NopCloser(nil)
	)
	switch cfg.LLMProvider {
	case "gemini":
		gemini, err := llm.NewGeminiLanguageModel(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, nil, err
		}
		model, closer = gemini, gemini
	default:
		model = llm.NewOpenAILanguageModel(cfg.OpenAIAPIKey, cfg.LLMModel)
	}

	logger.Info("llm", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	return llm.WithLogging(model, logger, observer), closer, nil
}
