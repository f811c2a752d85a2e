package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"node.town/triage/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [transcript]",
	Short: "Summarize a transcript file or the patient dossier",
	Long: `Summarize a transcript file (or stdin with "-") as a report or a
followup letter, or summarize the patient dossier with --kind=ecd. Without
--kind the summary type is chosen interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().String("kind", "", "Summary type: report, followup or ecd")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mainLogger, _, chatLogger := createLoggers()

	kindName, _ := cmd.Flags().GetString("kind")
	if kindName == "" {
		kindName, err = chooseSummaryKind()
		if err != nil {
			return err
		}
	}
	kind, err := summaryKind(kindName)
	if err != nil {
		return err
	}

	input, err := summaryInput(cmd, kind, cfg.DossierPath, args)
	if err != nil {
		mainLogger.Error("summary input", "error", err)
		return err
	}

	ctx := context.Background()
	model, closer, err := newLanguageModel(ctx, cfg, chatLogger, nil)
	if err != nil {
		mainLogger.Error("language model", "error", err)
		return err
	}
	defer closer.Close()

	text, err := summary.NewDispatcher(model, chatLogger).Generate(ctx, kind, input)
	if err != nil {
		mainLogger.Error("summarize", "kind", kind, "error", err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// summaryKind accepts the kinds a client may request plus the dossier
// summary, which is otherwise only produced at session start.
func summaryKind(name string) (summary.Kind, error) {
	if name == string(summary.KindDossier) {
		return summary.KindDossier, nil
	}
	return summary.ParseKind(name)
}

func summaryInput(cmd *cobra.Command, kind summary.Kind, dossierPath string, args []string) (string, error) {
	if kind == summary.KindDossier {
		patient, err := loadDossier(dossierPath)
		if err != nil {
			return "", err
		}
		return patient.ContextString(), nil
	}

	if len(args) == 0 {
		return "", errors.New("a transcript file is required for this summary type")
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

func chooseSummaryKind() (string, error) {
	var kind string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose a summary").
				Options(
					huh.NewOption("Gespreksverslag (SOAP)", string(summary.KindReport)),
					huh.NewOption("Overdrachtsbrief", string(summary.KindFollowup)),
					huh.NewOption("Dossiersamenvatting", string(summary.KindDossier)),
				).
				Value(&kind),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("form input: %w", err)
	}
	return kind, nil
}
