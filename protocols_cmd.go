package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"node.town/triage/checklist"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols [id]",
	Short: "List the triage protocols in a table",
	Long: `List the protocol catalog, or only the protocols whose keywords occur
in --match. With an id, list the steps of that protocol.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProtocols,
}

func init() {
	protocolsCmd.Flags().String("match", "", "Only list protocols relevant to this text")
}

func runProtocols(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		p, ok := catalog.ByID(args[0])
		if !ok {
			return fmt.Errorf("no protocol %q", args[0])
		}
		renderSteps(cmd.OutOrStdout(), p)
		return nil
	}

	protocols := catalog.All()
	if match, _ := cmd.Flags().GetString("match"); match != "" {
		protocols = catalog.Relevant(match)
	}
	renderProtocols(cmd.OutOrStdout(), protocols)
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func renderProtocols(w io.Writer, protocols []checklist.Protocol) {
	table := newTable(w, []string{"ID", "Type", "Title", "Steps", "Keywords"})
	for _, p := range protocols {
		table.Append([]string{
			p.ID,
			string(p.Type),
			p.Title,
			fmt.Sprintf("%d", len(p.Steps)),
			strings.Join(p.Keywords, ", "),
		})
	}
	table.Render()
}

func renderSteps(w io.Writer, p checklist.Protocol) {
	fmt.Fprintf(w, "%s (%s)\n%s\n\n", p.Title, p.Type, p.Description)

	table := newTable(w, []string{"#", "Step", "Action", "Example question"})
	for i, step := range p.Steps {
		question := ""
		if len(step.ExampleQuestions) > 0 {
			question = step.ExampleQuestions[0]
		}
		table.Append([]string{fmt.Sprintf("%d", i+1), step.Title, step.Action, question})
	}
	table.Render()
}
