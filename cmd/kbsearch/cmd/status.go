package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kbsearch/internal/output"
	"github.com/Aman-CERP/kbsearch/internal/ui"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		format  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show every knowledge base with its index state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			st, err := e.Status(cmd.Context())
			if err != nil {
				return err
			}
			if f == output.FormatJSON {
				return output.New(cmd.OutOrStdout()).JSON(st)
			}
			return ui.NewStatusRenderer(cmd.OutOrStdout(), noColor).Render(statusInfo(st))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

func statusInfo(st *kbsearch.Status) ui.StatusInfo {
	info := ui.StatusInfo{
		Total:     st.TotalKnowledgeBases,
		Enabled:   st.Enabled,
		Disabled:  st.Disabled,
		Documents: st.TotalDocuments,
		Bases:     make([]ui.BaseRow, 0, len(st.KnowledgeBases)),
	}
	for _, b := range st.KnowledgeBases {
		info.Bases = append(info.Bases, ui.BaseRow{
			Name:        b.Name,
			Enabled:     b.Enabled,
			Documents:   b.Documents,
			Path:        b.Path,
			LastIndexed: b.LastIndexedAt,
		})
	}
	return info
}
