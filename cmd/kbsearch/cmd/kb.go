package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kbsearch/internal/output"
	"github.com/Aman-CERP/kbsearch/internal/registry"
)

func newAddCmd(a *app) *cobra.Command {
	var req registry.AddRequest

	cmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register a directory as a knowledge base",
		Long: `Register a directory as a knowledge base.

Names may contain letters, numbers, hyphens and underscores. The path must be
an existing directory unless --init is given, which creates it with a README.

Examples:
  kbsearch add notes ~/notes
  kbsearch add wiki ./wiki --description "team wiki" --ext .md --ext .txt
  kbsearch add scratch ~/scratch --init`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			req.Name, req.Path = args[0], args[1]

			kb, err := e.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Successf("Added knowledge base %s (%s)", kb.Name, kb.Path)
			out.Status("", "Run 'kbsearch index "+kb.Name+"' to build its index.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "Short description of the knowledge base")
	cmd.Flags().StringSliceVar(&req.Extensions, "ext", nil, "Indexed file extensions (repeatable, default from config)")
	cmd.Flags().BoolVar(&req.Init, "init", false, "Create the directory if it does not exist")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Unregister a knowledge base and delete its index",
		Long: `Unregister a knowledge base and delete its index.

The source directory is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			if err := e.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Removed knowledge base %s", args[0])
			return nil
		},
	}
}

func newEnableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Include a knowledge base in searches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			if err := e.Enable(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Enabled %s", args[0])
			return nil
		},
	}
}

func newDisableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Exclude a knowledge base from searches and index runs",
		Long: `Exclude a knowledge base from searches and from 'kbsearch index' without a name.

The index is kept, so enabling the base again makes it searchable at once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			if err := e.Disable(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Disabled %s", args[0])
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered knowledge bases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			kbs, err := e.List(cmd.Context())
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout()).KnowledgeBases(kbs, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show a knowledge base and its index statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			info, err := e.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return output.New(cmd.OutOrStdout()).Info(info, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
