package cmd

import "github.com/spf13/cobra"

// Command annotations read by app.setup.
const (
	annotationNoSetup = "kbsearch/no-setup"
	annotationServe   = "kbsearch/serve"
)

// commands is the complete command table. New commands are added here.
func commands(a *app) []*cobra.Command {
	return []*cobra.Command{
		newAddCmd(a),
		newRemoveCmd(a),
		newEnableCmd(a),
		newDisableCmd(a),
		newListCmd(a),
		newInfoCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newStatusCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	}
}
