package cli

import (
	"context"

	"github.com/dmitrijs2005/autofill/internal/buildinfo"
	"github.com/dmitrijs2005/autofill/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the autofill command tree. Every subcommand gets an
// App built from the layered configuration before it runs; the returned
// func releases it.
func NewRootCommand() (*cobra.Command, func() error) {
	var app *App
	get := func() *App { return app }

	root := &cobra.Command{
		Use:           "autofill",
		Short:         "Fill web forms from saved profiles",
		Long:          "autofill stores named profiles of personal details and fills them into the forms of web pages, locally or through a websocket relay.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			app, err = NewApp(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newVersionCmd(),
		newPopupCmd(get),
		newFillCmd(get),
		newShortcutCmd(get),
		newMenuCmd(get),
		newRecordCmd(get),
		newCheckCmd(get),
		newExportCmd(get),
		newImportCmd(get),
		newProfilesCmd(get),
		newServeCmd(get),
		newAttachCmd(get),
	)
	return root, func() error { return app.Close() }
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Execute runs the command line until ctx ends.
func Execute(ctx context.Context, args []string) error {
	root, closeApp := NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	return err
}
