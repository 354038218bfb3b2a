package main

import (
	"github.com/spf13/cobra"

	"restauro/internal/shell"
)

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive editing session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			session, _, st, err := app.newSession(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			sh := shell.New(&shell.Config{
				In:      app.In,
				Out:     app.Out,
				Err:     app.Err,
				Session: session,
				Quiet:   app.IsTerminal != nil && !app.IsTerminal(),
			})
			return sh.Run(ctx)
		},
	}
}
