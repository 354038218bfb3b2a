package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"restauro/internal/imagecodec"
	"restauro/pkg/zip"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local restore history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved restorations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			items := st.history.List(cmd.Context())
			if len(items) == 0 {
				fmt.Fprintln(app.Out, "No history.")
				return nil
			}
			tw := tabwriter.NewWriter(app.Out, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tWHEN\tSIZE")
			for _, it := range items {
				blob, _, _ := imagecodec.Decode(it.Processed)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Mode, humanize.Time(it.Timestamp), humanize.Bytes(uint64(len(blob))))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			if !st.history.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("no history entry %s", args[0])
			}
			fmt.Fprintf(app.Out, "Deleted %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file.zip>",
		Short: "Write every history image pair into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			items := st.history.List(cmd.Context())
			assets := make([]zip.Asset, 0, len(items)*2)
			for _, it := range items {
				for _, side := range []struct {
					name    string
					payload string
				}{{"original", it.Original}, {"processed", it.Processed}} {
					blob, mime, err := imagecodec.Decode(side.payload)
					if err != nil {
						fmt.Fprintf(app.Err, "Warning: skipping %s %s: %v\n", it.ID, side.name, err)
						continue
					}
					assets = append(assets, zip.Asset{
						Filename: fmt.Sprintf("%s-%s%s", it.ID, side.name, imagecodec.Extension(mime)),
						MIME:     mime,
						Data:     blob,
						Modified: it.Timestamp,
					})
				}
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := zip.WriteArchive(f, assets); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Exported %d file(s) to %s (%s)\n", len(assets), args[0], humanize.Bytes(uint64(info.Size())))
			return nil
		},
	})

	return cmd
}
