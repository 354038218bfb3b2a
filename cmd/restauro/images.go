package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"restauro/internal/domain"
	"restauro/internal/imagecodec"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRestoreCmd(app *App) *cobra.Command {
	var (
		output      string
		mode        string
		instruction string
	)
	cmd := &cobra.Command{
		Use:   "restore <image>",
		Short: "Restore, colorize or enhance a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			payload, mime, err := imagecodec.ReadFile(args[0])
			if err != nil {
				return err
			}
			session, _, st, err := app.newSession(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			m := domain.NormalizeMode(strings.ToLower(mode))
			if m == domain.ModeCustom && strings.TrimSpace(instruction) == "" {
				return fmt.Errorf("unknown mode %q: use restore, colorize or enhance, or pass --instruction", mode)
			}

			session.Restore.Load(payload, mime)
			fmt.Fprintf(app.Out, "Processing %s (%s)...\n", args[0], m)
			started, err := session.Restore.Submit(ctx, m, instruction)
			if err != nil {
				return err
			}
			if !started {
				return fmt.Errorf("nothing to process")
			}
			snap := session.Restore.Snapshot()
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "-" + string(m)
			}
			path, err := imagecodec.WriteFile(output, snap.ProcessedPreview)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Saved: %s\n", path)
			if snap.Description != "" {
				fmt.Fprintf(app.Out, "%s\n", snap.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to <image>-<mode>)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(domain.ModeRestore), "restore, colorize, enhance or custom")
	cmd.Flags().StringVarP(&instruction, "instruction", "p", "", "edit instruction (overrides the mode preset)")
	return cmd
}

func newMergeCmd(app *App) *cobra.Command {
	var (
		output      string
		instruction string
		count       int
	)
	cmd := &cobra.Command{
		Use:   "merge <imageA> <imageB>",
		Short: "Merge two photos into one scene",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, mimeA, err := imagecodec.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, mimeB, err := imagecodec.ReadFile(args[1])
			if err != nil {
				return err
			}
			session, _, st, err := app.newSession(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			session.Merge.SetImageA(a, mimeA)
			session.Merge.SetImageB(b, mimeB)
			fmt.Fprintf(app.Out, "Merging %d variant(s)...\n", domain.ClampVariants(count))
			started, err := session.Merge.Submit(ctx, instruction, count)
			if err != nil {
				return err
			}
			if !started {
				return fmt.Errorf("--prompt is required")
			}
			return writeResults(app, output, "merge", session.Merge.Snapshot().Results.Items)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&instruction, "prompt", "p", "Merge both people into a single natural photo.", "merge instruction")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of variants (1-4)")
	return cmd
}

func newGenerateCmd(app *App) *cobra.Command {
	var (
		output string
		aspect string
		base   string
		count  int
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate images from a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			session, _, st, err := app.newSession(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			if base != "" {
				payload, mime, err := imagecodec.ReadFile(base)
				if err != nil {
					return err
				}
				session.Generate.SetBaseImage(payload, mime)
			}
			session.Generate.SetPrompt(strings.Join(args, " "))
			fmt.Fprintf(app.Out, "Generating %d image(s)...\n", domain.ClampVariants(count))
			if _, err := session.Generate.Submit(ctx, count, aspect); err != nil {
				return err
			}
			return writeResults(app, output, "generate", session.Generate.Snapshot().Results.Items)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().StringVar(&aspect, "aspect", domain.DefaultAspectRatio, "aspect ratio (1:1, 3:4, 4:3, 9:16, 16:9)")
	cmd.Flags().StringVar(&base, "base", "", "optional base image")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of images (1-4)")
	return cmd
}

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, remote, st, err := app.newSession(ctx)
			if err != nil {
				return err
			}
			defer st.close()

			text, err := remote.Chat(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, text)
			return nil
		},
	}
}

func writeResults(app *App, dir, prefix string, items []domain.ProcessResult) error {
	for i, it := range items {
		path, err := imagecodec.WriteFile(filepath.Join(dir, fmt.Sprintf("%s-%d", prefix, i+1)), it.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "Saved: %s\n", path)
	}
	return nil
}
