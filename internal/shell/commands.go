package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"restauro/internal/domain"
	"restauro/internal/imagecodec"
	"restauro/internal/workflow"
)

type command struct {
	name    string
	aliases []string
	usage   string
	desc    string
	run     func(ctx context.Context, s *Shell, args []string) error
}

func (s *Shell) registerCommands() {
	commands := []*command{
		{name: "open", aliases: []string{"o", "load"}, usage: "open <file> [restore|a|b|base]", desc: "Load an image into a workflow", run: runOpen},
		{name: "restore", aliases: []string{"r"}, usage: "restore [restore|colorize|enhance] [instruction...]", desc: "Process the working image", run: runRestore},
		{name: "accept", aliases: []string{"ok"}, usage: "accept", desc: "Keep the processed image as the new working image", run: runAccept},
		{name: "undo", aliases: []string{"u"}, usage: "undo", desc: "Go back to the previous working image", run: runUndo},
		{name: "redo", usage: "redo", desc: "Re-apply an undone image", run: runRedo},
		{name: "merge", aliases: []string{"m"}, usage: "merge [n=<count>] <instruction...>", desc: "Merge images a and b", run: runMerge},
		{name: "generate", aliases: []string{"gen", "g"}, usage: "generate [n=<count>] [aspect=<ratio>] <prompt...>", desc: "Generate images from a prompt", run: runGenerate},
		{name: "refine", usage: "refine <instruction...>", desc: "Regenerate the current generated image", run: runRefine},
		{name: "next", aliases: []string{"n"}, usage: "next", desc: "Show the next result", run: runNext},
		{name: "prev", aliases: []string{"p"}, usage: "prev", desc: "Show the previous result", run: runPrev},
		{name: "select", usage: "select <number>", desc: "Jump to a result", run: runSelect},
		{name: "view", aliases: []string{"show"}, usage: "view [restore|merge|generate]", desc: "Open the viewer on the current result", run: runView},
		{name: "save", aliases: []string{"s"}, usage: "save <file>", desc: "Write the current image of the last used workflow to disk", run: runSave},
		{name: "history", aliases: []string{"h"}, usage: "history", desc: "List saved restorations", run: runHistory},
		{name: "reset", usage: "reset", desc: "Clear every workflow", run: runReset},
		{name: "dismiss", usage: "dismiss", desc: "Clear the error banner", run: runDismiss},
		{name: "status", aliases: []string{"st"}, usage: "status", desc: "Show workflow state", run: runStatus},
		{name: "help", aliases: []string{"?"}, usage: "help", desc: "Show this help", run: runHelp},
		{name: "quit", aliases: []string{"exit", "q"}, usage: "quit", desc: "Leave the shell", run: runQuit},
	}

	for _, cmd := range commands {
		s.ordered = append(s.ordered, cmd)
		s.commands[cmd.name] = cmd
		for _, alias := range cmd.aliases {
			s.commands[alias] = cmd
		}
	}
}

func usage(c string) error {
	return fmt.Errorf("usage: %s", c)
}

// splitOptions separates leading key=value options from the free text.
func splitOptions(args []string) (map[string]string, string) {
	opts := map[string]string{}
	i := 0
	for ; i < len(args); i++ {
		key, value, ok := strings.Cut(args[i], "=")
		if !ok || key == "" || strings.ContainsAny(key, " ") {
			break
		}
		opts[strings.ToLower(key)] = value
	}
	return opts, strings.Join(args[i:], " ")
}

func countOption(opts map[string]string) (int, error) {
	raw, ok := opts["n"]
	if !ok {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return domain.ClampVariants(n), nil
}

func runOpen(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return usage("open <file> [restore|a|b|base]")
	}
	payload, mime, err := imagecodec.ReadFile(args[0])
	if err != nil {
		return err
	}
	target := "restore"
	if len(args) > 1 {
		target = strings.ToLower(args[1])
	}
	switch target {
	case "restore":
		s.session.Restore.Load(payload, mime)
		s.active = workflow.SourceRestore
	case "a":
		s.session.Merge.SetImageA(payload, mime)
	case "b":
		s.session.Merge.SetImageB(payload, mime)
	case "base":
		s.session.Generate.SetBaseImage(payload, mime)
	default:
		return fmt.Errorf("unknown target %q", target)
	}
	fmt.Fprintf(s.out, "Loaded %s (%s) into %s\n", args[0], mime, target)
	return nil
}

func runRestore(ctx context.Context, s *Shell, args []string) error {
	mode := domain.ModeRestore
	if len(args) > 0 {
		if m := domain.NormalizeMode(strings.ToLower(args[0])); m != domain.ModeCustom {
			mode = m
			args = args[1:]
		} else {
			mode = domain.ModeCustom
		}
	}
	fmt.Fprintln(s.out, "Processing...")
	started, err := s.session.Restore.Submit(ctx, mode, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !started {
		return errors.New("nothing to process: open an image and give an instruction")
	}
	s.active = workflow.SourceRestore
	snap := s.session.Restore.Snapshot()
	if snap.ProcessedPreview == "" {
		return nil
	}
	fmt.Fprintln(s.out, "Done. Type 'accept' to keep it or 'save <file>' to export it.")
	if snap.Description != "" {
		fmt.Fprintf(s.out, "  %s\n", snap.Description)
	}
	return nil
}

func runAccept(ctx context.Context, s *Shell, args []string) error {
	if !s.session.Restore.Accept() {
		return errors.New("no processed image to accept")
	}
	s.active = workflow.SourceRestore
	fmt.Fprintln(s.out, "Accepted.")
	return nil
}

func runUndo(ctx context.Context, s *Shell, args []string) error {
	if !s.session.Restore.Undo() {
		return errors.New("nothing to undo")
	}
	s.active = workflow.SourceRestore
	fmt.Fprintln(s.out, "Undone.")
	return nil
}

func runRedo(ctx context.Context, s *Shell, args []string) error {
	if !s.session.Restore.Redo() {
		return errors.New("nothing to redo")
	}
	s.active = workflow.SourceRestore
	fmt.Fprintln(s.out, "Redone.")
	return nil
}

func runMerge(ctx context.Context, s *Shell, args []string) error {
	opts, instruction := splitOptions(args)
	count, err := countOption(opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Merging (%d variant(s))...\n", count)
	started, err := s.session.Merge.Submit(ctx, instruction, count)
	if err != nil {
		return err
	}
	if !started {
		return errors.New("merge needs images a and b and an instruction")
	}
	s.focus, s.active = workflow.SourceMerge, workflow.SourceMerge
	printResults(s, s.session.Merge.Snapshot().Results)
	return nil
}

func runGenerate(ctx context.Context, s *Shell, args []string) error {
	opts, prompt := splitOptions(args)
	if strings.TrimSpace(prompt) == "" {
		return usage("generate [n=<count>] [aspect=<ratio>] <prompt...>")
	}
	count, err := countOption(opts)
	if err != nil {
		return err
	}
	s.session.Generate.SetPrompt(prompt)
	fmt.Fprintf(s.out, "Generating (%d variant(s))...\n", count)
	if _, err := s.session.Generate.Submit(ctx, count, opts["aspect"]); err != nil {
		return err
	}
	s.focus, s.active = workflow.SourceGenerate, workflow.SourceGenerate
	printResults(s, s.session.Generate.Snapshot().Results)
	return nil
}

func runRefine(ctx context.Context, s *Shell, args []string) error {
	if len(args) == 0 {
		return usage("refine <instruction...>")
	}
	fmt.Fprintln(s.out, "Refining...")
	started, err := s.session.Generate.Refine(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !started {
		return errors.New("no generated image to refine")
	}
	s.focus, s.active = workflow.SourceGenerate, workflow.SourceGenerate
	printResults(s, s.session.Generate.Snapshot().Results)
	return nil
}

func runNext(ctx context.Context, s *Shell, args []string) error {
	return navigate(s, 1)
}

func runPrev(ctx context.Context, s *Shell, args []string) error {
	return navigate(s, -1)
}

func navigate(s *Shell, dir int) error {
	if _, ok := s.session.Navigate(s.focus, dir); !ok {
		return fmt.Errorf("no %s results", s.focus)
	}
	s.active = s.focus
	printPosition(s)
	return nil
}

func runSelect(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 1 {
		return usage("select <number>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number %q", args[0])
	}
	if n < 1 || n > focusedResults(s).Len() {
		return fmt.Errorf("no result %d", n)
	}
	s.session.Select(s.focus, n-1)
	s.active = s.focus
	printPosition(s)
	return nil
}

func runView(ctx context.Context, s *Shell, args []string) error {
	source := s.focus
	if len(args) > 0 {
		switch workflow.Source(strings.ToLower(args[0])) {
		case workflow.SourceRestore, workflow.SourceMerge, workflow.SourceGenerate:
			source = workflow.Source(strings.ToLower(args[0]))
		default:
			return usage("view [restore|merge|generate]")
		}
	}
	if !s.session.View(source) {
		return fmt.Errorf("nothing to view in %s", source)
	}
	if source != workflow.SourceRestore {
		s.focus = source
	}
	s.active = source
	v := s.session.Viewer()
	_, mime := imagecodec.ToRawPayload(v.Payload)
	fmt.Fprintf(s.out, "Viewing %s image (%s, %d bytes encoded)\n", v.Source, mime, len(v.Payload))
	return nil
}

func runSave(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 1 {
		return usage("save <file>")
	}
	payload, ok := s.session.Current(s.active)
	if !ok {
		return fmt.Errorf("nothing to save in %s", s.active)
	}
	path, err := imagecodec.WriteFile(args[0], payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved: %s\n", path)
	return nil
}

func runHistory(ctx context.Context, s *Shell, args []string) error {
	items := s.session.History(ctx)
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No history.")
		return nil
	}
	for i, it := range items {
		fmt.Fprintf(s.out, "%2d. %s  %-9s %s\n", i+1, it.Timestamp.Format("2006-01-02 15:04"), it.Mode, it.ID)
	}
	return nil
}

func runReset(ctx context.Context, s *Shell, args []string) error {
	s.session.Reset()
	s.focus = workflow.SourceGenerate
	fmt.Fprintln(s.out, "Cleared.")
	return nil
}

func runDismiss(ctx context.Context, s *Shell, args []string) error {
	s.session.DismissError()
	return nil
}

func runStatus(ctx context.Context, s *Shell, args []string) error {
	r := s.session.Restore.Snapshot()
	m := s.session.Merge.Snapshot()
	g := s.session.Generate.Snapshot()
	fmt.Fprintf(s.out, "restore:  %-10s image=%t processed=%t undo=%d redo=%d\n",
		r.Status, r.OriginalPreview != "", r.ProcessedPreview != "", len(r.History), len(r.Future))
	fmt.Fprintf(s.out, "merge:    %-10s a=%t b=%t results=%d\n", m.Status, m.ImageA != "", m.ImageB != "", m.Results.Len())
	fmt.Fprintf(s.out, "generate: %-10s prompt=%q base=%t results=%d\n", g.Status, g.Prompt, g.BaseImage != "", g.Results.Len())
	settings := s.session.Settings()
	fmt.Fprintf(s.out, "settings: theme=%s language=%s model=%s\n", settings.Theme, settings.Language, settings.PreferredModel)
	return nil
}

func runHelp(ctx context.Context, s *Shell, args []string) error {
	fmt.Fprintln(s.out, "Commands:")
	for _, cmd := range s.ordered {
		fmt.Fprintf(s.out, "  %-52s %s\n", cmd.usage, cmd.desc)
	}
	return nil
}

func runQuit(ctx context.Context, s *Shell, args []string) error {
	s.Stop()
	fmt.Fprintln(s.out, "Goodbye.")
	return nil
}

func focusedResults(s *Shell) workflow.Results {
	if s.focus == workflow.SourceMerge {
		return s.session.Merge.Snapshot().Results
	}
	return s.session.Generate.Snapshot().Results
}

func printPosition(s *Shell) {
	r := focusedResults(s)
	fmt.Fprintf(s.out, "%s result %d/%d\n", s.focus, r.Index+1, r.Len())
}

func printResults(s *Shell, r workflow.Results) {
	fmt.Fprintf(s.out, "%d result(s). Use next/prev/select and save <file>.\n", r.Len())
}
