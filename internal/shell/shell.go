// Package shell is an interactive line-oriented front end for a
// workflow.Session.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"restauro/internal/workflow"
)

type Shell struct {
	in       io.Reader
	out      io.Writer
	err      io.Writer
	session  *workflow.Session
	commands map[string]*command
	ordered  []*command
	// focus is the result set next/prev/select act on.
	focus workflow.Source
	// active is the workflow touched last; save writes its current image.
	active  workflow.Source
	running bool
	quiet   bool
}

type Config struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Session *workflow.Session
	// Quiet drops the welcome text and the prompt, for piped input.
	Quiet bool
}

func New(cfg *Config) *Shell {
	s := &Shell{
		in:       cfg.In,
		out:      cfg.Out,
		err:      cfg.Err,
		session:  cfg.Session,
		commands: make(map[string]*command),
		focus:    workflow.SourceGenerate,
		active:   workflow.SourceRestore,
		quiet:    cfg.Quiet,
	}
	s.registerCommands()
	return s
}

func (s *Shell) Run(ctx context.Context) error {
	s.running = true
	s.printWelcome()

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for s.running {
		s.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := s.execute(ctx, line); err != nil {
			fmt.Fprintf(s.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (s *Shell) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	cmd, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", name)
	}
	return cmd.run(ctx, s, parts[1:])
}

func (s *Shell) Stop() {
	s.running = false
}

func (s *Shell) printWelcome() {
	if s.quiet {
		return
	}
	fmt.Fprintln(s.out, "restauro interactive mode")
	fmt.Fprintln(s.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(s.out)
}

func (s *Shell) printPrompt() {
	if banner := s.session.Banner(); banner != "" {
		fmt.Fprintf(s.out, "[!] %s (type 'dismiss' to clear)\n", banner)
	}
	if s.quiet {
		return
	}
	snap := s.session.Restore.Snapshot()
	if snap.OriginalPreview != "" {
		fmt.Fprintf(s.out, "restauro [%s undo:%d redo:%d]> ", s.focus, len(snap.History), len(snap.Future))
		return
	}
	fmt.Fprintf(s.out, "restauro [%s]> ", s.focus)
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
