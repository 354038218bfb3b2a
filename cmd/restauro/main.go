package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"restauro/internal/client"
	"restauro/internal/infra"
	"restauro/internal/persistence"
	"restauro/internal/workflow"
)

var (
	version = "dev"
	commit  = "none"
)

// Remote is what the CLI needs from the server.
type Remote interface {
	workflow.Remote
	Chat(ctx context.Context, message string) (string, error)
}

type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	GetEnv func(string) string
	// NewRemote builds the server client. locale reports the current
	// language setting.
	NewRemote  func(baseURL string, locale func() string) Remote
	IsTerminal func() bool

	server    string
	store     string
	storePath string
	quota     int64
	logger    infra.Logger
}

func DefaultApp() *App {
	return &App{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		GetEnv: os.Getenv,
		NewRemote: func(baseURL string, locale func() string) Remote {
			return client.New(client.Options{BaseURL: baseURL, Locale: locale})
		},
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		logger:     infra.NewLogger("cli"),
	}
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(DefaultApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(app *App, key, fallback string) string {
	if v := strings.TrimSpace(app.GetEnv(key)); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restauro",
		Short: "Restore, merge and generate photos through the restauro API",
		Long: `restauro restores old photos, merges two photos and generates new
images by talking to a restauro API server.

Examples:
  restauro restore grandma.jpg -o grandma-restored.png
  restauro restore scan.png --mode colorize -o color.png
  restauro merge a.jpg b.jpg -n 2 -p "put them in the same room" -o merged/
  restauro generate "a lighthouse at dawn" --aspect 16:9 -n 3 -o out/
  restauro shell`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	home, _ := os.UserHomeDir()
	cmd.PersistentFlags().StringVar(&app.server, "server", envOr(app, "RESTAURO_SERVER", client.DefaultBaseURL), "restauro API base URL")
	cmd.PersistentFlags().StringVar(&app.store, "store", envOr(app, "RESTAURO_STORE", "file"), "local state backend (file, sqlite, postgres)")
	cmd.PersistentFlags().StringVar(&app.storePath, "store-path", envOr(app, "RESTAURO_STORE_PATH", filepath.Join(home, ".restauro")), "directory for local state")
	cmd.PersistentFlags().Int64Var(&app.quota, "store-quota", 5<<20, "byte quota of the file backend (0 disables it)")

	cmd.AddCommand(
		newRestoreCmd(app),
		newMergeCmd(app),
		newGenerateCmd(app),
		newChatCmd(app),
		newHistoryCmd(app),
		newSettingsCmd(app),
		newShellCmd(app),
	)
	return cmd
}

// state is the opened local persistence.
type state struct {
	adapter  *persistence.Adapter
	history  *persistence.History
	settings *persistence.SettingsStore
	close    func()
}

func (app *App) openState(ctx context.Context) (*state, error) {
	var (
		backend persistence.Backend
		closeFn = func() {}
	)
	switch strings.ToLower(app.store) {
	case "file", "":
		fs, err := persistence.NewFileStore(app.storePath, app.quota)
		if err != nil {
			return nil, err
		}
		backend = fs
	case "sqlite":
		db, err := persistence.NewSQLiteStore(filepath.Join(app.storePath, "state.db"))
		if err != nil {
			return nil, err
		}
		backend = db
		closeFn = func() { _ = db.Close() }
	case "postgres":
		url := strings.TrimSpace(app.GetEnv("DATABASE_URL"))
		if url == "" {
			return nil, fmt.Errorf("--store postgres needs DATABASE_URL")
		}
		pool, err := infra.NewDBPool(ctx, url)
		if err != nil {
			return nil, err
		}
		pg := persistence.NewPostgresStore(infra.NewSQLRunner(pool, app.logger))
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate client_kv: %w", err)
		}
		backend = pg
		closeFn = pool.Close
	default:
		return nil, fmt.Errorf("unknown store %q (file, sqlite, postgres)", app.store)
	}

	adapter := persistence.NewAdapter(backend, &app.logger)
	return &state{
		adapter:  adapter,
		history:  persistence.NewHistory(adapter),
		settings: persistence.NewSettingsStore(adapter),
		close:    closeFn,
	}, nil
}

// newSession opens local state and a session wired to the server.
func (app *App) newSession(ctx context.Context) (*workflow.Session, Remote, *state, error) {
	st, err := app.openState(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	var session *workflow.Session
	remote := app.NewRemote(app.server, func() string {
		if session == nil {
			return ""
		}
		return session.Settings().Language
	})
	session = workflow.NewSession(ctx, remote, st.settings, st.history)
	return session, remote, st, nil
}
