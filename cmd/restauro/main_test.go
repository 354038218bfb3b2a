package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"restauro/internal/domain"
	"restauro/internal/infra"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngPayload(tag byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(append(append([]byte(nil), pngHeader...), tag))
}

// mockRemote implements Remote for testing.
type mockRemote struct {
	restoreReqs []domain.RestoreRequest
	locale      func() string
}

func (m *mockRemote) Restore(_ context.Context, req domain.RestoreRequest) (domain.ProcessResult, error) {
	m.restoreReqs = append(m.restoreReqs, req)
	return domain.ProcessResult{Payload: pngPayload(1), Description: "cleaned up"}, nil
}

func (m *mockRemote) Merge(_ context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error) {
	out := make([]domain.ProcessResult, req.Count)
	for i := range out {
		out[i] = domain.ProcessResult{Payload: pngPayload(byte(i))}
	}
	return out, nil
}

func (m *mockRemote) Generate(_ context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error) {
	out := make([]domain.ProcessResult, req.Count)
	for i := range out {
		out[i] = domain.ProcessResult{Payload: pngPayload(byte(10 + i))}
	}
	return out, nil
}

func (m *mockRemote) Chat(_ context.Context, message string) (string, error) {
	return "echo: " + message + " (" + m.locale() + ")", nil
}

// newTestApp creates an App configured for testing.
func newTestApp(t *testing.T, out *bytes.Buffer) (*App, *mockRemote) {
	t.Helper()
	remote := &mockRemote{}
	return &App{
		In:     strings.NewReader(""),
		Out:    out,
		Err:    out,
		GetEnv: func(string) string { return "" },
		NewRemote: func(_ string, locale func() string) Remote {
			remote.locale = locale
			return remote
		},
		IsTerminal: func() bool { return false },
		logger:     infra.Logger(zerolog.Nop()),
	}, remote
}

func run(t *testing.T, app *App, args ...string) error {
	t.Helper()
	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	return cmd.ExecuteContext(context.Background())
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(append([]byte(nil), pngHeader...), 0, 0, 0, 0), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRestoreWritesOutputAndHistory(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	app, remote := newTestApp(t, out)
	in := writeInput(t, dir, "photo.png")

	if err := run(t, app, "--store-path", dir, "restore", in, "--mode", "colorize", "-o", filepath.Join(dir, "result")); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "result.png")); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if len(remote.restoreReqs) != 1 || remote.restoreReqs[0].Instruction != domain.ModeColorize.Instruction() {
		t.Fatalf("unexpected requests: %+v", remote.restoreReqs)
	}
	if !strings.Contains(out.String(), "cleaned up") {
		t.Fatalf("description not printed: %q", out.String())
	}

	out.Reset()
	if err := run(t, app, "--store-path", dir, "history", "list"); err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out.String(), string(domain.ModeColorize)) {
		t.Fatalf("history list missing entry: %q", out.String())
	}
}

func TestRestoreRejectsUnknownModeWithoutInstruction(t *testing.T) {
	dir := t.TempDir()
	app, remote := newTestApp(t, &bytes.Buffer{})
	in := writeInput(t, dir, "photo.png")

	err := run(t, app, "--store-path", dir, "restore", in, "--mode", "sharpen")
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("expected unknown mode error, got %v", err)
	}
	if len(remote.restoreReqs) != 0 {
		t.Fatalf("remote should not be called")
	}
}

func TestMergeAndGenerateWriteEveryVariant(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, &bytes.Buffer{})
	a := writeInput(t, dir, "a.png")
	b := writeInput(t, dir, "b.png")
	outDir := filepath.Join(dir, "out")

	if err := run(t, app, "--store-path", dir, "merge", a, b, "-n", "2", "-o", outDir); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := run(t, app, "--store-path", dir, "generate", "a", "lighthouse", "-n", "9", "-o", outDir); err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []string{"merge-1.png", "merge-2.png", "generate-1.png", "generate-4.png"}
	for _, name := range want {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "generate-5.png")); err == nil {
		t.Errorf("count should be clamped to %d", domain.MaxVariants)
	}
}

func TestSettingsSetChangesLocale(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	app, _ := newTestApp(t, out)

	if err := run(t, app, "--store-path", dir, "settings", "set", "language", "en-US"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	out.Reset()
	if err := run(t, app, "--store-path", dir, "chat", "hello"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "echo: hello (en)" {
		t.Fatalf("chat output = %q", got)
	}

	if err := run(t, app, "--store-path", dir, "settings", "set", "theme", "purple"); err == nil {
		t.Fatal("expected invalid theme to fail")
	}
}

func TestHistoryExportWritesZip(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, &bytes.Buffer{})
	in := writeInput(t, dir, "photo.png")
	if err := run(t, app, "--store-path", dir, "restore", in, "-o", filepath.Join(dir, "r")); err != nil {
		t.Fatalf("restore: %v", err)
	}

	archive := filepath.Join(dir, "history.zip")
	if err := run(t, app, "--store-path", dir, "history", "export", archive); err != nil {
		t.Fatalf("export: %v", err)
	}
	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 {
		t.Fatalf("zip entries = %d, want 2", len(zr.File))
	}
}

func TestSQLiteStoreBackend(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	app, _ := newTestApp(t, out)

	if err := run(t, app, "--store", "sqlite", "--store-path", dir, "settings", "set", "model", "gemini-test"); err != nil {
		t.Fatalf("settings set: %v", err)
	}
	out.Reset()
	if err := run(t, app, "--store", "sqlite", "--store-path", dir, "settings", "show"); err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if !strings.Contains(out.String(), "gemini-test") {
		t.Fatalf("model not persisted: %q", out.String())
	}
}

func TestUnknownStoreFails(t *testing.T) {
	app, _ := newTestApp(t, &bytes.Buffer{})
	err := run(t, app, "--store", "redis", "--store-path", t.TempDir(), "settings", "show")
	if err == nil || !strings.Contains(err.Error(), "unknown store") {
		t.Fatalf("expected unknown store error, got %v", err)
	}
}

func TestShellRunsPipedCommands(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}
	app, _ := newTestApp(t, out)
	app.In = strings.NewReader("generate n=2 a cat\nnext\nquit\n")

	if err := run(t, app, "--store-path", dir, "shell"); err != nil {
		t.Fatalf("shell: %v", err)
	}
	if strings.Contains(out.String(), "interactive mode") {
		t.Fatalf("piped shell should be quiet: %q", out.String())
	}
}
