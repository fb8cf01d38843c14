package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clarabennett2626/logtail/internal/config"
	"github.com/clarabennett2626/logtail/internal/source"
	"github.com/clarabennett2626/logtail/internal/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer and one polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testEnv(src source.Source, stdout, stderr *syncBuffer) runEnv {
	return runEnv{
		fs:     afero.NewOsFs(),
		stdout: stdout,
		stderr: stderr,
		newSource: func(logrus.FieldLogger) (source.Source, error) {
			return src, nil
		},
	}
}

func execute(t *testing.T, ctx context.Context, env runEnv, args ...string) error {
	t.Helper()
	cmd := newRootCommand(env)
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(ctx)
}

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestRun_MissingDirectory(t *testing.T) {
	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env, file)
	assert.ErrorIs(t, err, config.ErrNotDirectory)
}

func TestRun_NoDirectory(t *testing.T) {
	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env)
	assert.ErrorIs(t, err, config.ErrNoDirectory)
}

func TestRun_TooManyArgs(t *testing.T) {
	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env, t.TempDir(), t.TempDir())
	require.Error(t, err)
}

func TestRun_TUIRequiresTerminal(t *testing.T) {
	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env, "--tui", t.TempDir())
	assert.ErrorIs(t, err, errNoTerminal)
}

func TestRun_WatcherInitFailure(t *testing.T) {
	env := testEnv(nil, &syncBuffer{}, &syncBuffer{})
	env.newSource = func(logrus.FieldLogger) (source.Source, error) {
		return nil, errors.New("too many open files")
	}
	err := execute(t, context.Background(), env, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializing watcher")
}

func TestRun_TailsDirectory(t *testing.T) {
	dir := t.TempDir()
	aLog := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(aLog, []byte("written before startup\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("ignored"), 0o644))

	src := source.NewManualSource()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	env := testEnv(src, stdout, stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- execute(t, ctx, env, "--cooldown=0", "--log-level=debug", dir) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Press Ctrl+C to stop")
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, dir, src.Root())

	waitOutput := func(want string) {
		t.Helper()
		require.Eventually(t, func() bool {
			return strings.Contains(stdout.String(), want)
		}, 3*time.Second, 10*time.Millisecond, "waiting for %q in %q", want, stdout.String())
	}

	appendTo(t, aLog, "hello")
	require.NoError(t, src.Send(ctx, source.Notification{Kind: source.Modified, Paths: []string{aLog}}))
	waitOutput("📝 a.log: hello")

	bLog := filepath.Join(dir, "b.log")
	require.NoError(t, os.WriteFile(bLog, nil, 0o644))
	require.NoError(t, src.Send(ctx, source.Notification{Kind: source.Created, Paths: []string{bLog}}))
	waitOutput("➕ New log file detected: " + bLog)

	appendTo(t, bLog, "x")
	require.NoError(t, src.Send(ctx, source.Notification{Kind: source.Modified, Paths: []string{bLog}}))
	waitOutput("📝 b.log: x")

	cTxt := filepath.Join(dir, "c.txt")
	appendTo(t, cTxt, "more")
	require.NoError(t, src.Send(ctx, source.Notification{Kind: source.Modified, Paths: []string{cTxt}}))

	require.NoError(t, os.Remove(bLog))
	require.NoError(t, src.Send(ctx, source.Notification{Kind: source.Removed, Paths: []string{bLog}}))
	waitOutput("➖ Removed log file: " + bLog)

	require.NoError(t, src.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after the source closed")
	}

	out := stdout.String()
	assert.NotContains(t, out, "written before startup")
	assert.NotContains(t, out, "c.txt")
	assert.Less(t, strings.Index(out, "📝 a.log: hello"), strings.Index(out, "➕ New log file detected"))
	assert.Less(t, strings.Index(out, "📝 b.log: x"), strings.Index(out, "➖ Removed log file"))

	diag := stderr.String()
	assert.Contains(t, diag, "tracking file")
	assert.Contains(t, diag, "stopped tracking file")
	assert.NotContains(t, diag, "hello", "diagnostics report sizes, not content")
}

func TestRun_CancelIsGraceful(t *testing.T) {
	src := source.NewManualSource()
	env := testEnv(src, &syncBuffer{}, &syncBuffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- execute(t, ctx, env, t.TempDir()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestRun_ConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "logtail.yaml")
	yaml := "directory: " + filepath.Join(dir, "missing") + "\n" +
		"extension: txt\n" +
		"tui: true\n" +
		"logLevel: debug\n" +
		"logFormat: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	src := source.NewManualSource()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	env := testEnv(src, stdout, stderr)

	// A cancelled context makes run return right after the initial scan.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := execute(t, ctx, env, "--config", cfgPath, "--tui=false", "-e", "out", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, src.Root())
	assert.Contains(t, stdout.String(), "Watching for changes in "+dir)
	assert.Contains(t, stderr.String(), `"extension":".out"`)
	assert.NotContains(t, stderr.String(), "txt")
}

func TestRun_BadConfigFile(t *testing.T) {
	env := testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{})
	err := execute(t, context.Background(), env, "--config", filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
	require.Error(t, err)
}

func TestVersionFlag(t *testing.T) {
	cmd := newRootCommand(testEnv(source.NewManualSource(), &syncBuffer{}, &syncBuffer{}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), version)
}

func TestRenderConfig(t *testing.T) {
	assert.Equal(t, tui.DefaultConfig(), renderConfig(config.Default()))

	cfg := config.Default()
	cfg.Theme = "light"
	cfg.Plain = true
	cfg.StripANSI = true
	got := renderConfig(cfg)
	assert.Equal(t, tui.ThemeLight, got.Theme)
	assert.True(t, got.Plain)
	assert.Equal(t, tui.ANSIStrip, got.ANSIMode)
}
