//go:build unix

package backend

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/termbridge/internal/cmdline"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openSession(t *testing.T, cfg Config) Session {
	t.Helper()
	s, err := Agent(testLogger()).Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenProvidesChannelHandles(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	assert.NotNil(t, s.InputPipe())
	assert.NotNil(t, s.OutputPipe())
	assert.Nil(t, s.ErrorPipe(), "no error channel unless requested")
}

func TestOpenWithConErr(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25, ConErr: true})
	assert.NotNil(t, s.ErrorPipe())
}

func TestSpawnUnknownProgram(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	_, err := s.Spawn(SpawnConfig{CommandLine: "no-such-program-termbridge"})
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.CreateFailed)
	assert.Equal(t, "no-such-program-termbridge", spawnErr.Program)
}

func TestSpawnEmptyCommandLine(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	_, err := s.Spawn(SpawnConfig{CommandLine: ""})
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.CreateFailed)
}

func TestSpawnExitCode(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	proc, err := s.Spawn(SpawnConfig{
		CommandLine: cmdline.Encode([]string{"sh", "-c", "exit 42"}),
		Env:         os.Environ(),
	})
	require.NoError(t, err)
	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, code)
}

func TestSpawnOutputReachesChannel(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	proc, err := s.Spawn(SpawnConfig{
		CommandLine: cmdline.Encode([]string{"sh", "-c", "printf hello"}),
		Env:         os.Environ(),
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	// The output channel delivers EOF once the child is gone and the pty
	// drains, so ReadAll terminates.
	got, err := io.ReadAll(s.OutputPipe())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestSpawnTwiceRejected(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	proc, err := s.Spawn(SpawnConfig{
		CommandLine: cmdline.Encode([]string{"sh", "-c", "exit 0"}),
		Env:         os.Environ(),
	})
	require.NoError(t, err)
	defer func() { _, _ = proc.Wait() }()

	_, err = s.Spawn(SpawnConfig{CommandLine: "sh"})
	assert.Error(t, err)
}

func TestCloseUnblocksOutputRead(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := s.OutputPipe().Read(buf)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		assert.Error(t, err, "blocked read must fail once the session closes")
		if !errors.Is(err, io.EOF) {
			assert.ErrorIs(t, err, os.ErrClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("read stayed blocked after close")
	}
}

func TestResizeValidation(t *testing.T) {
	s := openSession(t, Config{Cols: 80, Rows: 25})
	assert.NoError(t, s.Resize(120, 40))
	assert.Error(t, s.Resize(0, 40))
	assert.Error(t, s.Resize(120, -1))
}

func TestUnsupportedOptionsNamed(t *testing.T) {
	assert.Empty(t, unsupportedOptions(Config{MouseMode: MouseModeAuto}))
	assert.Equal(t,
		[]string{"mouse", "plain", "show-console"},
		unsupportedOptions(Config{MouseMode: MouseModeForce, Plain: true, ShowConsole: true}))
	assert.Equal(t, []string{"color"}, unsupportedOptions(Config{Color: true}))
}

func TestOpenLogsUnsupportedOptions(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s, err := Agent(logger).Open(Config{Cols: 80, Rows: 25, Plain: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	var found bool
	for _, e := range hook.AllEntries() {
		if opts, ok := e.Data["options"].([]string); ok {
			assert.Equal(t, logrus.DebugLevel, e.Level)
			assert.Contains(t, opts, "plain")
			found = true
		}
	}
	assert.True(t, found, "requested plain mode must be reported, not dropped silently")
}
