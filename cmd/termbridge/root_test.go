//go:build unix

package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/termbridge/pkg/backend"
	"github.com/srg/termbridge/pkg/config"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestParseTestOptions(t *testing.T) {
	opts, err := parseTestOptions([]string{"allow-non-tty", "conerr"})
	require.NoError(t, err)
	assert.True(t, opts.allowNonTTY)
	assert.True(t, opts.conerr)
	assert.False(t, opts.plain)
	assert.False(t, opts.color)
}

func TestParseTestOptionsUnknown(t *testing.T) {
	_, err := parseTestOptions([]string{"frobnicate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-Xfrobnicate")
}

func TestParseTestOptionsPlainColorConflict(t *testing.T) {
	_, err := parseTestOptions([]string{"plain", "color"})
	assert.Error(t, err)
}

func TestPumpOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pump.BufferSize = 128
	cfg.Pump.PollTimeoutMs = 10

	opts := pumpOptions(cfg)
	assert.Equal(t, 128, opts.BufferSize)
	assert.Equal(t, 10, opts.PollTimeoutMs)
}

func TestRunBridgeWithoutProgram(t *testing.T) {
	flagShowKey = false
	flagTestOps = nil
	flagConfig = "/nonexistent/termbridge-test.yaml"

	err := runBridge(rootCmd, nil)
	assert.True(t, errors.Is(err, errUsage))
}

func TestVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		_ = rootCmd.Flags().Set("version", "false")
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "termbridge version")
}

func TestFormatUserErrorSpawnFailure(t *testing.T) {
	err := fmt.Errorf("session failed: %w", &backend.SpawnError{
		CreateFailed: true,
		Program:      "frob",
		Err:          errors.New("executable file not found in $PATH"),
	})
	assert.Equal(t, "Could not start 'frob': executable file not found in $PATH",
		formatUserError(err))
}

func TestFormatUserErrorPassthrough(t *testing.T) {
	assert.Equal(t, "plain failure", formatUserError(errors.New("plain failure")))
}

func TestConfigureLoggerFlagWins(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, rootCmd.Flags().Set("log-level", "debug"))
	defer func() { _ = rootCmd.Flags().Set("log-level", "") }()

	logger, err := configureLogger(rootCmd, cfg)
	require.NoError(t, err)
	assert.Equal(t, "debug", logger.GetLevel().String())
}

func TestConfigureLoggerRejectsBadLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, rootCmd.Flags().Set("log-level", "shout"))
	defer func() { _ = rootCmd.Flags().Set("log-level", "") }()

	_, err := configureLogger(rootCmd, cfg)
	assert.Error(t, err)
}

func TestDecodeCtrl(t *testing.T) {
	c, ok := decodeCtrl(0)
	require.True(t, ok)
	assert.Equal(t, byte('@'), c)

	c, ok = decodeCtrl(4) // Ctrl-D
	require.True(t, ok)
	assert.Equal(t, byte('D'), c)

	c, ok = decodeCtrl(27) // ESC
	require.True(t, ok)
	assert.Equal(t, byte('['), c)

	c, ok = decodeCtrl(127)
	require.True(t, ok)
	assert.Equal(t, byte('?'), c)

	_, ok = decodeCtrl('a')
	assert.False(t, ok)
}
