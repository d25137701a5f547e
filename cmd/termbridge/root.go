//go:build unix

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srg/termbridge/internal/pump"
	"github.com/srg/termbridge/pkg/backend"
	"github.com/srg/termbridge/pkg/config"
	"github.com/srg/termbridge/session"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "termbridge [options] [--] program [args...]",
	Short: "Run a console program behind this terminal",
	Long: `termbridge runs a program inside an emulated console and bridges its
input and output to the current terminal.

The terminal is switched to raw mode for the duration of the session, window
resizes are forwarded to the emulated console, and the bridge exits with the
program's own exit code.`,
	Version: formatVersion(version),
	Args:    cobra.ArbitraryArgs,
	RunE:    runBridge,
}

var (
	flagMouse   bool
	flagShowKey bool
	flagConfig  string
	flagTestOps []string
)

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	// Everything after the program name belongs to the child.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.Flags().BoolVar(&flagMouse, "mouse", false, "Enable terminal mouse input")
	rootCmd.Flags().BoolVar(&flagShowKey, "showkey", false, "Dump STDIN escape sequences")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "",
		"Settings file (default $HOME/"+config.FileName+")")

	// Diagnostics switches, spelled -Xallow-non-tty, -Xconerr, -Xplain,
	// -Xcolor. Not part of the supported surface.
	rootCmd.Flags().StringArrayVarP(&flagTestOps, "test-option", "X", nil, "Diagnostics switch")
	_ = rootCmd.Flags().MarkHidden("test-option")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}

// testOptions are the hidden -X switches.
type testOptions struct {
	allowNonTTY bool
	conerr      bool
	plain       bool
	color       bool
}

func parseTestOptions(vals []string) (testOptions, error) {
	var opts testOptions
	for _, v := range vals {
		switch v {
		case "allow-non-tty":
			opts.allowNonTTY = true
		case "conerr":
			opts.conerr = true
		case "plain":
			opts.plain = true
		case "color":
			opts.color = true
		default:
			return opts, fmt.Errorf("unrecognized option: '-X%s'", v)
		}
	}
	if opts.plain && opts.color {
		return opts, fmt.Errorf("-Xplain and -Xcolor are mutually exclusive")
	}
	return opts, nil
}

// pumpOptions maps the settings-file pump section onto the worker options.
func pumpOptions(cfg *config.Config) *pump.Options {
	return &pump.Options{
		BufferSize:    cfg.Pump.BufferSize,
		PollTimeoutMs: cfg.Pump.PollTimeoutMs,
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}
	opts, err := parseTestOptions(flagTestOps)
	if err != nil {
		return err
	}
	allowNonTTY := opts.allowNonTTY || cfg.AllowNonTTY

	if flagShowKey {
		cmd.SilenceUsage = true
		return runShowKey(cmd.OutOrStdout(), allowNonTTY, logger)
	}
	if len(args) == 0 {
		return errUsage
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	mouse := backend.MouseModeAuto
	if flagMouse || cfg.Mouse {
		mouse = backend.MouseModeForce
	}

	s, err := session.New(session.Params{
		Backend: backend.Agent(logger),
		Config: backend.Config{
			MouseMode:   mouse,
			ConErr:      opts.conerr,
			Plain:       opts.plain,
			Color:       opts.color,
			ShowConsole: os.Getenv("TERMBRIDGE_SHOW_CONSOLE") != "",
		},
		Argv:        args,
		AllowNonTTY: allowNonTTY,
		Logger:      logger,
		PumpOptions: pumpOptions(cfg),
	})
	if err != nil {
		return err
	}

	code, err := s.Run()
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}
