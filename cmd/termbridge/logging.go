//go:build unix

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/termbridge/pkg/config"
)

// configureLogger builds the session logger. The --log-level flag wins over
// the settings file and the debug environment variable; the default stays at
// panic level so log lines never interleave with the child's raw output.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logrus.ParseLevel(lvl); err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", lvl)
		}
		cfg.LogLevel = lvl
	}
	return cfg.NewLogger(), nil
}
