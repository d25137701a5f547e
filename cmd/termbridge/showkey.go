//go:build unix

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/srg/termbridge/internal/termmode"
)

// decodeCtrl maps a control byte to its caret notation letter. ok is false
// for printable bytes.
func decodeCtrl(b byte) (byte, bool) {
	switch {
	case b < 32:
		return b + '@', true
	case b == 127:
		return '?', true
	default:
		return 0, false
	}
}

// runShowKey switches stdin to raw mode and dumps each byte it receives,
// first in caret notation and then one numeric line per byte. Ctrl-D exits.
func runShowKey(out io.Writer, allowNonTTY bool, logger *logrus.Logger) error {
	fmt.Fprintf(out, "\nPress any keys -- Ctrl-D exits\n\n")

	ctrl := color.New(color.FgCyan)
	term := termmode.NewController(logger)
	snap, err := term.CaptureAndSetRaw(termmode.RawOptions{AllowNonTTY: allowNonTTY})
	if err != nil {
		return err
	}
	defer func() {
		if err := term.Restore(snap); err != nil {
			logger.WithError(err).Warn("terminal restore failed")
		}
	}()

	buf := make([]byte, 128)
	for {
		n, err := os.Stdin.Read(buf)
		if n <= 0 || err != nil {
			return nil
		}
		dumpKeys(out, ctrl, buf[:n])
		if buf[0] == 4 { // Ctrl-D
			return nil
		}
	}
}

// dumpKeys renders one chunk of input: the caret-notation transcript first,
// then one numeric line per byte.
func dumpKeys(out io.Writer, ctrl *color.Color, chunk []byte) {
	for _, b := range chunk {
		if c, ok := decodeCtrl(b); ok {
			ctrl.Fprintf(out, "^%c", c)
		} else {
			fmt.Fprintf(out, "%c", b)
		}
	}
	for _, b := range chunk {
		fmt.Fprintf(out, "\t%3d %04o 0x%02x\n", b, b, b)
	}
}
