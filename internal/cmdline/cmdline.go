// Package cmdline converts argument vectors to and from a single flat
// command-line string following the Win32 de-quoting convention (the
// CommandLineToArgvW rules), plus the narrow/wide character conversions
// needed at the two charset boundaries. Encode and Split round-trip:
// Split(Encode(argv)) reproduces argv element for element.
package cmdline

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Encode joins argv into one command line. An argument is quoted when it
// contains a space or tab or is empty. A run of backslashes immediately
// before a quote is doubled and the quote escaped; a trailing run inside a
// quoted argument is doubled so the closing quote is not escaped; backslashes
// not adjacent to a quote are copied literally.
func Encode(argv []string) string {
	var b strings.Builder
	for i, arg := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		quote := arg == "" || strings.ContainsAny(arg, " \t")
		if quote {
			b.WriteByte('"')
		}
		bs := 0
		for j := 0; j < len(arg); j++ {
			switch arg[j] {
			case '\\':
				bs++
			case '"':
				writeBackslashes(&b, bs*2+1)
				b.WriteByte('"')
				bs = 0
			default:
				writeBackslashes(&b, bs)
				bs = 0
				b.WriteByte(arg[j])
			}
		}
		if quote {
			writeBackslashes(&b, bs*2)
			b.WriteByte('"')
		} else {
			writeBackslashes(&b, bs)
		}
	}
	return b.String()
}

func writeBackslashes(b *strings.Builder, n int) {
	for ; n > 0; n-- {
		b.WriteByte('\\')
	}
}

// Split parses a flat command line back into an argument vector using the
// native de-quoting algorithm: 2n backslashes before a quote yield n
// backslashes and the quote toggles quoting; 2n+1 yield n backslashes and a
// literal quote; backslashes elsewhere are literal; a doubled quote inside a
// quoted span is a literal quote.
func Split(cmdline string) []string {
	var args []string
	i, n := 0, len(cmdline)
	for {
		for i < n && (cmdline[i] == ' ' || cmdline[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		var arg []byte
		inQuotes := false
		for i < n {
			c := cmdline[i]
			if c == '\\' {
				j := i
				for j < n && cmdline[j] == '\\' {
					j++
				}
				run := j - i
				if j < n && cmdline[j] == '"' {
					for k := 0; k < run/2; k++ {
						arg = append(arg, '\\')
					}
					if run%2 == 1 {
						arg = append(arg, '"')
						i = j + 1
					} else {
						i = j // the quote is handled on the next pass
					}
				} else {
					for k := 0; k < run; k++ {
						arg = append(arg, '\\')
					}
					i = j
				}
				continue
			}
			if c == '"' {
				if inQuotes && i+1 < n && cmdline[i+1] == '"' {
					arg = append(arg, '"')
					i += 2
				} else {
					inQuotes = !inQuotes
					i++
				}
				continue
			}
			if !inQuotes && (c == ' ' || c == '\t') {
				break
			}
			arg = append(arg, c)
			i++
		}
		args = append(args, string(arg))
	}
	return args
}

// Widen converts a narrow string to UTF-16 code units. The result is bounded
// by twice the input byte length plus one; a hard conversion error (invalid
// input) is reported rather than silently substituted, because this path
// carries trusted local input.
func Widen(s string) ([]uint16, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("widen: invalid multibyte sequence in %q", s)
	}
	u := utf16.Encode([]rune(s))
	if len(u) > 2*len(s)+1 {
		return nil, fmt.Errorf("widen: conversion overflow for %q", s)
	}
	return u, nil
}

// Narrow converts UTF-16 code units to a narrow string. The output is bounded
// by three bytes per input unit plus one. Unlike Widen, failure is reported
// by returning the empty string: this path handles untrusted system-provided
// error text, and a lost message is preferable to an abort.
func Narrow(u []uint16) string {
	runes := utf16.Decode(u)
	var b strings.Builder
	b.Grow(3*len(u) + 1)
	for _, r := range runes {
		if r == utf8.RuneError {
			return ""
		}
		b.WriteRune(r)
	}
	return b.String()
}
