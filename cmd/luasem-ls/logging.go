package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// cliColor is the handful of ANSI SGR codes used for the small amount
// of output this binary prints before the JSON-RPC channel exists
// (startup warnings, fatal errors, the `index` subcommand's summary).
// Disabled whenever stderr/stdout isn't a TTY, since the stdio
// transport must stay byte-clean for JSON-RPC regardless of which
// stream a redirected terminal happens to share.
type cliColor struct {
	enabled bool
}

func newCLIColor(f *os.File) cliColor {
	return cliColor{enabled: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())}
}

func (c cliColor) wrap(code, s string) string {
	if !c.enabled {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (c cliColor) yellow(s string) string { return c.wrap("33", s) }
func (c cliColor) red(s string) string    { return c.wrap("31", s) }
func (c cliColor) dim(s string) string    { return c.wrap("2", s) }

func warnf(format string, args ...any) {
	c := newCLIColor(os.Stderr)
	fmt.Fprintln(os.Stderr, c.yellow("warning: ")+fmt.Sprintf(format, args...))
}

func fatalf(format string, args ...any) {
	c := newCLIColor(os.Stderr)
	fmt.Fprintln(os.Stderr, c.red("error: ")+fmt.Sprintf(format, args...))
	os.Exit(1)
}
