// Package logging provides named hclog loggers shared across the pipeline.
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

var root hclog.Logger

// Init configures the root logger. Call once from the CLI before any scan.
func Init(verbose bool) {
	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	root = hclog.New(&hclog.LoggerOptions{
		Name:   "vibecheck",
		Output: os.Stderr,
		Level:  level,
	})
}

// New returns a named child logger for a component.
func New(name string) hclog.Logger {
	if root == nil {
		Init(false)
	}
	return root.Named(name)
}
