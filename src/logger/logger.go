// Package logger defines the logging interface shared by the slipway
// commands and long-running loops.
package logger

import (
	"fmt"
	"os"
)

// Logger is implemented by the console and silent loggers. The watcher and
// broker consumers log through this so TUI mode can run quietly.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stdout/stderr. Debug output is
// gated behind the Verbose flag.
type ConsoleLogger struct {
	Verbose bool
}

func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{Verbose: verbose}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Printf("[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if c.Verbose {
		fmt.Printf("[DEBUG] "+msg+"\n", args...)
	}
}

// SilentLogger discards all log messages. Used in TUI mode so log output
// cannot corrupt the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
