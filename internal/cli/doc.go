// Package cli turns command-line arguments into an app.Config. It owns flag
// defaults, such as the TTY-dependent log format, and the ExitError type
// that carries a process exit code back to main.
package cli
