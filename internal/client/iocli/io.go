// Package iocli abstracts terminal input/output so commands can be tested
// without a TTY.
package iocli

// IO is the terminal surface used by CLI commands
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)

	// ReadInput reads one trimmed line from the user
	ReadInput(prompt string) (string, error)

	// ReadPassword reads a line without echoing it
	ReadPassword(prompt string) (string, error)
}
