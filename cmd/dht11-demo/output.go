//go:build !(rp2040 || rp2350)

package main

import "io"

// consoleWriter forwards monitor lines to the builtin print.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	print(string(p))
	return len(p), nil
}

func output() io.Writer { return consoleWriter{} }
