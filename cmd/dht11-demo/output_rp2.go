//go:build rp2040 || rp2350

package main

import (
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// Monitor lines go to the USB console and are mirrored on UART0 (GP0/GP1).
const (
	uartBaud = 115200
	uartTX   = 0
	uartRX   = 1
)

type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	print(string(p))
	return len(p), nil
}

func output() io.Writer {
	hw := uartx.UART0
	// Defaults inside uartx apply if zero.
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uartBaud,
		TX:       machine.Pin(uartTX),
		RX:       machine.Pin(uartRX),
	}); err != nil {
		println("[main] uart0 configure failed:", err.Error())
		return consoleWriter{}
	}
	return io.MultiWriter(consoleWriter{}, hw)
}
