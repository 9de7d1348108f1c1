// Command vctrace-repl is an interactive client for vctraced.
// It reads commands from the terminal, sends them over the daemon socket,
// and writes structured TOML results to stdout.
//
// Usage:
//
//	./vctrace-repl             # interactive, TOML on screen
//	./vctrace-repl > log.toml  # prompt on screen, TOML to file
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Paranoid-AF/vctrace"
)

const prompt = "> "

func main() {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open /dev/tty: %v\n", err)
		os.Exit(1)
	}
	defer tty.Close()

	oldState, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(int(tty.Fd()), oldState)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	terminal := term.NewTerminal(tty, prompt)
	terminal.AutoCompleteCallback = completeCommand

	sockPath := vctrace.SocketPath()
	fmt.Fprintf(terminal, "vctrace repl\n")
	fmt.Fprintf(terminal, "socket: %s\n\n", sockPath)
	fmt.Fprint(terminal, helpText)
	fmt.Fprintln(terminal)

	s := &session{
		client: NewClient(sockPath),
		tty:    terminal,
		out:    termWriter(os.Stdout),
	}

	ctx := context.Background()
	for {
		line, err := terminal.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(terminal, "read error: %v\n", err)
			break
		}

		if err := s.run(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			fmt.Fprintf(terminal, "error: %v\n\n", err)
		}
	}
}
