// Command vctraced is the vctrace daemon.
// It listens on a Unix domain socket for generation requests, runs them
// through the remote model pipeline, and keeps the resulting traces
// searchable.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Paranoid-AF/vctrace"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "log every request and response to stderr")
	flag.Parse()

	if *showVersion {
		fmt.Println("vctraced", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	socketPath := vctrace.SocketPath()

	slog.Info("starting", "socket", socketPath)

	srv, err := NewServer(socketPath)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("ready")
	if err := serveUntil(srv, sigCh); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// serveUntil serves until a signal arrives on stop. It returns only after
// Close has finished, so the snapshot and the store are closed before exit.
func serveUntil(srv *Server, stop <-chan os.Signal) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sig, ok := <-stop
		if ok {
			slog.Info("shutting down", "signal", sig)
		}
		srv.Close()
	}()

	err := srv.Serve()
	if err != nil {
		srv.Close()
		return err
	}
	<-done
	return nil
}
