// Command wsmirrord is the IPC daemon: it accepts length-prefixed
// JSON commands from a desktop front-end and runs at most one
// mirroring session at a time.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wsmirror/internal/ipcd"
)

func main() {
	socketPath := flag.String("socket", "/tmp/wsmirrord.sock", "UNIX domain socket path (POSIX)")
	tcpAddr := flag.String("tcp", "127.0.0.1:47651", "TCP address to listen on when UNIX sockets are unavailable")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_ = os.Remove(*socketPath)
	ln, err := ipcd.Listen(*socketPath, *tcpAddr)
	if err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := ipcd.NewDaemon(logger)
	logger.Info("daemon listening", "addr", ln.Addr().String())
	if err := d.Serve(ctx, ln); err != nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}
