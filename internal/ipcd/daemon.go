// Package ipcd implements the length-prefixed JSON daemon that drives
// one mirroring session at a time on behalf of a desktop front-end,
// giving the wire protocol a real consumer of internal/mirror.Run.
package ipcd

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"

	"wsmirror/internal/ipcwire"
	"wsmirror/internal/mirror"
)

// socketAddress returns the daemon's listen address: a UNIX domain
// socket path on POSIX, a loopback TCP address otherwise.
func socketAddress(socketPath string, tcpAddr string) (network, address string) {
	if runtime.GOOS != "windows" {
		return "unix", socketPath
	}
	return "tcp", tcpAddr
}

// Listen opens the daemon's listener per socketAddress and returns
// it ready for Daemon.Serve.
func Listen(socketPath, tcpAddr string) (net.Listener, error) {
	network, address := socketAddress(socketPath, tcpAddr)
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s %s", network, address)
	}
	return ln, nil
}

// session tracks one in-flight or completed CLONE for CLONE_STATUS
// polling and ABORT_CLONE.
type session struct {
	id     string
	cancel context.CancelFunc

	mu      sync.Mutex
	updates []ipcwire.StatusUpdate
	done    bool
	result  error
}

func (s *session) appendUpdate(u ipcwire.StatusUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

func (s *session) snapshot() []ipcwire.StatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ipcwire.StatusUpdate, len(s.updates))
	copy(out, s.updates)
	return out
}

func (s *session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.result = err
}

// Daemon serializes access to a single mirroring session: a second
// CLONE while one is active is rejected, since only one session is
// ever live at a time.
type Daemon struct {
	mu      sync.Mutex
	current *session
	log     *slog.Logger
}

// NewDaemon builds a Daemon. A nil logger falls back to slog.Default,
// matching the ambient logging style used throughout this module.
func NewDaemon(log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{log: log}
}

// Serve accepts connections from ln until ctx is cancelled or Accept
// fails.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accepting ipc connection")
		}
		go d.handleConn(ctx, conn)
	}
}

func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		cmd, err := ipcwire.ReadCommand(r)
		if err != nil {
			d.log.Debug("ipc connection closed", "error", err)
			return
		}

		resp := d.dispatch(ctx, cmd)
		if err := ipcwire.WriteFrame(conn, resp); err != nil {
			d.log.Error("writing ipc response", "error", err)
			return
		}

		if !cmd.KeepAlive {
			return
		}
	}
}

func (d *Daemon) dispatch(ctx context.Context, cmd ipcwire.Command) any {
	switch cmd.Type {
	case ipcwire.CommandHealthCheck:
		return ipcwire.Response{}
	case ipcwire.CommandClone:
		return d.handleClone(ctx, cmd)
	case ipcwire.CommandCloneStatus:
		return d.handleCloneStatus(cmd)
	case ipcwire.CommandAbortClone:
		return d.handleAbortClone(cmd)
	case ipcwire.CommandGetClones:
		return d.handleGetClones()
	default:
		return ipcwire.Response{Msg: "unknown command type: " + string(cmd.Type)}
	}
}

func (d *Daemon) handleClone(ctx context.Context, cmd ipcwire.Command) ipcwire.Response {
	props, err := cmd.DecodeCloneProps()
	if err != nil {
		return ipcwire.Response{Msg: err.Error()}
	}

	d.mu.Lock()
	if d.current != nil && !d.current.isDone() {
		d.mu.Unlock()
		return ipcwire.Response{Msg: "a clone session is already in progress"}
	}
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{id: props.SessionID, cancel: cancel}
	d.current = sess
	d.mu.Unlock()

	rule := mirror.DownloadRule{
		MaxStaticFileSize:                     props.MaxStaticFileSize,
		DownloadStaticResourceWithUnknownSize: props.DownloadStaticResourceWithUnknownSize,
		ProgressUpdateInterval:                props.ProgressUpdateInterval,
		MaxDepth:                              props.MaxLevel,
		BlackList:                             props.BlackListUrls,
		AbortOnDownloadError:                  props.AbortOnDownloadError,
	}

	updates := make(chan mirror.Update, mirror.DefaultUpdateChannelCapacity)
	go func() {
		for u := range updates {
			sess.appendUpdate(toStatusUpdate(u))
		}
	}()

	go func() {
		err := mirror.Run(sessCtx, props.SessionID, props.Link, props.DirName, rule, updates)
		close(updates)
		sess.finish(err)
	}()

	return ipcwire.Response{}
}

func (d *Daemon) handleCloneStatus(cmd ipcwire.Command) any {
	props, err := cmd.DecodeSessionProps()
	if err != nil {
		return ipcwire.Response{Msg: err.Error()}
	}

	d.mu.Lock()
	sess := d.current
	d.mu.Unlock()

	if sess == nil || sess.id != props.SessionID {
		return ipcwire.Response{Msg: "unknown session: " + props.SessionID}
	}
	return ipcwire.CloneStatusResponse{Updates: sess.snapshot()}
}

func (d *Daemon) handleAbortClone(cmd ipcwire.Command) ipcwire.Response {
	props, err := cmd.DecodeSessionProps()
	if err != nil {
		return ipcwire.Response{Msg: err.Error()}
	}

	d.mu.Lock()
	sess := d.current
	d.mu.Unlock()

	if sess == nil || sess.id != props.SessionID {
		return ipcwire.Response{Msg: "unknown session: " + props.SessionID}
	}
	sess.cancel()
	return ipcwire.Response{}
}

func (d *Daemon) handleGetClones() ipcwire.GetClonesResponse {
	d.mu.Lock()
	sess := d.current
	d.mu.Unlock()

	if sess == nil {
		return ipcwire.GetClonesResponse{Clones: []ipcwire.CloneSummary{}}
	}
	return ipcwire.GetClonesResponse{Clones: []ipcwire.CloneSummary{{Title: sess.id}}}
}

func (s *session) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// toStatusUpdate flattens the engine's tagged Update variants into
// the single StatusUpdate shape the wire format uses.
func toStatusUpdate(u mirror.Update) ipcwire.StatusUpdate {
	switch v := u.(type) {
	case mirror.Progress:
		su := ipcwire.StatusUpdate{
			FileName:     v.ResourceName(),
			BytesWritten: v.BytesWritten,
		}
		if v.FileSize > 0 {
			size := v.FileSize
			su.FileSize = &size
		}
		return su
	case mirror.Message:
		return ipcwire.StatusUpdate{
			FileName: v.ResourceName(),
			Message: &ipcwire.StatusMessage{
				Message: v.Content,
				IsError: v.IsError,
			},
		}
	default:
		return ipcwire.StatusUpdate{}
	}
}
