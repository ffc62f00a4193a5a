package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/kilnhq/kilnd/internal"
	"github.com/kilnhq/kilnd/internal/protocol"
	"github.com/kilnhq/kilnd/internal/router"
)

// Processes a single connection.
//
// Reads one newline-delimited JSON envelope, dispatches the operation,
// and writes the response. The connection is closed after one exchange.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	line, err := reader.ReadBytes('\n')
	if err != nil {
		slog.Error("read error", "error", err)
		return
	}

	env, err := protocol.Decode(line)
	if err != nil {
		s.respond(conn, protocol.Response{OK: false, Error: err.Error()})
		return
	}

	slog.Debug("operation received", "op", env.Op)

	switch env.Op {
	case protocol.OpStatus:
		s.handleStatus(conn)
	case protocol.OpShutdown:
		s.handleShutdown(conn)
	default:
		ctx, cancel := contextWithDisconnect(context.Background(), reader)
		defer cancel()
		s.dispatch(ctx, conn, env)
	}
}

// Routes an engine operation through the router and writes the outcome
// back as a response envelope.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, env protocol.Envelope) {
	outcome := s.router.Dispatch(ctx, router.Op(env.Op), env.Payload)

	resp := protocol.Response{
		OK:        outcome.Success,
		Subsystem: string(outcome.Subsystem),
		Elapsed:   outcome.Elapsed,
	}

	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	} else if outcome.Result != nil {
		data, err := json.Marshal(outcome.Result)
		if err != nil {
			resp.OK = false
			resp.Error = err.Error()
		} else {
			resp.Result = data
		}
	}

	s.respond(conn, resp)
}

// Handles a status operation.
func (s *Server) handleStatus(conn net.Conn) {
	stats := make(map[string]protocol.SubsystemStats)
	for subsystem, m := range s.router.Metrics() {
		stats[string(subsystem)] = protocol.SubsystemStats{
			Operations:  m.Operations,
			TotalTime:   m.TotalTime.String(),
			AverageTime: m.AverageTime().String(),
		}
	}

	result, err := json.Marshal(protocol.StatusResult{
		Running:    true,
		Version:    internal.VersionString(),
		Pid:        os.Getpid(),
		Uptime:     time.Since(s.startedAt).Truncate(time.Second).String(),
		Subsystems: stats,
	})
	if err != nil {
		s.respond(conn, protocol.Response{OK: false, Error: err.Error()})
		return
	}

	s.respond(conn, protocol.Response{OK: true, Result: result})
}

// Handles a shutdown operation.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.Response{OK: true})
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Writes a JSON response envelope to the connection.
func (s *Server) respond(conn net.Conn, resp protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("encode response failed", "error", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}

// Returns a derived context that is cancelled when the remote end of the
// connection closes.
//
// Detection works by reading from r in a background goroutine. The read blocks
// until the peer closes the connection, at which point it returns an error and
// the derived context is cancelled. The caller must ensure that no further data
// is expected on r for the lifetime of the returned context. The returned
// [context.CancelFunc] must always be called to release resources, even if the
// connection closes on its own.
func contextWithDisconnect(parent context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		buf := make([]byte, 1)
		r.Read(buf)
		cancel()
	}()

	return ctx, cancel
}
