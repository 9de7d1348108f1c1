package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/Paranoid-AF/vctrace"
	"github.com/Paranoid-AF/vctrace/engine"
	"github.com/Paranoid-AF/vctrace/pipeline"
)

// maxRequestSize bounds one request line; generate requests carry a base64 image.
const maxRequestSize = 64 << 20

// Tracer runs generation requests and serves the resulting traces.
type Tracer interface {
	Generate(ctx context.Context, req *vctrace.GenerateRequest) (*pipeline.Result, error)
	Put(ctx context.Context, doc *vctrace.Document) (*vctrace.TraceRecord, error)
	Get(ctx context.Context, requestID string) (*vctrace.TraceRecord, error)
	Search(ctx context.Context, vec []float32, topK int) ([]vctrace.Match, error)
	Delete(ctx context.Context, requestID string) error
	Close()
}

// Server listens on a Unix domain socket for trace requests.
type Server struct {
	listener net.Listener
	sockPath string
	engine   Tracer

	// ctx is canceled on Close so in-flight requests stop early.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
}

// NewServer creates a new IPC server bound to the given socket path.
func NewServer(sockPath string) (*Server, error) {
	eng, err := engine.NewEngine()
	if err != nil {
		return nil, err
	}
	srv, err := NewServerWithTracer(sockPath, eng)
	if err != nil {
		eng.Close()
		return nil, err
	}
	return srv, nil
}

// NewServerWithTracer creates a new IPC server with a custom Tracer.
func NewServerWithTracer(sockPath string, tracer Tracer) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener: listener,
		sockPath: sockPath,
		engine:   tracer,
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts connections and handles requests until the server is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

// Close shuts down the listener and open connections, waits for in-flight
// requests, then closes the engine and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()

	s.engine.Close()
	os.Remove(s.sockPath)
}

func (s *Server) handleConn(conn net.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer func() {
		cancel()
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.wg.Done()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var resp *vctrace.Response
		var req vctrace.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			slog.Warn("invalid request", "error", err)
			resp = &vctrace.Response{Error: &vctrace.Error{Code: "invalid_request", Message: err.Error()}}
		} else {
			slog.Debug("request", "action", req.Action, "request_id", req.RequestID, "bytes", len(raw))
			resp = s.dispatch(ctx, &req)
		}

		// Shutting down; skip writing.
		if ctx.Err() != nil {
			return
		}

		data, err := json.Marshal(resp)
		if err != nil {
			slog.Error("failed to marshal response", "action", resp.Action, "error", err)
			data, _ = json.Marshal(&vctrace.Response{
				Action: resp.Action,
				Error:  &vctrace.Error{Code: "internal_error", Message: "encoding response: " + err.Error()},
			})
		}

		slog.Debug("response", "action", resp.Action, "bytes", len(data), "error", resp.Error)

		if _, err := conn.Write(append(data, '\n')); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("connection read error", "error", err)
	}
}

// dispatch runs one request against the engine.
func (s *Server) dispatch(ctx context.Context, req *vctrace.Request) *vctrace.Response {
	resp := &vctrace.Response{Action: req.Action}

	var err error
	switch req.Action {
	case vctrace.ActionGenerate:
		var res *pipeline.Result
		if res, err = s.engine.Generate(ctx, req.Generate); err == nil {
			resp.Record = vctrace.ToDocument(res.Trace)
			resp.Image = res.Image
			resp.Asset = res.Asset
		}

	case vctrace.ActionPut:
		var r *vctrace.TraceRecord
		if r, err = s.engine.Put(ctx, req.Record); err == nil {
			resp.Record = vctrace.ToDocument(r)
		}

	case vctrace.ActionGet:
		var r *vctrace.TraceRecord
		if r, err = s.engine.Get(ctx, req.RequestID); err == nil {
			resp.Record = vctrace.ToDocument(r)
		}

	case vctrace.ActionSearch:
		resp.Matches, err = s.engine.Search(ctx, req.Vector, req.TopK)

	case vctrace.ActionDelete:
		err = s.engine.Delete(ctx, req.RequestID)

	default:
		resp.Error = &vctrace.Error{
			Code:    "unknown_action",
			Message: "unknown action: " + req.Action,
		}
		return resp
	}

	if err != nil {
		slog.Warn("request failed", "action", req.Action, "error", err)
		return &vctrace.Response{
			Action: req.Action,
			Error:  &vctrace.Error{Code: errorCode(err), Message: err.Error()},
		}
	}
	return resp
}

// errorCode maps an engine error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, vctrace.ErrInvalidImage),
		errors.Is(err, vctrace.ErrContractVersion):
		return "invalid_request"
	case errors.Is(err, vctrace.ErrMissingCollaborator):
		return "missing_collaborator"
	case errors.Is(err, vctrace.ErrNotFound):
		return "not_found"
	case errors.Is(err, vctrace.ErrDimensionMismatch):
		return "dimension_mismatch"
	default:
		return "internal_error"
	}
}
