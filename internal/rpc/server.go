// Package rpc exposes the index over JSON-RPC 2.0 with LSP style framing,
// so editors and language servers can query it from another process.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/logger"
	"github.com/alucardeht/coffeeidx/internal/query"
)

var log = logger.ForComponent("rpc")

const (
	MethodUpdate                    = "index/update"
	MethodRemove                    = "index/remove"
	MethodFieldsInFile              = "index/fieldsInFile"
	MethodClassesInFile             = "index/classesInFile"
	MethodClassFields               = "index/classFields"
	MethodClassMethods              = "index/classMethods"
	MethodMethodsInFile             = "index/methodsInFile"
	MethodRootMethodsFromOtherFiles = "index/rootMethodsFromOtherFiles"
	MethodRootFieldsFromOtherFiles  = "index/rootFieldsFromOtherFiles"
	MethodClassesFromOtherFiles     = "index/classesFromOtherFiles"
	MethodOutline                   = "index/outline"
	MethodSearch                    = "index/search"
	MethodStats                     = "index/stats"
)

// Backend is what the server needs from a running index. File handles are
// project-relative slash paths; Rel maps absolute paths onto them.
type Backend interface {
	Root() string
	Rel(path string) string
	Index() *query.Index
	Update(ctx context.Context, file string, source *string) error
	Remove(ctx context.Context, file string) error
	Stats(ctx context.Context) (*index.Stats, error)
}

type FileParams struct {
	File string `json:"file"`
}

// UpdateParams carries the new text of a file. Without Source the file is
// read from disk.
type UpdateParams struct {
	File   string  `json:"file"`
	Source *string `json:"source,omitempty"`
}

type SearchParams struct {
	Prefix string `json:"prefix"`
}

type Server struct {
	backend Backend
	handler jsonrpc2.Handler

	mu    sync.Mutex
	conns map[*jsonrpc2.Conn]struct{}
}

func NewServer(backend Backend) *Server {
	s := &Server{
		backend: backend,
		conns:   make(map[*jsonrpc2.Conn]struct{}),
	}
	// Requests of one connection are handled in order, so document syncs
	// never overtake each other.
	s.handler = jsonrpc2.HandlerWithError(s.handle).SuppressErrClosed()
	return s
}

// ServeConn speaks the protocol on rwc until the peer hangs up or ctx ends.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, s.handler)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-conn.DisconnectNotify():
		case <-ctx.Done():
			conn.Close()
		}
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	return conn
}

// Serve accepts connections on l until ctx is done, then closes l and every
// open connection.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		nc, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.closeAll()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.closeAll()
				return err
			}
			log.Warn("accept failed", "error", err)
			continue
		}
		log.Debug("client connected", "remote", nc.RemoteAddr())
		s.ServeConn(ctx, nc)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// Connections is the number of open client connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

type fileQuery func(*query.Index, context.Context, string) []definition.Definition

var fileQueries = map[string]fileQuery{
	MethodFieldsInFile:              (*query.Index).FieldsInFile,
	MethodClassesInFile:             (*query.Index).ClassesInFile,
	MethodClassFields:               (*query.Index).ClassFields,
	MethodClassMethods:              (*query.Index).ClassMethods,
	MethodMethodsInFile:             (*query.Index).MethodsInFile,
	MethodRootMethodsFromOtherFiles: (*query.Index).RootMethodsFromOtherFiles,
	MethodRootFieldsFromOtherFiles:  (*query.Index).RootFieldsFromOtherFiles,
	MethodClassesFromOtherFiles:     (*query.Index).ClassesFromOtherFiles,
	MethodOutline:                   (*query.Index).Outline,
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	log.Debug("request", "method", req.Method, "notification", req.Notif)

	if result, ok, err := s.handleLSP(ctx, conn, req); ok {
		return result, err
	}

	if q, ok := fileQueries[req.Method]; ok {
		var p FileParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return nonNil(q(s.backend.Index(), ctx, s.backend.Rel(p.File))), nil
	}

	switch req.Method {
	case MethodUpdate:
		var p UpdateParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		if err := s.backend.Update(ctx, p.File, p.Source); err != nil {
			return nil, internalError(err)
		}
		return true, nil

	case MethodRemove:
		var p FileParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		if err := s.backend.Remove(ctx, p.File); err != nil {
			return nil, internalError(err)
		}
		return true, nil

	case MethodSearch:
		var p SearchParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &p); err != nil {
				return nil, invalidParams(err.Error())
			}
		}
		return nonNil(s.backend.Index().Search(ctx, p.Prefix)), nil

	case MethodStats:
		stats, err := s.backend.Stats(ctx)
		if err != nil {
			return nil, internalError(err)
		}
		return stats, nil
	}

	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams(err.Error())
	}
	if f, ok := v.(*FileParams); ok && f.File == "" {
		return invalidParams("file is required")
	}
	if u, ok := v.(*UpdateParams); ok && u.File == "" {
		return invalidParams("file is required")
	}
	return nil
}

func invalidParams(msg string) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
}

func internalError(err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
}

// nonNil keeps empty answers as [] on the wire.
func nonNil(defs []definition.Definition) []definition.Definition {
	if defs == nil {
		return []definition.Definition{}
	}
	return defs
}
