package rpc

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/lsp"
)

// Language server methods. Documents are synced in full; symbols come from
// the index.
const (
	MethodInitialize      = "initialize"
	MethodInitialized     = "initialized"
	MethodShutdown        = "shutdown"
	MethodExit            = "exit"
	MethodDidOpen         = "textDocument/didOpen"
	MethodDidChange       = "textDocument/didChange"
	MethodDidSave         = "textDocument/didSave"
	MethodDidClose        = "textDocument/didClose"
	MethodDocumentSymbol  = "textDocument/documentSymbol"
	MethodWorkspaceSymbol = "workspace/symbol"
)

func (s *Server) handleLSP(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, bool, error) {
	switch req.Method {
	case MethodInitialize:
		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync:        lsp.TextDocumentSyncFull,
				DocumentSymbolProvider:  true,
				WorkspaceSymbolProvider: true,
			},
			ServerInfo: &lsp.ServerInfo{Name: "coffeeidx"},
		}, true, nil

	case MethodInitialized, MethodDidClose:
		return nil, true, nil

	case MethodShutdown:
		return nil, true, nil

	case MethodExit:
		conn.Close()
		return nil, true, nil

	case MethodDidOpen:
		var p lsp.DidOpenTextDocumentParams
		if err := decodeLSP(req, &p); err != nil {
			return nil, true, err
		}
		return nil, true, s.updateURI(ctx, p.TextDocument.URI, &p.TextDocument.Text)

	case MethodDidChange:
		var p lsp.DidChangeTextDocumentParams
		if err := decodeLSP(req, &p); err != nil {
			return nil, true, err
		}
		if len(p.ContentChanges) == 0 {
			return nil, true, nil
		}
		text := p.ContentChanges[len(p.ContentChanges)-1].Text
		return nil, true, s.updateURI(ctx, p.TextDocument.URI, &text)

	case MethodDidSave:
		var p lsp.DidSaveTextDocumentParams
		if err := decodeLSP(req, &p); err != nil {
			return nil, true, err
		}
		return nil, true, s.updateURI(ctx, p.TextDocument.URI, p.Text)

	case MethodDocumentSymbol:
		var p lsp.DocumentSymbolParams
		if err := decodeLSP(req, &p); err != nil {
			return nil, true, err
		}
		file, err := s.fileOf(p.TextDocument.URI)
		if err != nil {
			return nil, true, err
		}
		return lsp.DocumentSymbols(s.backend.Index().Outline(ctx, file)), true, nil

	case MethodWorkspaceSymbol:
		var p lsp.WorkspaceSymbolParams
		if err := decodeLSP(req, &p); err != nil {
			return nil, true, err
		}
		idx := s.backend.Index()
		containerOf := func(d definition.Definition) string {
			if parent, ok := idx.Parent(ctx, d); ok {
				return parent.Name
			}
			return ""
		}
		return lsp.SymbolInformations(idx.Search(ctx, p.Query), s.uriOf, containerOf), true, nil
	}
	return nil, false, nil
}

func decodeLSP(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return invalidParams("missing params")
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams(err.Error())
	}
	return nil
}

func (s *Server) updateURI(ctx context.Context, uri string, text *string) error {
	file, err := s.fileOf(uri)
	if err != nil {
		return err
	}
	if err := s.backend.Update(ctx, file, text); err != nil {
		log.Warn("document sync failed", "uri", uri, "error", err)
		return internalError(err)
	}
	return nil
}

func (s *Server) fileOf(uri string) (string, error) {
	path, err := lsp.PathFromURI(uri)
	if err != nil {
		return "", invalidParams(uri + ": " + err.Error())
	}
	return s.backend.Rel(path), nil
}

func (s *Server) uriOf(file string) string {
	path := filepath.FromSlash(file)
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.backend.Root(), path)
	}
	return lsp.FileURI(path)
}
