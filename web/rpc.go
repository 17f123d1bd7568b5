package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/odvcencio/genhl/document"
	"github.com/odvcencio/genhl/highlight"
)

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnknownDoc     = -32001
	codeRateLimited    = -32002
	codeTooManyDocs    = -32003
)

var errFilesDisabled = errors.New("opening files is disabled")

type rpcRequest struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     any       `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorResponse(req rpcRequest, code int, err error) rpcResponse {
	return rpcResponse{ID: req.ID, Error: &rpcError{Code: code, Message: err.Error()}}
}

// session holds the documents opened over one connection.
type session struct {
	limiter *rate.Limiter
	docs    map[string]*openDocument
}

type openDocument struct {
	doc      *document.Document
	language string
	release  func()
}

func (s *Server) newSession() *session {
	return &session{
		limiter: rate.NewLimiter(s.limit, s.burst),
		docs:    make(map[string]*openDocument),
	}
}

func (ss *session) closeAll() {
	for id, d := range ss.docs {
		d.release()
		delete(ss.docs, id)
	}
}

type span struct {
	Start  int    `json:"start"`
	Length int    `json:"length"`
	Format string `json:"format"`
	Style  string `json:"style,omitempty"`
}

type foldHint struct {
	Indent        int  `json:"indent"`
	StartIncluded bool `json:"startIncluded,omitempty"`
	EndIncluded   bool `json:"endIncluded,omitempty"`
}

type lineResult struct {
	State int      `json:"state"`
	Spans []span   `json:"spans"`
	Fold  foldHint `json:"fold"`
}

type openResult struct {
	ID       string                `json:"id"`
	Language string                `json:"language"`
	Broken   bool                  `json:"broken,omitempty"`
	Lines    []lineResult          `json:"lines"`
	Folds    []document.FoldRegion `json:"folds"`
}

// changeResult carries lines First..Last. Lines outside that range are
// unchanged: the client keeps its first First lines and its last
// LineCount-Last-1 lines.
type changeResult struct {
	Applied   bool                  `json:"applied"`
	First     int                   `json:"first"`
	Last      int                   `json:"last"`
	LineCount int                   `json:"lineCount"`
	Lines     []lineResult          `json:"lines"`
	Folds     []document.FoldRegion `json:"folds"`
}

func (s *Server) handleRPC(ss *session, req rpcRequest) rpcResponse {
	if !ss.limiter.Allow() {
		return errorResponse(req, codeRateLimited, errors.New("rate limit exceeded"))
	}
	switch req.Method {
	case "languages":
		return rpcResponse{ID: req.ID, Result: map[string]any{"languages": s.reg.AllLanguages()}}
	case "open":
		return s.rpcOpen(ss, req)
	case "edit":
		return s.rpcEdit(ss, req)
	case "undo", "redo":
		return s.rpcHistory(ss, req)
	case "fold":
		return s.rpcFold(ss, req)
	case "close":
		return s.rpcClose(ss, req)
	default:
		return errorResponse(req, codeMethodNotFound, fmt.Errorf("unknown method: %s", req.Method))
	}
}

func (s *Server) rpcOpen(ss *session, req rpcRequest) rpcResponse {
	var p struct {
		Path     string `json:"path"`
		Text     string `json:"text"`
		Language string `json:"language"`
		MimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}

	lang := p.Language
	if lang == "" && p.MimeType != "" {
		if e := s.reg.DetectLanguageByMimeType(p.MimeType); e != nil {
			lang = e.Name
		}
	}
	if lang == "" && p.Path != "" {
		if e := s.reg.DetectLanguage(p.Path); e != nil {
			lang = e.Name
		}
	}
	if lang == "" {
		return errorResponse(req, codeInvalidParams, errors.New("cannot determine the language"))
	}
	if len(ss.docs) >= s.maxDocuments {
		return errorResponse(req, codeTooManyDocs, fmt.Errorf("at most %d documents may be open", s.maxDocuments))
	}

	def, release, err := s.reg.Acquire(lang)
	if err != nil {
		return errorResponse(req, codeServerError, err)
	}
	doc := document.New(highlight.New(def, s.hlOpts...), document.WithLogger(s.log))
	if p.Path != "" && p.Text == "" {
		path, err := s.resolve(p.Path)
		if err == nil {
			err = doc.Open(path)
		}
		if err != nil {
			release()
			return errorResponse(req, codeServerError, err)
		}
	} else {
		doc.SetText(p.Text)
	}

	id := uuid.NewString()
	ss.docs[id] = &openDocument{doc: doc, language: def.Name(), release: release}
	s.log.Debug().Str("id", id).Str("language", def.Name()).Int("lines", doc.Len()).Msg("document opened")
	return rpcResponse{ID: req.ID, Result: openResult{
		ID:       id,
		Language: def.Name(),
		Broken:   def.Broken(),
		Lines:    s.lines(doc, 0, doc.Len()-1),
		Folds:    doc.Folds().Regions(),
	}}
}

func (s *Server) rpcEdit(ss *session, req rpcRequest) rpcResponse {
	var p struct {
		ID      string `json:"id"`
		Offset  int    `json:"offset"`
		OldText string `json:"oldText"`
		NewText string `json:"newText"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}
	d, resp, ok := ss.lookup(req, p.ID)
	if !ok {
		return resp
	}
	change, err := d.doc.ApplyEdit(p.Offset, p.OldText, p.NewText)
	if err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}
	return rpcResponse{ID: req.ID, Result: s.changed(d.doc, change)}
}

func (s *Server) rpcHistory(ss *session, req rpcRequest) rpcResponse {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}
	d, resp, ok := ss.lookup(req, p.ID)
	if !ok {
		return resp
	}
	var change document.Change
	var applied bool
	if req.Method == "undo" {
		change, applied = d.doc.Undo()
	} else {
		change, applied = d.doc.Redo()
	}
	if !applied {
		return rpcResponse{ID: req.ID, Result: changeResult{LineCount: d.doc.Len(), Folds: d.doc.Folds().Regions()}}
	}
	return rpcResponse{ID: req.ID, Result: s.changed(d.doc, change)}
}

func (s *Server) rpcFold(ss *session, req rpcRequest) rpcResponse {
	var p struct {
		ID   string `json:"id"`
		Line int    `json:"line"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}
	d, resp, ok := ss.lookup(req, p.ID)
	if !ok {
		return resp
	}
	toggled := d.doc.Folds().Toggle(p.Line)
	return rpcResponse{ID: req.ID, Result: map[string]any{
		"toggled": toggled,
		"folds":   d.doc.Folds().Regions(),
		"visible": d.doc.Folds().VisibleLines(d.doc.Len()),
	}}
}

func (s *Server) rpcClose(ss *session, req rpcRequest) rpcResponse {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return errorResponse(req, codeInvalidParams, err)
	}
	d, resp, ok := ss.lookup(req, p.ID)
	if !ok {
		return resp
	}
	d.release()
	delete(ss.docs, p.ID)
	return rpcResponse{ID: req.ID, Result: map[string]string{"status": "closed"}}
}

func (ss *session) lookup(req rpcRequest, id string) (*openDocument, rpcResponse, bool) {
	d, ok := ss.docs[id]
	if !ok {
		return nil, errorResponse(req, codeUnknownDoc, fmt.Errorf("unknown document %q", id)), false
	}
	return d, rpcResponse{}, true
}

func (s *Server) resolve(path string) (string, error) {
	if s.root == "" {
		return "", errFilesDisabled
	}
	return filepath.Join(s.root, filepath.Clean("/"+path)), nil
}

func (s *Server) changed(doc *document.Document, change document.Change) changeResult {
	return changeResult{
		Applied:   true,
		First:     change.First,
		Last:      change.Last,
		LineCount: doc.Len(),
		Lines:     s.lines(doc, change.First, change.Last),
		Folds:     doc.Folds().Regions(),
	}
}

func (s *Server) lines(doc *document.Document, first, last int) []lineResult {
	out := make([]lineResult, 0, last-first+1)
	for i := first; i <= last; i++ {
		b := doc.Block(i)
		spans := make([]span, len(b.Formats))
		for j, f := range b.Formats {
			spans[j] = span{
				Start:  f.Start,
				Length: f.Length,
				Format: f.Format.String(),
				Style:  s.theme.Style(f).CSS(),
			}
		}
		out = append(out, lineResult{
			State: b.State,
			Spans: spans,
			Fold: foldHint{
				Indent:        b.Fold.Indent,
				StartIncluded: b.Fold.StartIncluded,
				EndIncluded:   b.Fold.EndIncluded,
			},
		})
	}
	return out
}
