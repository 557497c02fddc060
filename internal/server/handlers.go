package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ko3luhbka/dephell/pkg/buildinfo"
	"github.com/ko3luhbka/dephell/pkg/converters"
	derrors "github.com/ko3luhbka/dephell/pkg/errors"
	dio "github.com/ko3luhbka/dephell/pkg/io"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

var (
	errNotFound  = derrors.New(derrors.ErrCodeNotFound, "no such route")
	errNoSource  = derrors.New(derrors.ErrCodeUnsupported, "resolution is not configured")
	errNoContent = derrors.New(derrors.ErrCodeInvalidInput, "content is required")
)

// Endpoint names a format and, optionally, the file name the content came
// from; the format is detected from the file name when omitted.
type Endpoint struct {
	Format   string `json:"format,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ConvertRequest is the body of POST /v1/convert.
type ConvertRequest struct {
	From    Endpoint `json:"from"`
	To      Endpoint `json:"to"`
	Content string   `json:"content"`
}

// LockRequest is the body of POST /v1/lock and POST /v1/graph.
type LockRequest struct {
	From     Endpoint `json:"from"`
	To       Endpoint `json:"to"`
	Content  string   `json:"content"`
	Unpinned bool     `json:"unpinned,omitempty"`
}

// Document is rendered file content.
type Document struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// Package is one locked package.
type Package struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Hashes  []string `json:"hashes,omitempty"`
}

// LockResponse is the body answering POST /v1/lock.
type LockResponse struct {
	Document
	Packages []Package `json:"packages"`
}

// Format describes one registered format.
type Format struct {
	Name string `json:"name"`
	Lock bool   `json:"lock"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	names := s.cfg.Registry.Names()
	out := make([]Format, 0, len(names))
	for _, name := range names {
		c, err := s.cfg.Registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, Format{Name: name, Lock: c.Lock()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := s.converter(req.From, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := s.converter(req.To, "pip")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := converters.Convert(r.Context(), from, to, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Document{Format: to.Name(), Content: out})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	res, ok := s.resolve(w, r, &req)
	if !ok {
		return
	}
	to, err := s.converter(req.To, "piplock")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reqs, err := res.Flatten(!req.Unpinned)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := converters.Dumps(r.Context(), to, reqs, res.Project())
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkgs := make([]Package, len(reqs))
	for i, q := range reqs {
		pkgs[i] = Package{Name: q.Name, Version: q.Version, Hashes: q.Hashes}
	}
	writeJSON(w, http.StatusOK, LockResponse{
		Document: Document{Format: to.Name(), Content: out},
		Packages: pkgs,
	})
}

// handleGraph answers with the graph even when resolution failed; node
// states show where.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	res, ok := s.resolveGraph(w, r, &req)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = dio.WriteJSON(res.Graph().DAG(), w)
}

// resolve decodes a LockRequest and builds its graph. On failure it writes
// the error response and reports false.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, req *LockRequest) (*resolver.Resolver, bool) {
	res, err := s.build(w, r, req)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return res, true
}

// resolveGraph is resolve that tolerates a failed build.
func (s *Server) resolveGraph(w http.ResponseWriter, r *http.Request, req *LockRequest) (*resolver.Resolver, bool) {
	res, err := s.build(w, r, req)
	if res == nil {
		writeError(w, r, err)
		return nil, false
	}
	if err != nil {
		s.cfg.Logger.Warn("partial graph", "request_id", RequestID(r.Context()), "err", err)
	}
	return res, true
}

func (s *Server) build(w http.ResponseWriter, r *http.Request, req *LockRequest) (*resolver.Resolver, error) {
	if s.cfg.Source == nil {
		return nil, errNoSource
	}
	if err := s.decode(w, r, req); err != nil {
		return nil, err
	}
	from, err := s.converter(req.From, "")
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()
	return converters.LoadsResolver(ctx, from, req.Content, s.cfg.Source, s.cfg.Options)
}

// decode reads a JSON body. Content is required.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return derrors.Wrap(derrors.ErrCodeInvalidInput, err, "request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return derrors.New(derrors.ErrCodeInvalidInput, "empty request body")
		}
		return derrors.Wrap(derrors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	switch req := v.(type) {
	case *ConvertRequest:
		if req.Content == "" {
			return errNoContent
		}
	case *LockRequest:
		if req.Content == "" {
			return errNoContent
		}
	}
	return nil
}

// converter picks by format name, then by file name, then def.
func (s *Server) converter(ep Endpoint, def string) (converters.Converter, error) {
	switch {
	case ep.Format != "":
		return s.cfg.Registry.Get(ep.Format)
	case ep.Filename != "":
		if err := derrors.ValidateFilename(ep.Filename); err != nil {
			return nil, err
		}
		return s.cfg.Registry.Detect(ep.Filename)
	case def != "":
		return s.cfg.Registry.Get(def)
	}
	return nil, derrors.New(derrors.ErrCodeInvalidFormat, "a format or filename is required")
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      derrors.Code `json:"code"`
	Message   string       `json:"message"`
	RequestID string       `json:"request_id,omitempty"`
	Details   []string     `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := derrors.Classify(err)
	detail := errorDetail{
		Code:      code,
		Message:   derrors.UserMessage(err),
		RequestID: RequestID(r.Context()),
		Details:   details(err),
	}
	writeJSON(w, derrors.HTTPStatus(code), errorBody{Error: detail})
}

// details lists each conflict or unresolved node of a resolution error.
func details(err error) []string {
	var conflicts *resolver.ConflictsError
	var unresolved *resolver.UnresolvedGraphError
	switch {
	case errors.As(err, &conflicts):
		out := make([]string, len(conflicts.Conflicts))
		for i, c := range conflicts.Conflicts {
			out[i] = c.Error()
		}
		return out
	case errors.As(err, &unresolved):
		out := make([]string, len(unresolved.Nodes))
		for i, n := range unresolved.Nodes {
			out[i] = n.String()
		}
		return out
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
