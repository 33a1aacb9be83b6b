package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/matzehuels/dmlopt/pkg/buildinfo"
	"github.com/matzehuels/dmlopt/pkg/cache"
	"github.com/matzehuels/dmlopt/pkg/errors"
	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
	dmlio "github.com/matzehuels/dmlopt/pkg/io"
	"github.com/matzehuels/dmlopt/pkg/observability"
	"github.com/matzehuels/dmlopt/pkg/pipeline"
	"github.com/matzehuels/dmlopt/pkg/render/nodelink"
)

// ProgramSource is a program embedded in a request.
type ProgramSource struct {
	Unit   string `json:"unit,omitempty"`
	Format string `json:"format"`
	Source string `json:"source"`
}

// OptimizeRequest is the body of POST /v1/optimize.
type OptimizeRequest struct {
	Programs []ProgramSource `json:"programs"`
	// Format is the output encoding; empty keeps each program's format.
	Format   string   `json:"format,omitempty"`
	Disabled []string `json:"disabled,omitempty"`
	Refresh  bool     `json:"refresh,omitempty"`
}

// OptimizeResult is the outcome for one program.
type OptimizeResult struct {
	Unit        string         `json:"unit"`
	Format      string         `json:"format"`
	Program     string         `json:"program"`
	Applied     map[string]int `json:"applied"`
	CacheHit    bool           `json:"cache_hit"`
	NodesBefore int            `json:"nodes_before"`
	NodesAfter  int            `json:"nodes_after"`
}

// OptimizeResponse is the body returned by POST /v1/optimize.
type OptimizeResponse struct {
	RunID   string           `json:"run_id"`
	Results []OptimizeResult `json:"results"`
}

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	Program ProgramSource `json:"program"`
	// Format is svg, png or dot.
	Format   string `json:"format,omitempty"`
	Optimize bool   `json:"optimize,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

var renderContentTypes = map[string]string{
	"svg": "image/svg+xml",
	"png": "image/png",
	"dot": "text/vnd.graphviz",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"rules": rewrite.RuleNames(rewrite.DefaultRules())})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.cfg.Runner.Execute(r.Context(), pipeline.Options{
		Inputs:      lo.Map(req.Programs, func(p ProgramSource, _ int) pipeline.Input { return p.input() }),
		Format:      req.Format,
		Disabled:    lo.Union(s.cfg.Disabled, req.Disabled),
		Parallelism: s.cfg.Parallelism,
		Refresh:     req.Refresh,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := OptimizeResponse{RunID: results[0].RunID}
	for _, res := range results {
		resp.Results = append(resp.Results, OptimizeResult{
			Unit:        res.Unit,
			Format:      string(res.Format),
			Program:     string(res.Program),
			Applied:     res.Stats.Applied,
			CacheHit:    res.CacheHit,
			NodesBefore: res.Before,
			NodesAfter:  res.After,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = "svg"
	}
	if err := errors.ValidateFormat(req.Format, nodelink.Formats...); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Format = strings.ToLower(req.Format)

	in := req.Program.input()
	format, err := dmlio.ParseFormat(string(in.Format))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var prog *dmlio.Program
	if req.Optimize {
		results, err := s.cfg.Runner.Execute(r.Context(), pipeline.Options{
			Inputs:   []pipeline.Input{in},
			Disabled: s.cfg.Disabled,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		prog = results[0].Optimized
	} else if prog, err = dmlio.Read(bytes.NewReader(in.Data), format); err != nil {
		s.writeError(w, r, err)
		return
	}

	canonical, err := dmlio.Marshal(prog, dmlio.FormatJSON)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	key := s.cfg.Runner.Keyer.RenderKey(cache.Hash(canonical), cache.RenderKeyOpts{
		Format:   req.Format,
		Detailed: req.Detailed,
	})
	if data, hit, err := s.cfg.Runner.Cache.Get(ctx, key); err == nil && hit {
		writeBytes(w, renderContentTypes[req.Format], data)
		return
	}

	out, err := nodelink.Render(ctx, prog.Roots, req.Format, nodelink.Options{Detailed: req.Detailed})
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "render %s", req.Format))
		return
	}
	if err := s.cfg.Runner.Cache.Set(ctx, key, out, pipeline.DefaultTTL); err != nil {
		s.cfg.Logger.Warn("cache store failed", "err", err)
	}
	writeBytes(w, renderContentTypes[req.Format], out)
}

func (p ProgramSource) input() pipeline.Input {
	return pipeline.Input{Unit: p.Unit, Data: []byte(p.Source), Format: dmlio.Format(p.Format)}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	return nil
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidVariable, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeGraphInvalid, errors.ErrCodeStructural, errors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "path", r.URL.Path, "err", err)
		observability.HTTP().OnError(r.Context(), r.Method, chi.RouteContext(r.Context()).RoutePattern(), err)
	}
	writeJSON(w, status, ErrorResponse{
		Code:    string(code),
		Message: errors.UserMessage(err),
		Detail:  err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
