// Package httpapi serves classification, history and taxonomy lookups over
// JSON HTTP.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/joelkehle/ssfinder/internal/classify"
	"github.com/joelkehle/ssfinder/internal/enrich"
	"github.com/joelkehle/ssfinder/internal/jobdesc"
	"github.com/joelkehle/ssfinder/internal/llm"
	"github.com/joelkehle/ssfinder/internal/render"
	"github.com/joelkehle/ssfinder/internal/store"
	"github.com/joelkehle/ssfinder/internal/taxonomy"
)

const defaultMaxBody = 1 << 20

type Searcher interface {
	Search(ctx context.Context, jobTitle, company string) []enrich.Posting
}

type Describer interface {
	Describe(ctx context.Context, req jobdesc.Request) (string, bool)
}

type PDFRenderer interface {
	Render(ctx context.Context, rec store.Record) ([]byte, error)
}

type Options struct {
	Engine *classify.Engine
	Store  *store.Store
	// Credential resolves the AI credential for a request; nil means only
	// the request's own key is used.
	Credential func(requested string) string
	Searcher   Searcher
	// NewDescriber builds a description generator for a credential.
	NewDescriber func(apiKey string) Describer
	PDF          PDFRenderer
	MaxBodyBytes int64
}

type Server struct {
	opts Options
}

func NewServer(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.Credential == nil {
		opts.Credential = func(requested string) string { return strings.TrimSpace(requested) }
	}
	s := &Server{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/classify", s.handleClassify)
	mux.HandleFunc("/v1/classifications", s.handleListClassifications)
	mux.HandleFunc("/v1/classifications/", s.handleClassification)
	mux.HandleFunc("/v1/taxonomy/", s.handleTaxonomy)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, err error) {
	var ae *Error
	if errors.As(err, &ae) {
		payload := map[string]any{
			"ok": false,
			"error": map[string]any{
				"code":      ae.Code,
				"message":   ae.Message,
				"transient": ae.Transient,
			},
		}
		if ae.RetryAfter > 0 {
			payload["error"].(map[string]any)["retry_after"] = ae.RetryAfter
			w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfter))
		}
		writeJSON(w, ae.Status, payload)
		return
	}
	log.Printf("ssfinder http internal error: %v", err)
	writeJSON(w, 500, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      CodeInternal,
			"message":   err.Error(),
			"transient": true,
		},
	})
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(blob)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type classifyRequest struct {
	Company             string `json:"company"`
	JobTitle            string `json:"job_title"`
	JobDescription      string `json:"job_description"`
	APIKey              string `json:"api_key"`
	WebSearch           bool   `json:"web_search"`
	GenerateDescription bool   `json:"generate_description"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r, s.opts.MaxBodyBytes)
	if err != nil {
		writeAPIError(w, validationError(err.Error()))
		return
	}
	var req classifyRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeAPIError(w, jsonError(err))
		return
	}
	if k := strings.TrimSpace(req.APIKey); k != "" {
		if err := llm.ValidateAPIKey(k); err != nil {
			writeAPIError(w, validationError(err.Error()))
			return
		}
	}
	q := classify.Query{
		Company:        req.Company,
		JobTitle:       req.JobTitle,
		JobDescription: req.JobDescription,
		AICredential:   s.opts.Credential(req.APIKey),
	}.Sanitize()
	if err := q.Validate(); err != nil {
		writeAPIError(w, validationFromJoined(err))
		return
	}

	if r.URL.Query().Get("stream") == "1" {
		s.streamClassify(w, r, req, q)
		return
	}
	rec, summary, err := s.classify(r.Context(), req, q, nil)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":             true,
		"id":             rec.ID,
		"result":         rec.Result,
		"trace":          rec.Trace,
		"summary":        summary,
		"classification": rec,
	})
}

// classify runs the optional description step, classifies and saves.
func (s *Server) classify(ctx context.Context, req classifyRequest, q classify.Query, progress classify.StageProgressFn) (store.Record, string, error) {
	if req.GenerateDescription && s.opts.NewDescriber != nil && q.AICredential != "" {
		refs := ""
		if req.WebSearch && s.opts.Searcher != nil {
			if progress != nil {
				progress("web_search", "searching job portals")
			}
			refs = enrich.FormatPostings(s.opts.Searcher.Search(ctx, q.JobTitle, q.Company))
		}
		if progress != nil {
			progress("job_description", "generating job description")
		}
		desc, _ := s.opts.NewDescriber(q.AICredential).Describe(ctx, jobdesc.Request{
			Company:            q.Company,
			JobTitle:           q.JobTitle,
			InitialDescription: q.JobDescription,
			References:         refs,
		})
		q.JobDescription = desc
	}

	res, tr := s.opts.Engine.ClassifyWithProgress(ctx, q, progress)
	rec, err := s.opts.Store.Save(ctx, store.Record{Source: store.SourceAPI, Query: q, Result: res, Trace: tr})
	if err != nil {
		return store.Record{}, "", err
	}
	return rec, classify.Summary(res), nil
}

func (s *Server) streamClassify(w http.ResponseWriter, r *http.Request, req classifyRequest, q classify.Query) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIError(w, newError(CodeInternal, "streaming unsupported", false))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	send := func(event string, data any) {
		blob, err := json.Marshal(data)
		if err != nil {
			return
		}
		fmt.Fprintf(bw, "event: %s\ndata: %s\n\n", event, blob)
		if err := bw.Flush(); err != nil {
			return
		}
		flusher.Flush()
	}
	rec, summary, err := s.classify(r.Context(), req, q, func(stage, message string) {
		send("progress", map[string]string{"stage": stage, "message": message})
	})
	if err != nil {
		send("error", map[string]any{"message": err.Error()})
		return
	}
	send("result", map[string]any{"id": rec.ID, "result": rec.Result, "trace": rec.Trace, "summary": summary})
}

func (s *Server) handleListClassifications(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	recs, err := s.opts.Store.List(r.Context(), store.ListFilter{
		Company: q.Get("company"),
		Source:  q.Get("source"),
		Limit:   parseInt(q.Get("limit"), 50),
		Offset:  parseInt(q.Get("offset"), 0),
	})
	if err != nil {
		writeAPIError(w, err)
		return
	}
	total, err := s.opts.Store.Count(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "classifications": recs, "total": total})
}

// handleClassification serves /v1/classifications/{id} and
// /v1/classifications/{id}/report.
func (s *Server) handleClassification(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/classifications/"), "/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" || (rest != "" && rest != "report") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rec, err := s.opts.Store.Get(r.Context(), id)
	if err != nil {
		writeAPIError(w, asAPIError(err))
		return
	}
	if rest == "" {
		writeJSON(w, 200, map[string]any{"ok": true, "classification": rec, "trace": rec.Trace, "summary": classify.Summary(rec.Result)})
		return
	}
	s.writeReport(w, r, rec)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, rec store.Record) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		doc, err := render.HTML(rec)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = io.WriteString(w, doc)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(200)
		_, _ = io.WriteString(w, render.Markdown(rec))
	case "pdf":
		if s.opts.PDF == nil {
			writeAPIError(w, unavailable("pdf rendering is not configured"))
			return
		}
		pdf, err := s.opts.PDF.Render(r.Context(), rec)
		if err != nil {
			log.Printf("ssfinder pdf render id=%s failed: %v", rec.ID, err)
			writeAPIError(w, unavailable("pdf rendering failed"))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="classification-%s.pdf"`, rec.ID))
		w.WriteHeader(200)
		_, _ = w.Write(pdf)
	default:
		writeAPIError(w, validationError(fmt.Sprintf("unknown report format %q", format)))
	}
}

// handleTaxonomy serves /v1/taxonomy/{name}/{code} and
// /v1/taxonomy/{name}/search.
func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/taxonomy/"), "/")
	name, code, ok := strings.Cut(path, "/")
	if !ok || code == "" || strings.Contains(code, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	tbl, err := s.opts.Engine.Table(name)
	if err != nil {
		writeAPIError(w, notFound(err.Error()))
		return
	}

	if code == "search" {
		q := r.URL.Query()
		results, err := s.opts.Engine.SearchTitles(name, q.Get("q"), parseInt(q.Get("limit"), 10))
		if err != nil {
			writeAPIError(w, validationError(err.Error()))
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "taxonomy": tbl.Name(), "results": results})
		return
	}

	row, found := tbl.Lookup(code)
	if !found {
		writeAPIError(w, notFound(fmt.Sprintf("%s code %s not found", tbl.Name(), code)))
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":        true,
		"taxonomy":  tbl.Name(),
		"row":       row,
		"ancestors": tbl.Ancestors(row.Code),
		"children":  tbl.Children(row.Code),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	ssic, _ := s.opts.Engine.Table(taxonomy.SSIC)
	ssoc, _ := s.opts.Engine.Table(taxonomy.SSOC)
	total, err := s.opts.Store.Count(r.Context())
	if err != nil {
		writeAPIError(w, unavailable("store: "+err.Error()))
		return
	}
	writeJSON(w, 200, map[string]any{
		"ok":              true,
		"ssic_rows":       ssic.Len(),
		"ssoc_rows":       ssoc.Len(),
		"classifications": total,
		"ai_default":      s.opts.Credential("") != "",
	})
}
