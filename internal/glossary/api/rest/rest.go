// Package rest exposes the glossary over an HTTP/JSON API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
	"github.com/forward-louisville/glossary/internal/glossary/editorgrant"
	"github.com/forward-louisville/glossary/internal/glossary/importer"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/platform/apperrors"
	"github.com/forward-louisville/glossary/internal/platform/httpx"
)

// maxImportBodyBytes caps an import request body.
const maxImportBodyBytes = 4 << 20

// AuthConfig controls editor-grant enforcement on write routes.
type AuthConfig struct {
	// Enabled turns grant checks on. Local development runs without them.
	Enabled bool
	Grant   editorgrant.Config
}

// Handler serves the glossary API routes.
type Handler struct {
	svc  *service.Service
	imp  *importer.Importer
	auth AuthConfig
}

// NewHandler creates an API handler over the given service.
func NewHandler(svc *service.Service, imp *importer.Importer, auth AuthConfig) *Handler {
	return &Handler{svc: svc, imp: imp, auth: auth}
}

// Mux returns the route table for the API.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /v1/terms", h.handleListTerms)
	mux.HandleFunc("GET /v1/terms/{slug}", h.handleGetTerm)
	mux.Handle("POST /v1/terms", h.requireEditor(http.HandlerFunc(h.handleCreateTerm)))
	mux.Handle("PATCH /v1/terms/{slug}", h.requireEditor(http.HandlerFunc(h.handlePatchTerm)))
	mux.Handle("DELETE /v1/terms/{slug}", h.requireEditor(http.HandlerFunc(h.handleDeleteTerm)))
	mux.Handle("POST /v1/terms:import", h.requireEditor(http.HandlerFunc(h.handleImport)))
	return mux
}

type claimsContextKey struct{}

// ClaimsFrom returns the editor grant claims attached to the request
// context, if any.
func ClaimsFrom(ctx context.Context) (editorgrant.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(editorgrant.Claims)
	return claims, ok
}

// requireEditor gates a route behind a bearer editor grant.
func (h *Handler) requireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		claims, err := editorgrant.Validate(token, h.auth.Grant)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		ctx := context.WithValue(httpx.RequestContext(r), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Count(httpx.RequestContext(r)); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindUnavailable, "store is unavailable"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListTerms(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.ListRequest{
		Category:  query.Get("category"),
		Tag:       query.Get("tag"),
		PageToken: query.Get("page_token"),
	}
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "page_size must be an integer"))
			return
		}
		req.PageSize = size
	}
	if raw := strings.TrimSpace(query.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "featured must be a boolean"))
			return
		}
		req.FeaturedOnly = featured
	}

	page, err := h.svc.List(httpx.RequestContext(r), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	terms := make([]termResponse, 0, len(page.Terms))
	for _, term := range page.Terms {
		terms = append(terms, newTermResponse(term))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse{
		Terms:         terms,
		NextPageToken: page.NextPageToken,
	})
}

func (h *Handler) handleGetTerm(w http.ResponseWriter, r *http.Request) {
	term, err := h.svc.Get(httpx.RequestContext(r), r.PathValue("slug"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newTermResponse(term))
}

func (h *Handler) handleCreateTerm(w http.ResponseWriter, r *http.Request) {
	var body termRequest
	if err := decodeJSONBody(r, &body); err != nil {
		httpx.WriteError(w, err)
		return
	}
	term, err := h.svc.Create(httpx.RequestContext(r), body.toInput())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, newTermResponse(term))
}

func (h *Handler) handlePatchTerm(w http.ResponseWriter, r *http.Request) {
	var body patchRequest
	if err := decodeJSONBody(r, &body); err != nil {
		httpx.WriteError(w, err)
		return
	}
	term, err := h.svc.Update(httpx.RequestContext(r), r.PathValue("slug"), body.toPatch())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newTermResponse(term))
}

func (h *Handler) handleDeleteTerm(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(httpx.RequestContext(r), r.PathValue("slug")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.imp == nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindUnavailable, "importer is not configured"))
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBodyBytes+1))
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("read import body: %w", err))
		return
	}
	if len(data) > maxImportBodyBytes {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "import body is too large"))
		return
	}
	report, err := h.imp.ImportJSON(httpx.RequestContext(r), data)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, report)
}

// termRequest is the write payload for creating a term.
type termRequest struct {
	Name              string   `json:"name"`
	Definition        string   `json:"definition"`
	WhyItMatters      string   `json:"why_it_matters"`
	LouisvilleContext string   `json:"louisville_context"`
	DataStats         string   `json:"data_stats"`
	CampaignAlignment string   `json:"campaign_alignment"`
	Category          string   `json:"category"`
	Tags              []string `json:"tags"`
	Related           []string `json:"related"`
	Priority          string   `json:"priority"`
	Featured          bool     `json:"featured"`
}

func (req termRequest) toInput() service.TermInput {
	return service.TermInput{
		Name:              req.Name,
		Definition:        req.Definition,
		WhyItMatters:      req.WhyItMatters,
		LouisvilleContext: req.LouisvilleContext,
		DataStats:         req.DataStats,
		CampaignAlignment: req.CampaignAlignment,
		Category:          req.Category,
		Tags:              req.Tags,
		Related:           req.Related,
		Priority:          req.Priority,
		Featured:          req.Featured,
	}
}

// patchRequest is the partial-update payload; absent fields stay unchanged.
type patchRequest struct {
	Name              *string  `json:"name"`
	Definition        *string  `json:"definition"`
	WhyItMatters      *string  `json:"why_it_matters"`
	LouisvilleContext *string  `json:"louisville_context"`
	DataStats         *string  `json:"data_stats"`
	CampaignAlignment *string  `json:"campaign_alignment"`
	Category          *string  `json:"category"`
	Tags              []string `json:"tags"`
	Related           []string `json:"related"`
	Priority          *string  `json:"priority"`
	Featured          *bool    `json:"featured"`
}

func (req patchRequest) toPatch() service.TermPatch {
	return service.TermPatch{
		Name:              req.Name,
		Definition:        req.Definition,
		WhyItMatters:      req.WhyItMatters,
		LouisvilleContext: req.LouisvilleContext,
		DataStats:         req.DataStats,
		CampaignAlignment: req.CampaignAlignment,
		Category:          req.Category,
		Tags:              req.Tags,
		Related:           req.Related,
		Priority:          req.Priority,
		Featured:          req.Featured,
	}
}

type termResponse struct {
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Definition        string    `json:"definition"`
	WhyItMatters      string    `json:"why_it_matters,omitempty"`
	LouisvilleContext string    `json:"louisville_context,omitempty"`
	DataStats         string    `json:"data_stats,omitempty"`
	CampaignAlignment string    `json:"campaign_alignment,omitempty"`
	Category          string    `json:"category,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	Related           []string  `json:"related,omitempty"`
	Priority          string    `json:"priority"`
	Featured          bool      `json:"featured"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type listResponse struct {
	Terms         []termResponse `json:"terms"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func newTermResponse(term domain.Term) termResponse {
	return termResponse{
		Slug:              term.Slug,
		Name:              term.Name,
		Definition:        term.Definition,
		WhyItMatters:      term.WhyItMatters,
		LouisvilleContext: term.LouisvilleContext,
		DataStats:         term.DataStats,
		CampaignAlignment: term.CampaignAlignment,
		Category:          term.Category,
		Tags:              term.Tags,
		Related:           term.Related,
		Priority:          string(term.Priority),
		Featured:          term.Featured,
		CreatedAt:         term.CreatedAt,
		UpdatedAt:         term.UpdatedAt,
	}
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.E(apperrors.KindInvalidInput, "request body is required")
		}
		return apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("malformed JSON body: %v", err))
	}
	return nil
}
