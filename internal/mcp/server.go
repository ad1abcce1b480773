// Package mcp exposes the glossary to MCP clients as read-only tools
// and resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
	"github.com/forward-louisville/glossary/internal/glossary/storage"
	"github.com/forward-louisville/glossary/internal/platform/timeouts"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Louisville Glossary MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"

	// termsResourceURI addresses the full published term listing.
	termsResourceURI = "glossary://terms"

	// resourcePageSize bounds each store read while assembling the
	// terms resource.
	resourcePageSize = 100
)

// Server hosts the glossary MCP server.
type Server struct {
	mcpServer *mcp.Server
	store     storage.TermStore
}

// TermView is the MCP-facing shape of a glossary term.
type TermView struct {
	Slug              string   `json:"slug"`
	Name              string   `json:"name"`
	Definition        string   `json:"definition"`
	WhyItMatters      string   `json:"why_it_matters,omitempty"`
	LouisvilleContext string   `json:"louisville_context,omitempty"`
	DataStats         string   `json:"data_stats,omitempty"`
	CampaignAlignment string   `json:"campaign_alignment,omitempty"`
	Category          string   `json:"category,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Related           []string `json:"related,omitempty"`
	Priority          string   `json:"priority"`
	Featured          bool     `json:"featured"`
}

// TermLookupInput selects a term by slug or display name.
type TermLookupInput struct {
	Slug string `json:"slug,omitempty"`
	Name string `json:"name,omitempty"`
}

// TermLookupResult is the term_lookup tool output.
type TermLookupResult struct {
	Term TermView `json:"term"`
}

// TermSearchInput is the term_search tool input.
type TermSearchInput struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// TermSearchResult is the term_search tool output.
type TermSearchResult struct {
	Terms []TermView `json:"terms"`
	Count int        `json:"count"`
}

// New creates a configured MCP server backed by the term store.
func New(store storage.TermStore) (*Server, error) {
	if store == nil {
		return nil, errors.New("term store is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, termLookupTool(), termLookupHandler(store))
	mcp.AddTool(mcpServer, termSearchTool(), termSearchHandler(store))
	mcpServer.AddResource(termsResource(), termsResourceHandler(store))

	return &Server{mcpServer: mcpServer, store: store}, nil
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeTransport(ctx, &mcp.StdioTransport{})
}

// ServeTransport starts the MCP server using the provided transport.
func (s *Server) ServeTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return errors.New("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// HTTPHandler returns a streamable HTTP handler serving this MCP server.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// termLookupTool defines the tool schema for single-term lookups.
func termLookupTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "term_lookup",
		Description: "Looks up one glossary term by slug or display name",
	}
}

func termLookupHandler(store storage.TermStore) mcp.ToolHandlerFor[TermLookupInput, TermLookupResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TermLookupInput) (*mcp.CallToolResult, TermLookupResult, error) {
		slug := strings.ToLower(strings.TrimSpace(input.Slug))
		if slug == "" {
			slug = domain.Slugify(input.Name)
		}
		if slug == "" {
			return nil, TermLookupResult{}, errors.New("slug or name is required")
		}

		runCtx, cancel := context.WithTimeout(ctx, timeouts.MCPToolCall)
		defer cancel()

		term, err := store.GetTerm(runCtx, slug)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, TermLookupResult{}, fmt.Errorf("term %q not found", slug)
		}
		if err != nil {
			return nil, TermLookupResult{}, fmt.Errorf("term lookup failed: %w", err)
		}
		return nil, TermLookupResult{Term: newTermView(term)}, nil
	}
}

// termSearchTool defines the tool schema for substring search.
func termSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "term_search",
		Description: "Searches glossary terms by name and definition, optionally within a category",
	}
}

func termSearchHandler(store storage.TermStore) mcp.ToolHandlerFor[TermSearchInput, TermSearchResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TermSearchInput) (*mcp.CallToolResult, TermSearchResult, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return nil, TermSearchResult{}, errors.New("query is required")
		}
		category, err := domain.NormalizeCategory(input.Category)
		if err != nil {
			return nil, TermSearchResult{}, err
		}

		runCtx, cancel := context.WithTimeout(ctx, timeouts.MCPToolCall)
		defer cancel()

		terms, err := store.SearchTerms(runCtx, query, category, input.Limit)
		if err != nil {
			return nil, TermSearchResult{}, fmt.Errorf("term search failed: %w", err)
		}

		result := TermSearchResult{Terms: make([]TermView, 0, len(terms)), Count: len(terms)}
		for _, term := range terms {
			result.Terms = append(result.Terms, newTermView(term))
		}
		return nil, result, nil
	}
}

// termsResource describes the full glossary listing resource.
func termsResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         termsResourceURI,
		Name:        "glossary-terms",
		Description: "All published glossary terms as JSON",
		MIMEType:    "application/json",
	}
}

func termsResourceHandler(store storage.TermStore) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
			return nil, errors.New("resource uri is required")
		}
		if req.Params.URI != termsResourceURI {
			return nil, fmt.Errorf("resource %q not found", req.Params.URI)
		}

		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		var views []TermView
		pageToken := ""
		for {
			page, err := store.ListTerms(runCtx, storage.TermFilter{}, resourcePageSize, pageToken)
			if err != nil {
				return nil, fmt.Errorf("list terms: %w", err)
			}
			for _, term := range page.Terms {
				views = append(views, newTermView(term))
			}
			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}

		data, err := json.MarshalIndent(map[string]any{"terms": views}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal term listing: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      termsResourceURI,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

func newTermView(term domain.Term) TermView {
	return TermView{
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
	}
}
