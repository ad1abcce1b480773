// Package service implements glossary term operations over a term store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
	"github.com/forward-louisville/glossary/internal/glossary/storage"
	"github.com/forward-louisville/glossary/internal/platform/apperrors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxSlugAttempts bounds collision retries when deriving a unique slug.
	maxSlugAttempts = 50
)

// Service coordinates term operations and validation.
type Service struct {
	store storage.TermStore
	now   func() time.Time
}

// New creates a Service backed by the given store.
func New(store storage.TermStore) *Service {
	return &Service{store: store, now: time.Now}
}

// NewWithClock creates a Service with a fixed clock, for tests.
func NewWithClock(store storage.TermStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// TermInput carries the writable fields of a term.
type TermInput struct {
	Name              string
	Definition        string
	WhyItMatters      string
	LouisvilleContext string
	DataStats         string
	CampaignAlignment string
	Category          string
	Tags              []string
	Related           []string
	Priority          string
	Featured          bool
}

// ListRequest narrows and pages a term listing.
type ListRequest struct {
	Category     string
	Tag          string
	FeaturedOnly bool
	PageSize     int
	PageToken    string
}

// Create validates input, derives a unique slug, and stores a new term.
// Slug collisions retry with a numeric suffix, so identical names produce
// distinct entities rather than failures.
func (s *Service) Create(ctx context.Context, input TermInput) (domain.Term, error) {
	if s == nil || s.store == nil {
		return domain.Term{}, errors.New("service is not configured")
	}

	term, err := s.buildTerm(ctx, input)
	if err != nil {
		return domain.Term{}, err
	}

	base := domain.Slugify(term.Name)
	if base == "" {
		return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, "name produces an empty slug")
	}

	now := s.now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		term.Slug = domain.NextSlug(base, attempt)
		err := s.store.CreateTerm(ctx, term)
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if errors.Is(err, storage.ErrRelatedTermMissing) {
			return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
		}
		if err != nil {
			return domain.Term{}, fmt.Errorf("create term: %w", err)
		}
		return s.Get(ctx, term.Slug)
	}
	return domain.Term{}, apperrors.E(apperrors.KindConflict,
		fmt.Sprintf("could not derive a free slug for %q", term.Name))
}

// Get returns one term by slug.
func (s *Service) Get(ctx context.Context, slug string) (domain.Term, error) {
	if s == nil || s.store == nil {
		return domain.Term{}, errors.New("service is not configured")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, "slug is required")
	}
	term, err := s.store.GetTerm(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Term{}, apperrors.E(apperrors.KindNotFound, fmt.Sprintf("term %q not found", slug))
	}
	if err != nil {
		return domain.Term{}, fmt.Errorf("get term: %w", err)
	}
	return term, nil
}

// TermPatch carries optional field updates; nil fields stay unchanged.
type TermPatch struct {
	Name              *string
	Definition        *string
	WhyItMatters      *string
	LouisvilleContext *string
	DataStats         *string
	CampaignAlignment *string
	Category          *string
	Tags              []string
	Related           []string
	Priority          *string
	Featured          *bool
}

// Update applies a partial update to a stored term. The slug is stable:
// renaming a term does not re-derive it.
func (s *Service) Update(ctx context.Context, slug string, patch TermPatch) (domain.Term, error) {
	if s == nil || s.store == nil {
		return domain.Term{}, errors.New("service is not configured")
	}

	term, err := s.Get(ctx, slug)
	if err != nil {
		return domain.Term{}, err
	}

	if patch.Name != nil {
		term.Name = *patch.Name
	}
	if patch.Definition != nil {
		term.Definition = *patch.Definition
	}
	if patch.WhyItMatters != nil {
		term.WhyItMatters = strings.TrimSpace(*patch.WhyItMatters)
	}
	if patch.LouisvilleContext != nil {
		term.LouisvilleContext = strings.TrimSpace(*patch.LouisvilleContext)
	}
	if patch.DataStats != nil {
		term.DataStats = strings.TrimSpace(*patch.DataStats)
	}
	if patch.CampaignAlignment != nil {
		term.CampaignAlignment = strings.TrimSpace(*patch.CampaignAlignment)
	}
	if patch.Category != nil {
		term.Category = *patch.Category
	}
	if patch.Tags != nil {
		term.Tags = patch.Tags
	}
	if patch.Related != nil {
		term.Related = patch.Related
	}
	if patch.Priority != nil {
		priority, err := domain.ParsePriority(*patch.Priority)
		if err != nil {
			return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
		}
		term.Priority = priority
	}
	if patch.Featured != nil {
		term.Featured = *patch.Featured
	}

	if err := term.Validate(); err != nil {
		return domain.Term{}, err
	}
	if err := s.checkRelated(ctx, term.Related); err != nil {
		return domain.Term{}, err
	}

	term.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTerm(ctx, term); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Term{}, apperrors.E(apperrors.KindNotFound, fmt.Sprintf("term %q not found", term.Slug))
		}
		if errors.Is(err, storage.ErrRelatedTermMissing) {
			return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
		}
		return domain.Term{}, fmt.Errorf("update term: %w", err)
	}
	return s.Get(ctx, term.Slug)
}

// Delete removes a term. Links from other terms to it are cleared.
func (s *Service) Delete(ctx context.Context, slug string) error {
	if s == nil || s.store == nil {
		return errors.New("service is not configured")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return apperrors.E(apperrors.KindInvalidInput, "slug is required")
	}
	err := s.store.DeleteTerm(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.E(apperrors.KindNotFound, fmt.Sprintf("term %q not found", slug))
	}
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// List returns one page of terms matching the request.
func (s *Service) List(ctx context.Context, req ListRequest) (storage.TermPage, error) {
	if s == nil || s.store == nil {
		return storage.TermPage{}, errors.New("service is not configured")
	}

	category, err := domain.NormalizeCategory(req.Category)
	if err != nil {
		return storage.TermPage{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := storage.TermFilter{
		Category:     category,
		Tag:          strings.TrimSpace(req.Tag),
		FeaturedOnly: req.FeaturedOnly,
	}
	page, err := s.store.ListTerms(ctx, filter, pageSize, req.PageToken)
	if err != nil {
		if strings.Contains(err.Error(), "page token") {
			return storage.TermPage{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
		}
		return storage.TermPage{}, fmt.Errorf("list terms: %w", err)
	}
	return page, nil
}

// Search returns terms matching the query in name or definition.
func (s *Service) Search(ctx context.Context, query, category string, limit int) ([]domain.Term, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("service is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.E(apperrors.KindInvalidInput, "search query is required")
	}
	normalized, err := domain.NormalizeCategory(category)
	if err != nil {
		return nil, apperrors.E(apperrors.KindInvalidInput, err.Error())
	}
	terms, err := s.store.SearchTerms(ctx, query, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("search terms: %w", err)
	}
	return terms, nil
}

// Exists reports whether a term with the given slug is stored.
func (s *Service) Exists(ctx context.Context, slug string) (bool, error) {
	if s == nil || s.store == nil {
		return false, errors.New("service is not configured")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return false, nil
	}
	return s.store.TermExists(ctx, slug)
}

// Count returns the number of stored terms.
func (s *Service) Count(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("service is not configured")
	}
	return s.store.CountTerms(ctx)
}

func (s *Service) buildTerm(ctx context.Context, input TermInput) (domain.Term, error) {
	term := domain.Term{
		Name:              input.Name,
		Definition:        input.Definition,
		WhyItMatters:      strings.TrimSpace(input.WhyItMatters),
		LouisvilleContext: strings.TrimSpace(input.LouisvilleContext),
		DataStats:         strings.TrimSpace(input.DataStats),
		CampaignAlignment: strings.TrimSpace(input.CampaignAlignment),
		Category:          input.Category,
		Tags:              input.Tags,
		Related:           input.Related,
		Featured:          input.Featured,
	}
	priority, err := domain.ParsePriority(input.Priority)
	if err != nil {
		return domain.Term{}, apperrors.E(apperrors.KindInvalidInput, err.Error())
	}
	term.Priority = priority

	if err := term.Validate(); err != nil {
		return domain.Term{}, err
	}
	if err := s.checkRelated(ctx, term.Related); err != nil {
		return domain.Term{}, err
	}
	return term, nil
}

func (s *Service) checkRelated(ctx context.Context, related []string) error {
	for _, slug := range related {
		exists, err := s.store.TermExists(ctx, slug)
		if err != nil {
			return fmt.Errorf("check related term %q: %w", slug, err)
		}
		if !exists {
			return apperrors.E(apperrors.KindInvalidInput,
				fmt.Sprintf("related term %q does not exist", slug))
		}
	}
	return nil
}
