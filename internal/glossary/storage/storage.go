// Package storage defines persistence contracts for glossary terms.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
)

var (
	// ErrNotFound indicates a requested term is missing.
	ErrNotFound = errors.New("term not found")
	// ErrAlreadyExists indicates a term with the same slug already exists.
	ErrAlreadyExists = errors.New("term already exists")
	// ErrRelatedTermMissing indicates a related slug references no stored term.
	ErrRelatedTermMissing = errors.New("related term does not exist")
)

// TermFilter narrows term listings.
type TermFilter struct {
	Category     string
	Tag          string
	FeaturedOnly bool
}

// Key returns a stable string form of the filter for cursor validation.
func (f TermFilter) Key() string {
	if f == (TermFilter{}) {
		return ""
	}
	return fmt.Sprintf("category=%s|tag=%s|featured=%t",
		strings.ToLower(f.Category), strings.ToLower(f.Tag), f.FeaturedOnly)
}

// TermPage stores one page of term records.
type TermPage struct {
	Terms         []domain.Term
	NextPageToken string
}

// TermStore persists glossary terms.
type TermStore interface {
	CreateTerm(ctx context.Context, term domain.Term) error
	GetTerm(ctx context.Context, slug string) (domain.Term, error)
	UpdateTerm(ctx context.Context, term domain.Term) error
	DeleteTerm(ctx context.Context, slug string) error
	ListTerms(ctx context.Context, filter TermFilter, pageSize int, pageToken string) (TermPage, error)
	SearchTerms(ctx context.Context, query string, category string, limit int) ([]domain.Term, error)
	TermExists(ctx context.Context, slug string) (bool, error)
	CountTerms(ctx context.Context) (int64, error)
}
