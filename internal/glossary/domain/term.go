// Package domain defines the glossary term entity and its validation rules.
package domain

import (
	"strings"
	"time"

	"github.com/forward-louisville/glossary/internal/platform/apperrors"
)

// Term is a glossary definition plus campaign-specific annotations.
type Term struct {
	Slug              string
	Name              string
	Definition        string
	WhyItMatters      string
	LouisvilleContext string
	DataStats         string
	CampaignAlignment string
	Category          string
	Tags              []string
	Related           []string
	Priority          Priority
	Featured          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks required fields and normalizes category, tags, and
// related slugs in place.
func (t *Term) Validate() error {
	if t == nil {
		return apperrors.E(apperrors.KindInvalidInput, "term is required")
	}
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return apperrors.E(apperrors.KindInvalidInput, "missing name field")
	}
	t.Definition = strings.TrimSpace(t.Definition)
	if t.Definition == "" {
		return apperrors.E(apperrors.KindInvalidInput, "missing definition field")
	}

	category, err := NormalizeCategory(t.Category)
	if err != nil {
		return apperrors.E(apperrors.KindInvalidInput, err.Error())
	}
	t.Category = category

	if t.Priority == "" {
		t.Priority = PriorityNormal
	} else if _, err := ParsePriority(string(t.Priority)); err != nil {
		return apperrors.E(apperrors.KindInvalidInput, err.Error())
	}

	t.Tags = DedupeTags(t.Tags)

	related := make([]string, 0, len(t.Related))
	seen := make(map[string]struct{}, len(t.Related))
	for _, slug := range t.Related {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		if slug == t.Slug && t.Slug != "" {
			return apperrors.E(apperrors.KindInvalidInput, "term cannot relate to itself")
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		related = append(related, slug)
	}
	t.Related = related
	return nil
}

// DedupeTags trims tags and drops case-insensitive duplicates, preserving
// the first spelling seen.
func DedupeTags(tags []string) []string {
	deduped := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, tag)
	}
	return deduped
}
