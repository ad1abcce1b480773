// Package importer loads batches of glossary terms from JSON.
//
// A batch is a JSON array of term objects. Malformed JSON rejects the
// whole batch before any write. Well-formed batches are processed one
// element at a time, in order: invalid elements are skipped with a
// per-item message and the rest of the batch continues. There is no
// transaction and no rollback; terms created before a skip stay created.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/platform/apperrors"
)

// Item is one element of an import batch.
type Item struct {
	Name              string   `json:"name"`
	Definition        string   `json:"definition"`
	WhyItMatters      string   `json:"why_it_matters,omitempty"`
	LouisvilleContext string   `json:"louisville_context,omitempty"`
	DataStats         string   `json:"data_stats,omitempty"`
	CampaignAlignment string   `json:"campaign_alignment,omitempty"`
	Category          string   `json:"category,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Related           []string `json:"related,omitempty"`
	Priority          string   `json:"priority,omitempty"`
	Featured          bool     `json:"featured,omitempty"`
}

// Report summarizes one import run.
type Report struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// Importer creates glossary terms from parsed batches.
type Importer struct {
	svc *service.Service
}

// New creates an Importer writing through the given service.
func New(svc *service.Service) *Importer {
	return &Importer{svc: svc}
}

// ParseBatch decodes a JSON batch. A parse failure rejects the whole
// batch with a single invalid-input error.
func ParseBatch(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.E(apperrors.KindInvalidInput,
			fmt.Sprintf("malformed JSON batch: %v", err))
	}
	return items, nil
}

// Import creates a term for every valid item, in order. Unknown related
// slugs are dropped with a warning rather than failing the item, so a
// batch can be loaded before every cross-reference target exists.
func (imp *Importer) Import(ctx context.Context, items []Item) (Report, error) {
	if imp == nil || imp.svc == nil {
		return Report{}, errors.New("importer is not configured")
	}

	report := Report{Total: len(items), Errors: []string{}}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		input, itemErr := buildInput(item)
		if itemErr != "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %s", i+1, itemErr))
			continue
		}

		related, warnings, err := imp.filterRelated(ctx, i+1, input.Related)
		if err != nil {
			return report, err
		}
		input.Related = related
		report.Warnings = append(report.Warnings, warnings...)

		if _, err := imp.svc.Create(ctx, input); err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnknown {
				return report, fmt.Errorf("import item %d: %w", i+1, err)
			}
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %s", i+1, err.Error()))
			continue
		}
		report.Imported++
	}
	return report, nil
}

// ImportJSON parses and imports a raw batch in one step.
func (imp *Importer) ImportJSON(ctx context.Context, data []byte) (Report, error) {
	items, err := ParseBatch(data)
	if err != nil {
		return Report{}, err
	}
	return imp.Import(ctx, items)
}

// Validate checks a batch without writing anything. Related slugs are
// not resolved against the store, since earlier batch items would not
// exist yet.
func Validate(items []Item) Report {
	report := Report{Total: len(items), Errors: []string{}}
	for i, item := range items {
		if itemErr := validateItem(item); itemErr != "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("item %d: %s", i+1, itemErr))
			continue
		}
		report.Imported++
	}
	return report
}

func buildInput(item Item) (service.TermInput, string) {
	if msg := validateItem(item); msg != "" {
		return service.TermInput{}, msg
	}
	return service.TermInput{
		Name:              item.Name,
		Definition:        item.Definition,
		WhyItMatters:      item.WhyItMatters,
		LouisvilleContext: item.LouisvilleContext,
		DataStats:         item.DataStats,
		CampaignAlignment: item.CampaignAlignment,
		Category:          item.Category,
		Tags:              item.Tags,
		Related:           item.Related,
		Priority:          item.Priority,
		Featured:          item.Featured,
	}, ""
}

func validateItem(item Item) string {
	if strings.TrimSpace(item.Name) == "" {
		return "missing name field"
	}
	if strings.TrimSpace(item.Definition) == "" {
		return "missing definition field"
	}
	if _, err := domain.NormalizeCategory(item.Category); err != nil {
		return err.Error()
	}
	if _, err := domain.ParsePriority(item.Priority); err != nil {
		return err.Error()
	}
	return ""
}

func (imp *Importer) filterRelated(ctx context.Context, itemNumber int, related []string) ([]string, []string, error) {
	if len(related) == 0 {
		return nil, nil, nil
	}
	kept := make([]string, 0, len(related))
	var warnings []string
	for _, slug := range related {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		exists, err := imp.svc.Exists(ctx, slug)
		if err != nil {
			return nil, nil, fmt.Errorf("check related term %q: %w", slug, err)
		}
		if !exists {
			warnings = append(warnings,
				fmt.Sprintf("item %d: dropped unknown related term %q", itemNumber, slug))
			continue
		}
		kept = append(kept, slug)
	}
	return kept, warnings, nil
}
