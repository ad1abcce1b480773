package importer

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forward-louisville/glossary/internal/glossary/service"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite"
	"github.com/forward-louisville/glossary/internal/platform/apperrors"
)

func newTestImporter(t *testing.T) (*Importer, *service.Service) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "glossary.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	svc := service.New(store)
	return New(svc), svc
}

func TestImportJSONWellFormedBatch(t *testing.T) {
	t.Parallel()
	imp, svc := newTestImporter(t)
	ctx := context.Background()

	batch := `[
		{"name": "Living Wage", "definition": "Pay that covers basic local costs.", "category": "Jobs & Wages", "priority": "campaign", "featured": true},
		{"name": "Fare-Free Transit", "definition": "Public transit with no rider fares.", "category": "Transit & Infrastructure", "tags": ["tarc", "transit"]},
		{"name": "Accessory Dwelling Unit", "definition": "A small secondary home on a residential lot.", "category": "Housing"}
	]`

	report, err := imp.ImportJSON(ctx, []byte(batch))
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	want := Report{Total: 3, Imported: 3, Skipped: 0, Errors: []string{}}
	if !reflect.DeepEqual(report, want) {
		t.Fatalf("report = %+v, want %+v", report, want)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("Count() = %d, want 3", count)
	}
}

func TestImportSkipsItemsMissingRequiredFields(t *testing.T) {
	t.Parallel()
	imp, svc := newTestImporter(t)
	ctx := context.Background()

	batch := `[
		{"name": "Living Wage", "definition": "Pay that covers basic local costs."},
		{"definition": "missing name"},
		{"name": "No Definition"}
	]`

	report, err := imp.ImportJSON(ctx, []byte(batch))
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if report.Total != 3 || report.Imported != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want total 3, imported 1, skipped 2", report)
	}
	wantErrors := []string{
		"item 2: missing name field",
		"item 3: missing definition field",
	}
	if !reflect.DeepEqual(report.Errors, wantErrors) {
		t.Fatalf("Errors = %v, want %v", report.Errors, wantErrors)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}
}

func TestImportMalformedJSONWritesNothing(t *testing.T) {
	t.Parallel()
	imp, svc := newTestImporter(t)
	ctx := context.Background()

	_, err := imp.ImportJSON(ctx, []byte(`[{"name": "Broken"`))
	if apperrors.KindOf(err) != apperrors.KindInvalidInput {
		t.Fatalf("ImportJSON() error = %v, want invalid input", err)
	}
	if !strings.Contains(err.Error(), "malformed JSON batch") {
		t.Fatalf("error = %q, want malformed JSON batch message", err)
	}

	count, err := svc.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}
}

func TestImportSkipsUnknownCategoryAndPriority(t *testing.T) {
	t.Parallel()
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	batch := `[
		{"name": "A", "definition": "d", "category": "Potholes"},
		{"name": "B", "definition": "d", "priority": "urgent"}
	]`
	report, err := imp.ImportJSON(ctx, []byte(batch))
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if report.Imported != 0 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want 0 imported, 2 skipped", report)
	}
	if !strings.Contains(report.Errors[0], `unknown category "Potholes"`) {
		t.Fatalf("Errors[0] = %q, want unknown category", report.Errors[0])
	}
	if !strings.Contains(report.Errors[1], `invalid priority "urgent"`) {
		t.Fatalf("Errors[1] = %q, want invalid priority", report.Errors[1])
	}
}

func TestImportDropsUnknownRelatedWithWarning(t *testing.T) {
	t.Parallel()
	imp, svc := newTestImporter(t)
	ctx := context.Background()

	batch := `[
		{"name": "Living Wage", "definition": "Pay that covers basic local costs."},
		{"name": "Minimum Wage", "definition": "The legal pay floor.", "related": ["living-wage", "prevailing-wage"]}
	]`
	report, err := imp.ImportJSON(ctx, []byte(batch))
	if err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}
	if report.Imported != 2 || report.Skipped != 0 {
		t.Fatalf("report = %+v, want 2 imported", report)
	}
	wantWarnings := []string{`item 2: dropped unknown related term "prevailing-wage"`}
	if !reflect.DeepEqual(report.Warnings, wantWarnings) {
		t.Fatalf("Warnings = %v, want %v", report.Warnings, wantWarnings)
	}

	term, err := svc.Get(ctx, "minimum-wage")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if want := []string{"living-wage"}; !reflect.DeepEqual(term.Related, want) {
		t.Fatalf("Related = %v, want %v", term.Related, want)
	}
}

func TestReimportCreatesSuffixedDuplicates(t *testing.T) {
	t.Parallel()
	imp, svc := newTestImporter(t)
	ctx := context.Background()

	batch := []byte(`[{"name": "Living Wage", "definition": "Pay that covers basic local costs."}]`)
	for i := 0; i < 2; i++ {
		report, err := imp.ImportJSON(ctx, batch)
		if err != nil {
			t.Fatalf("ImportJSON() run %d error = %v", i+1, err)
		}
		if report.Imported != 1 {
			t.Fatalf("run %d imported = %d, want 1", i+1, report.Imported)
		}
	}

	for _, slug := range []string{"living-wage", "living-wage-2"} {
		if _, err := svc.Get(ctx, slug); err != nil {
			t.Fatalf("Get(%q) error = %v", slug, err)
		}
	}
}

func TestValidateChecksWithoutWriting(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Name: "Living Wage", Definition: "Pay that covers basic local costs."},
		{Definition: "missing name"},
	}
	report := Validate(items)
	if report.Total != 2 || report.Imported != 1 || report.Skipped != 1 {
		t.Fatalf("report = %+v, want total 2, imported 1, skipped 1", report)
	}
	if want := []string{"item 2: missing name field"}; !reflect.DeepEqual(report.Errors, want) {
		t.Fatalf("Errors = %v, want %v", report.Errors, want)
	}
}
