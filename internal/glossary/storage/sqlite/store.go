// Package sqlite provides a SQLite-backed term storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/forward-louisville/glossary/internal/glossary/domain"
	"github.com/forward-louisville/glossary/internal/glossary/storage"
	"github.com/forward-louisville/glossary/internal/glossary/storage/cursor"
	"github.com/forward-louisville/glossary/internal/glossary/storage/sqlite/migrations"
	"github.com/forward-louisville/glossary/internal/platform/storage/sqlitemigrate"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists glossary terms in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite term store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateTerm inserts one term with its tags and related links.
func (s *Store) CreateTerm(ctx context.Context, term domain.Term) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	slug := strings.TrimSpace(term.Slug)
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if strings.TrimSpace(term.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(term.Definition) == "" {
		return fmt.Errorf("definition is required")
	}
	createdAt := term.CreatedAt.UTC()
	updatedAt := term.UpdatedAt.UTC()
	if createdAt.IsZero() && updatedAt.IsZero() {
		createdAt = time.Now().UTC()
		updatedAt = createdAt
	} else {
		if createdAt.IsZero() {
			createdAt = updatedAt
		}
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
	}
	priority := term.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create term: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO terms (
		   slug,
		   name,
		   definition,
		   why_it_matters,
		   louisville_context,
		   data_stats,
		   campaign_alignment,
		   category,
		   priority,
		   priority_rank,
		   featured,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slug,
		term.Name,
		term.Definition,
		term.WhyItMatters,
		term.LouisvilleContext,
		term.DataStats,
		term.CampaignAlignment,
		term.Category,
		string(priority),
		priority.Rank(),
		boolToInt(term.Featured),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create term: %w", err)
	}

	if err := insertTags(ctx, tx, slug, term.Tags); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, slug, term.Related); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create term: %w", err)
	}
	return nil
}

// GetTerm returns one term by slug, with tags and related links.
func (s *Store) GetTerm(ctx context.Context, slug string) (domain.Term, error) {
	if err := ctx.Err(); err != nil {
		return domain.Term{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Term{}, fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Term{}, fmt.Errorf("slug is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT slug, name, definition, why_it_matters, louisville_context,
		        data_stats, campaign_alignment, category, priority, featured,
		        created_at, updated_at
		   FROM terms
		  WHERE slug = ?`,
		slug,
	)
	term, err := scanTerm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Term{}, storage.ErrNotFound
		}
		return domain.Term{}, fmt.Errorf("get term: %w", err)
	}

	if term.Tags, err = s.termTags(ctx, slug); err != nil {
		return domain.Term{}, err
	}
	if term.Related, err = s.termLinks(ctx, slug); err != nil {
		return domain.Term{}, err
	}
	return term, nil
}

// UpdateTerm replaces a stored term's fields, tags, and related links.
func (s *Store) UpdateTerm(ctx context.Context, term domain.Term) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	slug := strings.TrimSpace(term.Slug)
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	updatedAt := term.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	priority := term.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update term: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE terms
		    SET name = ?,
		        definition = ?,
		        why_it_matters = ?,
		        louisville_context = ?,
		        data_stats = ?,
		        campaign_alignment = ?,
		        category = ?,
		        priority = ?,
		        priority_rank = ?,
		        featured = ?,
		        updated_at = ?
		  WHERE slug = ?`,
		term.Name,
		term.Definition,
		term.WhyItMatters,
		term.LouisvilleContext,
		term.DataStats,
		term.CampaignAlignment,
		term.Category,
		string(priority),
		priority.Rank(),
		boolToInt(term.Featured),
		toMillis(updatedAt),
		slug,
	)
	if err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update term rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM term_tags WHERE term_slug = ?`, slug); err != nil {
		return fmt.Errorf("clear term tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM term_links WHERE term_slug = ?`, slug); err != nil {
		return fmt.Errorf("clear term links: %w", err)
	}
	if err := insertTags(ctx, tx, slug, term.Tags); err != nil {
		return err
	}
	if err := insertLinks(ctx, tx, slug, term.Related); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update term: %w", err)
	}
	return nil
}

// DeleteTerm removes a term. Tags and links referencing it, in either
// direction, are cleared by foreign key cascade.
func (s *Store) DeleteTerm(ctx context.Context, slug string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Errorf("slug is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM terms WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete term rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTerms returns one page of terms ordered by priority rank then slug.
func (s *Store) ListTerms(ctx context.Context, filter storage.TermFilter, pageSize int, pageToken string) (storage.TermPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.TermPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TermPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.TermPage{}, fmt.Errorf("page size must be greater than zero")
	}

	filterHash := cursor.HashFilter(filter.Key())
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if category := strings.TrimSpace(filter.Category); category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, category)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM term_tags WHERE term_slug = terms.slug AND tag = ? COLLATE NOCASE)")
		args = append(args, tag)
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "featured = 1")
	}
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		decoded, err := cursor.Decode(pageToken)
		if err != nil {
			return storage.TermPage{}, fmt.Errorf("decode page token: %w", err)
		}
		if decoded.FilterHash != filterHash {
			return storage.TermPage{}, fmt.Errorf("page token does not match filter")
		}
		conditions = append(conditions, "(priority_rank > ? OR (priority_rank = ? AND slug > ?))")
		args = append(args, decoded.Rank, decoded.Rank, decoded.Slug)
	}

	query := `SELECT slug, name, definition, why_it_matters, louisville_context,
	                 data_stats, campaign_alignment, category, priority, featured,
	                 created_at, updated_at
	            FROM terms`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY priority_rank ASC, slug ASC LIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.TermPage{}, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	page := storage.TermPage{Terms: make([]domain.Term, 0, pageSize)}
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return storage.TermPage{}, fmt.Errorf("list terms: %w", err)
		}
		page.Terms = append(page.Terms, term)
	}
	if err := rows.Err(); err != nil {
		return storage.TermPage{}, fmt.Errorf("list terms: %w", err)
	}

	if len(page.Terms) > pageSize {
		last := page.Terms[pageSize-1]
		page.Terms = page.Terms[:pageSize]
		token, err := cursor.Encode(cursor.Cursor{
			Rank:       last.Priority.Rank(),
			Slug:       last.Slug,
			FilterHash: filterHash,
		})
		if err != nil {
			return storage.TermPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
	}

	for idx := range page.Terms {
		slug := page.Terms[idx].Slug
		if page.Terms[idx].Tags, err = s.termTags(ctx, slug); err != nil {
			return storage.TermPage{}, err
		}
		if page.Terms[idx].Related, err = s.termLinks(ctx, slug); err != nil {
			return storage.TermPage{}, err
		}
	}
	return page, nil
}

// SearchTerms returns terms whose name or definition contains the query,
// case-insensitively, ordered by priority rank then slug.
func (s *Store) SearchTerms(ctx context.Context, query string, category string, limit int) ([]domain.Term, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := `SELECT slug, name, definition, why_it_matters, louisville_context,
	                    data_stats, campaign_alignment, category, priority, featured,
	                    created_at, updated_at
	               FROM terms
	              WHERE (name LIKE ? ESCAPE '\' OR definition LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if category = strings.TrimSpace(category); category != "" {
		sqlQuery += " AND category = ?"
		args = append(args, category)
	}
	sqlQuery += " ORDER BY priority_rank ASC, slug ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search terms: %w", err)
	}
	defer rows.Close()

	var terms []domain.Term
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("search terms: %w", err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search terms: %w", err)
	}

	for idx := range terms {
		slug := terms[idx].Slug
		if terms[idx].Tags, err = s.termTags(ctx, slug); err != nil {
			return nil, err
		}
		if terms[idx].Related, err = s.termLinks(ctx, slug); err != nil {
			return nil, err
		}
	}
	return terms, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// TermExists reports whether a term with the slug is stored.
func (s *Store) TermExists(ctx context.Context, slug string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return false, nil
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM terms WHERE slug = ?`, slug).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check term exists: %w", err)
	}
	return true, nil
}

// CountTerms returns the number of stored terms.
func (s *Store) CountTerms(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count terms: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerm(row rowScanner) (domain.Term, error) {
	var term domain.Term
	var priority string
	var featured int
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&term.Slug,
		&term.Name,
		&term.Definition,
		&term.WhyItMatters,
		&term.LouisvilleContext,
		&term.DataStats,
		&term.CampaignAlignment,
		&term.Category,
		&priority,
		&featured,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Term{}, err
	}
	term.Priority = domain.Priority(priority)
	term.Featured = featured != 0
	term.CreatedAt = fromMillis(createdAt)
	term.UpdatedAt = fromMillis(updatedAt)
	return term, nil
}

func (s *Store) termTags(ctx context.Context, slug string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT tag FROM term_tags WHERE term_slug = ? ORDER BY position ASC`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("load term tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("load term tags: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load term tags: %w", err)
	}
	return tags, nil
}

func (s *Store) termLinks(ctx context.Context, slug string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT related_slug FROM term_links WHERE term_slug = ? ORDER BY position ASC`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("load term links: %w", err)
	}
	defer rows.Close()

	var related []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("load term links: %w", err)
		}
		related = append(related, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load term links: %w", err)
	}
	return related, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, slug string, tags []string) error {
	for position, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO term_tags (term_slug, tag, position) VALUES (?, ?, ?)`,
			slug,
			tag,
			position,
		); err != nil {
			return fmt.Errorf("insert term tag %q: %w", tag, err)
		}
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, slug string, related []string) error {
	for position, link := range related {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO term_links (term_slug, related_slug, position) VALUES (?, ?, ?)`,
			slug,
			link,
			position,
		); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("link %s -> %s: %w", slug, link, storage.ErrRelatedTermMissing)
			}
			return fmt.Errorf("insert term link %q: %w", link, err)
		}
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "terms.slug")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

var _ storage.TermStore = (*Store)(nil)
