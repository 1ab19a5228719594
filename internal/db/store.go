package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
)

// ErrDuplicateHash reports an insert rejected by the unique hash constraint.
// Callers treat it as a dedup outcome, not a failure.
var ErrDuplicateHash = errors.New("duplicate hash")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

type FeedParams struct {
	Since        time.Time // zero value means no lower bound
	Category     string
	Jurisdiction string
	Language     string
	Search       string
	Page         int
	PageSize     int
}

type FeedResult struct {
	Items    []models.AIDevelopment `json:"items"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int                    `json:"total"`
}

// selectCols is the full column list shared by every developments query.
const selectCols = `id, source_id, source_type::text, category::text, title, description,
	url, publisher, published_at, ingested_at, language, jurisdiction,
	entities, tags, hash, confidence`

func scanDevelopment(scan func(dest ...interface{}) error) (models.AIDevelopment, error) {
	var d models.AIDevelopment
	var sourceType, category string
	var entitiesRaw []byte

	err := scan(
		&d.ID, &d.SourceID, &sourceType, &category, &d.Title, &d.Description,
		&d.URL, &d.Publisher, &d.PublishedAt, &d.IngestedAt, &d.Language, &d.Jurisdiction,
		&entitiesRaw, &d.Tags, &d.Hash, &d.Confidence,
	)
	if err != nil {
		return d, err
	}

	d.SourceType = models.SourceType(sourceType)
	d.Category = models.CategoryType(category)
	if len(entitiesRaw) > 0 {
		_ = json.Unmarshal(entitiesRaw, &d.Entities)
	}
	if d.Entities == nil {
		d.Entities = []string{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}

	return d, nil
}

func buildFeedWhere(params FeedParams) (string, []interface{}, int) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if !params.Since.IsZero() {
		where += fmt.Sprintf(" AND published_at >= $%d", argIdx)
		args = append(args, params.Since)
		argIdx++
	}
	if params.Category != "" {
		where += fmt.Sprintf(" AND category::text = $%d", argIdx)
		args = append(args, params.Category)
		argIdx++
	}
	if params.Jurisdiction != "" {
		where += fmt.Sprintf(" AND jurisdiction = $%d", argIdx)
		args = append(args, params.Jurisdiction)
		argIdx++
	}
	if params.Language != "" {
		where += fmt.Sprintf(" AND language = $%d", argIdx)
		args = append(args, params.Language)
		argIdx++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR publisher ILIKE '%%' || $%d || '%%' OR jurisdiction ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, params.Search)
		argIdx++
	}

	return where, args, argIdx
}

func (s *Store) ListDevelopments(ctx context.Context, params FeedParams) (*FeedResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 25
	}
	if params.PageSize > 200 {
		params.PageSize = 200
	}

	where, args, argIdx := buildFeedWhere(params)

	var total int
	countSQL := "SELECT COUNT(*) FROM ai_developments " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf(
		"SELECT %s FROM ai_developments %s ORDER BY published_at DESC, ingested_at DESC LIMIT $%d OFFSET $%d",
		selectCols, where, argIdx, argIdx+1,
	)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var items []models.AIDevelopment
	for rows.Next() {
		d, err := scanDevelopment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if items == nil {
		items = []models.AIDevelopment{}
	}

	return &FeedResult{
		Items:    items,
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
	}, nil
}

// ExportDevelopments returns up to limit rows matching the filters, capped at
// 5000 regardless of what the caller asks for.
func (s *Store) ExportDevelopments(ctx context.Context, params FeedParams, limit int) ([]models.AIDevelopment, error) {
	if limit < 1 || limit > 5000 {
		limit = 5000
	}

	where, args, argIdx := buildFeedWhere(params)
	selectSQL := fmt.Sprintf(
		"SELECT %s FROM ai_developments %s ORDER BY published_at DESC, ingested_at DESC LIMIT $%d",
		selectCols, where, argIdx,
	)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("export query failed: %w", err)
	}
	defer rows.Close()

	var items []models.AIDevelopment
	for rows.Next() {
		d, err := scanDevelopment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("export scan failed: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export rows iteration failed: %w", err)
	}
	if items == nil {
		items = []models.AIDevelopment{}
	}
	return items, nil
}

// InsertDevelopment writes one record. ErrDuplicateHash signals the unique
// hash constraint fired, which the writer counts as a dedup hit.
func (s *Store) InsertDevelopment(ctx context.Context, d *models.AIDevelopment) error {
	entitiesJSON, err := json.Marshal(d.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ai_developments (
			id, source_id, source_type, category, title, description,
			url, publisher, published_at, ingested_at, language, jurisdiction,
			entities, tags, hash, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		d.ID, d.SourceID, string(d.SourceType), string(d.Category), d.Title, d.Description,
		d.URL, d.Publisher, d.PublishedAt, d.IngestedAt, d.Language, d.Jurisdiction,
		entitiesJSON, d.Tags, d.Hash, d.Confidence,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateHash
		}
		return fmt.Errorf("insert development: %w", err)
	}
	return nil
}

// PurgeResult reports synthetic cleanup counts. When Execute is false the
// deletion is only simulated.
type PurgeResult struct {
	Execute       bool `json:"execute"`
	CountBefore   int  `json:"count_before"`
	Deleted       int  `json:"deleted"`
	CountAfter    int  `json:"count_after"`
}

// PurgeSynthetic removes fallback records, identified by their example.com
// URL prefix.
func (s *Store) PurgeSynthetic(ctx context.Context, execute bool) (*PurgeResult, error) {
	const pattern = "https://example.com/%"

	var before int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ai_developments WHERE url LIKE $1", pattern).Scan(&before); err != nil {
		return nil, fmt.Errorf("count synthetic: %w", err)
	}

	result := &PurgeResult{Execute: execute, CountBefore: before, CountAfter: before}
	if !execute {
		return result, nil
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM ai_developments WHERE url LIKE $1", pattern)
	if err != nil {
		return nil, fmt.Errorf("delete synthetic: %w", err)
	}
	result.Deleted = int(tag.RowsAffected())
	result.CountAfter = before - result.Deleted
	return result, nil
}

func (s *Store) GetSourceState(ctx context.Context, sourceKey string) (*models.SourceState, error) {
	var st models.SourceState
	var cursor, etag, lastModified, lastError *string

	err := s.pool.QueryRow(ctx, `
		SELECT source_key, cursor, etag, last_modified, last_success_at,
			last_error_at, consecutive_failures, last_error, next_run_at, updated_at
		FROM source_states WHERE source_key = $1
	`, sourceKey).Scan(
		&st.SourceKey, &cursor, &etag, &lastModified, &st.LastSuccessAt,
		&st.LastErrorAt, &st.ConsecutiveFailures, &lastError, &st.NextRunAt, &st.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.SourceState{SourceKey: sourceKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source state %s: %w", sourceKey, err)
	}

	if cursor != nil {
		st.Cursor = *cursor
	}
	if etag != nil {
		st.ETag = *etag
	}
	if lastModified != nil {
		st.LastModified = *lastModified
	}
	if lastError != nil {
		st.LastError = *lastError
	}
	return &st, nil
}

func (s *Store) SaveSourceState(ctx context.Context, st *models.SourceState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO source_states (
			source_key, cursor, etag, last_modified, last_success_at,
			last_error_at, consecutive_failures, last_error, next_run_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (source_key) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			last_success_at = EXCLUDED.last_success_at,
			last_error_at = EXCLUDED.last_error_at,
			consecutive_failures = EXCLUDED.consecutive_failures,
			last_error = EXCLUDED.last_error,
			next_run_at = EXCLUDED.next_run_at,
			updated_at = NOW()
	`,
		st.SourceKey, st.Cursor, st.ETag, st.LastModified, st.LastSuccessAt,
		st.LastErrorAt, st.ConsecutiveFailures, st.LastError, st.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("save source state %s: %w", st.SourceKey, err)
	}
	return nil
}

func (s *Store) InsertSourceRun(ctx context.Context, run *models.SourceRun) error {
	detailsJSON, err := json.Marshal(run.Details)
	if err != nil {
		return fmt.Errorf("encode run details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO source_runs (
			id, source_key, status, started_at, finished_at, duration_ms,
			fetched, accepted, inserted, duplicates, write_errors, error, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		run.ID, run.SourceKey, run.Status, run.StartedAt, run.FinishedAt, run.DurationMS,
		run.Fetched, run.Accepted, run.Inserted, run.Duplicates, run.WriteErrors, run.Error, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert source run %s: %w", run.SourceKey, err)
	}
	return nil
}

func (s *Store) ListSourceRuns(ctx context.Context, sourceKey string, limit int) ([]models.SourceRun, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	where := ""
	args := []interface{}{limit}
	if sourceKey != "" {
		where = "WHERE source_key = $2"
		args = append(args, sourceKey)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, source_key, status, started_at, finished_at, duration_ms,
			fetched, accepted, inserted, duplicates, write_errors, error, details
		FROM source_runs %s
		ORDER BY started_at DESC
		LIMIT $1
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list source runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SourceRun
	for rows.Next() {
		var run models.SourceRun
		var detailsRaw []byte
		if err := rows.Scan(
			&run.ID, &run.SourceKey, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationMS,
			&run.Fetched, &run.Accepted, &run.Inserted, &run.Duplicates, &run.WriteErrors, &run.Error, &detailsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan source run: %w", err)
		}
		if len(detailsRaw) > 0 {
			_ = json.Unmarshal(detailsRaw, &run.Details)
		}
		if run.Details == nil {
			run.Details = map[string]any{}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source runs iteration failed: %w", err)
	}
	if runs == nil {
		runs = []models.SourceRun{}
	}
	return runs, nil
}

// RefreshStatViews refreshes both materialized views. Failures are returned
// but callers treat them as best-effort.
func (s *Store) RefreshStatViews(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "REFRESH MATERIALIZED VIEW hourly_stats"); err != nil {
		return fmt.Errorf("refresh hourly_stats: %w", err)
	}
	if _, err := s.pool.Exec(ctx, "REFRESH MATERIALIZED VIEW weekly_stats"); err != nil {
		return fmt.Errorf("refresh weekly_stats: %w", err)
	}
	return nil
}
