// Package postgres provides the Postgres-backed Store for shared
// deployments.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/jobradar/internal/radar"
	"github.com/jobradar/jobradar/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	key              TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL,
	source           TEXT NOT NULL,
	posted_at        TIMESTAMPTZ,
	location         TEXT NOT NULL DEFAULT '',
	salary           TEXT NOT NULL DEFAULT '',
	salary_numeric   INTEGER NOT NULL DEFAULT 0,
	job_type         TEXT NOT NULL DEFAULT '',
	experience_level TEXT NOT NULL DEFAULT '',
	is_remote        BOOLEAN NOT NULL DEFAULT FALSE,
	description      TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	categories       JSONB NOT NULL DEFAULT '[]',
	first_seen       TIMESTAMPTZ NOT NULL,
	last_seen        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);
CREATE INDEX IF NOT EXISTS idx_jobs_job_type ON jobs(job_type);
CREATE INDEX IF NOT EXISTS idx_jobs_experience ON jobs(experience_level);
CREATE INDEX IF NOT EXISTS idx_jobs_remote ON jobs(is_remote);`

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements radar.Store over Postgres. Same-key upserts
// serialize through SELECT FOR UPDATE row locks.
type Store struct {
	db         DB
	clock      radar.Clock
	identities map[string]radar.IdentityMode
}

// New connects a pool and ensures the schema.
func New(ctx context.Context, dsn string, clock radar.Clock, identities map[string]radar.IdentityMode) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create jobs schema: %w", err)
	}
	return &Store{db: pool, clock: clock, identities: identities}, nil
}

// NewWithDB constructs a store from an existing connection (primarily
// for testing).
func NewWithDB(db DB, clock radar.Clock, identities map[string]radar.IdentityMode) *Store {
	return &Store{db: db, clock: clock, identities: identities}
}

func (s *Store) mode(source string) radar.IdentityMode {
	if m, ok := s.identities[source]; ok {
		return m
	}
	return radar.IdentityURL
}

// Upsert reconciles one job inside a transaction holding the row lock
// for its key.
func (s *Store) Upsert(ctx context.Context, job radar.Job) (radar.Outcome, error) {
	key := radar.IdentityKey(job, s.mode(job.Source))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	existing, err := s.lookup(ctx, tx, key)
	if err != nil {
		return "", err
	}

	outcome, record := store.Reconcile(existing, key, job, s.clock.Now())
	if err := s.write(ctx, tx, outcome, record); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}
	return outcome, nil
}

func (s *Store) lookup(ctx context.Context, tx pgx.Tx, key string) (*radar.Record, error) {
	row := tx.QueryRow(ctx, `SELECT `+columns+` FROM jobs WHERE key = $1 FOR UPDATE`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup job %s: %w", key, err)
	}
	return &rec, nil
}

func (s *Store) write(ctx context.Context, tx pgx.Tx, outcome radar.Outcome, rec radar.Record) error {
	if outcome == radar.OutcomeUnchanged {
		if _, err := tx.Exec(ctx, `UPDATE jobs SET last_seen = $1 WHERE key = $2`, rec.LastSeen, rec.Key); err != nil {
			return fmt.Errorf("bump last_seen: %w", err)
		}
		return nil
	}

	categories, err := json.Marshal(orEmpty(rec.Job.Categories))
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO jobs (
		key, title, company, url, source, posted_at, location, salary,
		salary_numeric, job_type, experience_level, is_remote, description,
		score, categories, first_seen, last_seen
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	ON CONFLICT (key) DO UPDATE SET
		title = EXCLUDED.title,
		company = EXCLUDED.company,
		url = EXCLUDED.url,
		posted_at = EXCLUDED.posted_at,
		location = EXCLUDED.location,
		salary = EXCLUDED.salary,
		salary_numeric = EXCLUDED.salary_numeric,
		job_type = EXCLUDED.job_type,
		experience_level = EXCLUDED.experience_level,
		is_remote = EXCLUDED.is_remote,
		description = EXCLUDED.description,
		score = EXCLUDED.score,
		categories = EXCLUDED.categories,
		last_seen = EXCLUDED.last_seen`,
		rec.Key, rec.Job.Title, rec.Job.Company, rec.Job.URL, rec.Job.Source,
		nullableTime(rec.Job.PostedAt), rec.Job.Location, rec.Job.Salary,
		store.SalaryNumeric(rec.Job.Salary), rec.Job.JobType, rec.Job.ExperienceLevel,
		rec.Job.IsRemote, rec.Job.Description, rec.Job.Score, categories,
		rec.FirstSeen, rec.LastSeen)
	if err != nil {
		return fmt.Errorf("write job %s: %w", rec.Key, err)
	}
	return nil
}

const columns = `key, title, company, url, source, posted_at, location, salary,
	job_type, experience_level, is_remote, description, score, categories,
	first_seen, last_seen`

func scanRecord(row pgx.Row) (radar.Record, error) {
	var (
		rec    radar.Record
		posted *time.Time
		cats   []byte
	)
	err := row.Scan(&rec.Key, &rec.Job.Title, &rec.Job.Company, &rec.Job.URL,
		&rec.Job.Source, &posted, &rec.Job.Location, &rec.Job.Salary,
		&rec.Job.JobType, &rec.Job.ExperienceLevel, &rec.Job.IsRemote,
		&rec.Job.Description, &rec.Job.Score, &cats,
		&rec.FirstSeen, &rec.LastSeen)
	if err != nil {
		return radar.Record{}, err
	}
	if posted != nil {
		t := posted.UTC()
		rec.Job.PostedAt = &t
	}
	if len(cats) > 0 {
		if err := json.Unmarshal(cats, &rec.Job.Categories); err != nil {
			return radar.Record{}, fmt.Errorf("unmarshal categories: %w", err)
		}
		if len(rec.Job.Categories) == 0 {
			rec.Job.Categories = nil
		}
	}
	return rec, nil
}

// Search runs a filtered, paginated read ordered by last_seen
// descending. Category intersection uses the jsonb ?| operator.
func (s *Store) Search(ctx context.Context, q radar.Query) (radar.SearchPage, error) {
	where, args := buildWhere(q)

	rows, err := s.db.Query(ctx,
		`SELECT `+columns+` FROM jobs`+where+` ORDER BY last_seen DESC, key ASC`, args...)
	if err != nil {
		return radar.SearchPage{}, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	var matched []radar.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return radar.SearchPage{}, fmt.Errorf("scan job row: %w", err)
		}
		if !store.CategoriesIntersect(rec.Job.Categories, q.Categories) {
			continue
		}
		matched = append(matched, rec)
	}
	if err := rows.Err(); err != nil {
		return radar.SearchPage{}, fmt.Errorf("iterate job rows: %w", err)
	}

	page := radar.SearchPage{Total: len(matched)}
	if q.Smart() {
		page.Breakdown = breakdown(matched, q.Categories)
	}

	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page.Records = matched[start:end]
	return page, nil
}

func buildWhere(q radar.Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(expr string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(expr, len(args)))
	}
	if q.Title != "" {
		add("title ILIKE $%d", "%"+q.Title+"%")
	}
	if q.Company != "" {
		add("company ILIKE $%d", "%"+q.Company+"%")
	}
	if q.Location != "" {
		add("location ILIKE $%d", "%"+q.Location+"%")
	}
	if q.Source != "" {
		add("source = $%d", q.Source)
	}
	if q.JobType != "" {
		add("job_type = $%d", q.JobType)
	}
	if q.ExperienceLevel != "" {
		add("experience_level = $%d", q.ExperienceLevel)
	}
	if q.Remote != nil {
		add("is_remote = $%d", *q.Remote)
	}
	if q.SalaryMin > 0 {
		add("salary_numeric >= $%d", q.SalaryMin)
	}
	if q.SalaryMax > 0 {
		add("salary_numeric > 0 AND salary_numeric <= $%d", q.SalaryMax)
	}
	if q.MinScore > 0 {
		add("score >= $%d", q.MinScore)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func breakdown(records []radar.Record, want []string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, cat := range rec.Job.Categories {
			if len(want) == 0 || store.CategoriesIntersect([]string{cat}, want) {
				counts[cat]++
			}
		}
	}
	return counts
}

// FilterOptions lists distinct values of the filterable fields.
func (s *Store) FilterOptions(ctx context.Context) (radar.FilterOptions, error) {
	var opts radar.FilterOptions
	for _, d := range []struct {
		column string
		dest   *[]string
	}{
		{"source", &opts.Sources},
		{"job_type", &opts.JobTypes},
		{"experience_level", &opts.ExperienceLevels},
	} {
		values, err := s.distinct(ctx, d.column)
		if err != nil {
			return radar.FilterOptions{}, err
		}
		*d.dest = values
	}
	return opts, nil
}

func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT DISTINCT %s FROM jobs WHERE %s != ''`, column, column))
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", column, err)
	}
	sort.Strings(values)
	return values, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func orEmpty(cats []string) []string {
	if cats == nil {
		return []string{}
	}
	return cats
}
