// Package sqlite provides the default durable Store backed by a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobradar/jobradar/internal/radar"
	"github.com/jobradar/jobradar/internal/store"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	key              TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL,
	source           TEXT NOT NULL,
	posted_at        TIMESTAMP,
	location         TEXT NOT NULL DEFAULT '',
	salary           TEXT NOT NULL DEFAULT '',
	salary_numeric   INTEGER NOT NULL DEFAULT 0,
	job_type         TEXT NOT NULL DEFAULT '',
	experience_level TEXT NOT NULL DEFAULT '',
	is_remote        INTEGER NOT NULL DEFAULT 0,
	description      TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	categories       TEXT NOT NULL DEFAULT '[]',
	first_seen       TIMESTAMP NOT NULL,
	last_seen        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);
CREATE INDEX IF NOT EXISTS idx_jobs_job_type ON jobs(job_type);
CREATE INDEX IF NOT EXISTS idx_jobs_experience ON jobs(experience_level);
CREATE INDEX IF NOT EXISTS idx_jobs_remote ON jobs(is_remote);
CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen);`

// Store implements radar.Store over a SQLite file. A process-local
// mutex serializes upserts; SQLite is single-writer anyway and the
// lock keeps read-modify-write cycles on one key from interleaving.
type Store struct {
	db         *sql.DB
	writeMu    sync.Mutex
	clock      radar.Clock
	identities map[string]radar.IdentityMode
}

// New opens (or creates) the database at path and ensures the schema.
func New(path string, clock radar.Clock, identities map[string]radar.IdentityMode) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create jobs schema: %w", err)
	}
	return &Store{db: db, clock: clock, identities: identities}, nil
}

func (s *Store) mode(source string) radar.IdentityMode {
	if m, ok := s.identities[source]; ok {
		return m
	}
	return radar.IdentityURL
}

// Upsert reconciles one job inside a transaction.
func (s *Store) Upsert(ctx context.Context, job radar.Job) (radar.Outcome, error) {
	key := radar.IdentityKey(job, s.mode(job.Source))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := s.lookup(ctx, tx, key)
	if err != nil {
		return "", err
	}

	outcome, record := store.Reconcile(existing, key, job, s.clock.Now())
	if err := s.write(ctx, tx, outcome, record); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}
	return outcome, nil
}

func (s *Store) lookup(ctx context.Context, tx *sql.Tx, key string) (*radar.Record, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+columns+` FROM jobs WHERE key = ?`, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup job %s: %w", key, err)
	}
	return &rec, nil
}

func (s *Store) write(ctx context.Context, tx *sql.Tx, outcome radar.Outcome, rec radar.Record) error {
	if outcome == radar.OutcomeUnchanged {
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET last_seen = ? WHERE key = ?`, rec.LastSeen, rec.Key); err != nil {
			return fmt.Errorf("bump last_seen: %w", err)
		}
		return nil
	}

	categories, err := json.Marshal(orEmpty(rec.Job.Categories))
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO jobs (
		key, title, company, url, source, posted_at, location, salary,
		salary_numeric, job_type, experience_level, is_remote, description,
		score, categories, first_seen, last_seen
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(key) DO UPDATE SET
		title = excluded.title,
		company = excluded.company,
		url = excluded.url,
		posted_at = excluded.posted_at,
		location = excluded.location,
		salary = excluded.salary,
		salary_numeric = excluded.salary_numeric,
		job_type = excluded.job_type,
		experience_level = excluded.experience_level,
		is_remote = excluded.is_remote,
		description = excluded.description,
		score = excluded.score,
		categories = excluded.categories,
		last_seen = excluded.last_seen`,
		rec.Key, rec.Job.Title, rec.Job.Company, rec.Job.URL, rec.Job.Source,
		nullableTime(rec.Job.PostedAt), rec.Job.Location, rec.Job.Salary,
		store.SalaryNumeric(rec.Job.Salary), rec.Job.JobType, rec.Job.ExperienceLevel,
		rec.Job.IsRemote, rec.Job.Description, rec.Job.Score, string(categories),
		rec.FirstSeen, rec.LastSeen)
	if err != nil {
		return fmt.Errorf("write job %s: %w", rec.Key, err)
	}
	return nil
}

const columns = `key, title, company, url, source, posted_at, location, salary,
	job_type, experience_level, is_remote, description, score, categories,
	first_seen, last_seen`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (radar.Record, error) {
	var (
		rec      radar.Record
		posted   sql.NullTime
		catsJSON string
	)
	err := row.Scan(&rec.Key, &rec.Job.Title, &rec.Job.Company, &rec.Job.URL,
		&rec.Job.Source, &posted, &rec.Job.Location, &rec.Job.Salary,
		&rec.Job.JobType, &rec.Job.ExperienceLevel, &rec.Job.IsRemote,
		&rec.Job.Description, &rec.Job.Score, &catsJSON,
		&rec.FirstSeen, &rec.LastSeen)
	if err != nil {
		return radar.Record{}, err
	}
	if posted.Valid {
		t := posted.Time.UTC()
		rec.Job.PostedAt = &t
	}
	if catsJSON != "" && catsJSON != "[]" {
		if err := json.Unmarshal([]byte(catsJSON), &rec.Job.Categories); err != nil {
			return radar.Record{}, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	return rec, nil
}

// Search runs a filtered, paginated read ordered by last_seen
// descending. Category filtering happens in Go after the SQL filters
// because categories are stored as a JSON array.
func (s *Store) Search(ctx context.Context, q radar.Query) (radar.SearchPage, error) {
	where, args := buildWhere(q)

	rows, err := s.db.QueryContext(ctx,
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
	like := func(column, value string) {
		clauses = append(clauses, column+" LIKE ?")
		args = append(args, "%"+value+"%")
	}
	if q.Title != "" {
		like("title", q.Title)
	}
	if q.Company != "" {
		like("company", q.Company)
	}
	if q.Location != "" {
		like("location", q.Location)
	}
	if q.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, q.Source)
	}
	if q.JobType != "" {
		clauses = append(clauses, "job_type = ?")
		args = append(args, q.JobType)
	}
	if q.ExperienceLevel != "" {
		clauses = append(clauses, "experience_level = ?")
		args = append(args, q.ExperienceLevel)
	}
	if q.Remote != nil {
		clauses = append(clauses, "is_remote = ?")
		args = append(args, *q.Remote)
	}
	if q.SalaryMin > 0 {
		clauses = append(clauses, "salary_numeric >= ?")
		args = append(args, q.SalaryMin)
	}
	if q.SalaryMax > 0 {
		clauses = append(clauses, "salary_numeric > 0 AND salary_numeric <= ?")
		args = append(args, q.SalaryMax)
	}
	if q.MinScore > 0 {
		clauses = append(clauses, "score >= ?")
		args = append(args, q.MinScore)
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
	rows, err := s.db.QueryContext(ctx,
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

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
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
