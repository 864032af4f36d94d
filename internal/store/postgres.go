package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// mapErr translates unique and foreign-key violations into ErrConflict.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		}
	}
	return err
}

// --- Periods ---

func (s *PostgresStore) CreatePeriod(ctx context.Context, p *Period, criteria []*Criterion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO admission_periods (name, scheme)
		VALUES ($1, $2)
		RETURNING period_id, created_at, updated_at`,
		p.Name, p.Scheme,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}

	for i, c := range criteria {
		c.PeriodID = p.ID
		if c.Position == 0 {
			c.Position = i + 1
		}
		if err := insertCriterion(ctx, tx, c); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPeriod(ctx context.Context, id uuid.UUID) (*Period, error) {
	return getPeriod(ctx, s.pool, id)
}

func getPeriod(ctx context.Context, q querier, id uuid.UUID) (*Period, error) {
	p := &Period{}
	err := q.QueryRow(ctx, `
		SELECT period_id, name, scheme, created_at, updated_at
		FROM admission_periods WHERE period_id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Scheme, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListPeriods(ctx context.Context) ([]*Period, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT period_id, name, scheme, created_at, updated_at
		FROM admission_periods
		ORDER BY name DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []*Period
	for rows.Next() {
		p := &Period{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Scheme, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *PostgresStore) DeletePeriod(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM admission_periods WHERE period_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetPeriodStats(ctx context.Context, id uuid.UUID) (*PeriodStats, error) {
	stats := &PeriodStats{PeriodID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM admission_criteria WHERE period_id = $1),
			(SELECT COUNT(*) FROM admission_candidates WHERE period_id = $1),
			(SELECT COUNT(*) FROM admission_scores sc
				JOIN admission_candidates c ON c.candidate_id = sc.candidate_id
				WHERE c.period_id = $1)`, id,
	).Scan(&stats.CriteriaCount, &stats.CandidateCount, &stats.ScoreCount)
	return stats, err
}

// GetPeriodInputs reads a period, its criteria and its scored candidates
// inside one read-only REPEATABLE READ transaction.
func (s *PostgresStore) GetPeriodInputs(ctx context.Context, id uuid.UUID) (*PeriodInputs, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := getPeriod(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	if p == nil {
		return nil, nil
	}
	criteria, err := listCriteria(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	candidates, err := listCandidates(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &PeriodInputs{Period: p, Criteria: criteria, Candidates: candidates}, nil
}

// touchPeriod bumps updated_at on every change to a period's inputs. The
// ranking cache compares it to decide whether a cached result is current.
func touchPeriod(ctx context.Context, tx pgx.Tx, periodID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE admission_periods SET updated_at = clock_timestamp() WHERE period_id = $1`, periodID)
	return err
}

// --- Criteria ---

const criterionColumns = `criterion_id, period_id, code, name, polarity, weight, position, created_at`

func insertCriterion(ctx context.Context, tx pgx.Tx, c *Criterion) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO admission_criteria (period_id, code, name, polarity, weight, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING criterion_id, created_at`,
		c.PeriodID, c.Code, c.Name, c.Polarity, c.Weight, c.Position,
	).Scan(&c.ID, &c.CreatedAt)
	return mapErr(err)
}

func (s *PostgresStore) ListCriteria(ctx context.Context, periodID uuid.UUID) ([]*Criterion, error) {
	return listCriteria(ctx, s.pool, periodID)
}

func listCriteria(ctx context.Context, q querier, periodID uuid.UUID) ([]*Criterion, error) {
	rows, err := q.Query(ctx, `
		SELECT `+criterionColumns+`
		FROM admission_criteria WHERE period_id = $1
		ORDER BY position ASC, created_at ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []*Criterion
	for rows.Next() {
		c := &Criterion{}
		if err := rows.Scan(&c.ID, &c.PeriodID, &c.Code, &c.Name, &c.Polarity, &c.Weight, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (s *PostgresStore) GetCriterion(ctx context.Context, id uuid.UUID) (*Criterion, error) {
	c := &Criterion{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+criterionColumns+`
		FROM admission_criteria WHERE criterion_id = $1`, id,
	).Scan(&c.ID, &c.PeriodID, &c.Code, &c.Name, &c.Polarity, &c.Weight, &c.Position, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CreateCriterion(ctx context.Context, c *Criterion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.Position == 0 {
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(position), 0) + 1 FROM admission_criteria WHERE period_id = $1`,
			c.PeriodID,
		).Scan(&c.Position); err != nil {
			return err
		}
	}
	if err := insertCriterion(ctx, tx, c); err != nil {
		return err
	}
	if err := touchPeriod(ctx, tx, c.PeriodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpdateCriterion(ctx context.Context, c *Criterion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE admission_criteria SET
			code = $2, name = $3, polarity = $4, weight = $5, position = $6
		WHERE criterion_id = $1`,
		c.ID, c.Code, c.Name, c.Polarity, c.Weight, c.Position,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := touchPeriod(ctx, tx, c.PeriodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteCriterion(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var periodID uuid.UUID
	err = tx.QueryRow(ctx, `
		DELETE FROM admission_criteria WHERE criterion_id = $1
		RETURNING period_id`, id,
	).Scan(&periodID)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := touchPeriod(ctx, tx, periodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateCriteriaWeights sets the weight of several criteria of one period atomically.
func (s *PostgresStore) UpdateCriteriaWeights(ctx context.Context, periodID uuid.UUID, weights map[uuid.UUID]float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for id, w := range weights {
		tag, err := tx.Exec(ctx, `
			UPDATE admission_criteria SET weight = $3
			WHERE criterion_id = $1 AND period_id = $2`, id, periodID, w)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("criterion %s: %w", id, ErrNotFound)
		}
	}
	if err := touchPeriod(ctx, tx, periodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
