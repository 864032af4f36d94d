package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const candidateColumns = `candidate_id, period_id, name, gender, school, major, contact, address,
	metadata, created_at, updated_at`

// CreateCandidates inserts candidates and their scores in one transaction.
// Either every candidate is stored or none is.
func (s *PostgresStore) CreateCandidates(ctx context.Context, periodID uuid.UUID, candidates []*Candidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range candidates {
		c.PeriodID = periodID
		metadataJSON, _ := json.Marshal(c.Metadata)
		err := tx.QueryRow(ctx, `
			INSERT INTO admission_candidates (period_id, name, gender, school, major, contact, address, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING candidate_id, created_at, updated_at`,
			c.PeriodID, c.Name, c.Gender, c.School, c.Major, c.Contact, c.Address, metadataJSON,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		if err := insertScores(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := touchPeriod(ctx, tx, periodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertScores(ctx context.Context, tx pgx.Tx, c *Candidate) error {
	if len(c.Scores) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(c.Scores))
	batch := &pgx.Batch{}
	for criterionID, v := range c.Scores {
		ids = append(ids, criterionID)
		// The criterion must belong to the candidate's period.
		batch.Queue(`
			INSERT INTO admission_scores (candidate_id, criterion_id, value)
			SELECT $1, criterion_id, $3 FROM admission_criteria
			WHERE criterion_id = $2 AND period_id = $4`,
			c.ID, criterionID, v, c.PeriodID)
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for _, criterionID := range ids {
		tag, err := br.Exec()
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: criterion %s is not part of period %s", ErrConflict, criterionID, c.PeriodID)
		}
	}
	return nil
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM admission_candidates WHERE candidate_id = $1`, id)
	if err != nil {
		return nil, err
	}
	candidates, err := scanCandidates(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := loadScores(ctx, s.pool, candidates, `sc.candidate_id = $1`, id); err != nil {
		return nil, err
	}
	return candidates[0], nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, periodID uuid.UUID) ([]*Candidate, error) {
	return listCandidates(ctx, s.pool, periodID)
}

func listCandidates(ctx context.Context, q querier, periodID uuid.UUID) ([]*Candidate, error) {
	rows, err := q.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM admission_candidates WHERE period_id = $1
		ORDER BY name ASC, candidate_id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	candidates, err := scanCandidates(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}
	if err := loadScores(ctx, q, candidates, `c.period_id = $1`, periodID); err != nil {
		return nil, err
	}
	return candidates, nil
}

func loadScores(ctx context.Context, q querier, candidates []*Candidate, where string, arg interface{}) error {
	byID := make(map[uuid.UUID]*Candidate, len(candidates))
	for _, c := range candidates {
		c.Scores = make(map[uuid.UUID]float64)
		byID[c.ID] = c
	}

	rows, err := q.Query(ctx, `
		SELECT sc.candidate_id, sc.criterion_id, sc.value
		FROM admission_scores sc
		JOIN admission_candidates c ON c.candidate_id = sc.candidate_id
		WHERE `+where, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var candidateID, criterionID uuid.UUID
		var value float64
		if err := rows.Scan(&candidateID, &criterionID, &value); err != nil {
			return err
		}
		if c, ok := byID[candidateID]; ok {
			c.Scores[criterionID] = value
		}
	}
	return rows.Err()
}

// UpdateCandidate replaces the candidate's descriptive fields and its full score set.
func (s *PostgresStore) UpdateCandidate(ctx context.Context, c *Candidate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	metadataJSON, _ := json.Marshal(c.Metadata)
	err = tx.QueryRow(ctx, `
		UPDATE admission_candidates SET
			name = $2, gender = $3, school = $4, major = $5, contact = $6, address = $7,
			metadata = $8, updated_at = now()
		WHERE candidate_id = $1
		RETURNING period_id, updated_at`,
		c.ID, c.Name, c.Gender, c.School, c.Major, c.Contact, c.Address, metadataJSON,
	).Scan(&c.PeriodID, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return mapErr(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM admission_scores WHERE candidate_id = $1`, c.ID); err != nil {
		return err
	}
	if err := insertScores(ctx, tx, c); err != nil {
		return err
	}
	if err := touchPeriod(ctx, tx, c.PeriodID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var periodID uuid.UUID
	err = tx.QueryRow(ctx, `
		DELETE FROM admission_candidates WHERE candidate_id = $1
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

func scanCandidates(rows pgx.Rows) ([]*Candidate, error) {
	var candidates []*Candidate
	for rows.Next() {
		c := &Candidate{}
		var metadataJSON []byte
		if err := rows.Scan(
			&c.ID, &c.PeriodID, &c.Name, &c.Gender, &c.School, &c.Major, &c.Contact, &c.Address,
			&metadataJSON, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if metadataJSON != nil {
			_ = json.Unmarshal(metadataJSON, &c.Metadata)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
