package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/meeting-finder/internal/persistence"
)

// timestampLayout has fixed width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// CaseRepository implements persistence.CaseRepository using SQLite.
type CaseRepository struct {
	pool *ConnectionPool
}

// NewCaseRepository creates a SQLite case repository.
func NewCaseRepository(pool *ConnectionPool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

const selectCaseColumns = `
	SELECT id, owner_id, name, duration_minutes, buffer_minutes, max_slots, status,
	       members, provisional_event_ids, COALESCE(confirmed_event_id, ''), created_at
	FROM cases`

// ListCases returns all cases ordered by creation time.
func (r *CaseRepository) ListCases(ctx context.Context) ([]persistence.Case, error) {
	rows, err := r.pool.db.QueryContext(ctx, selectCaseColumns+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cases []persistence.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return cases, nil
}

// GetCase retrieves a case by ID.
func (r *CaseRepository) GetCase(ctx context.Context, id string) (persistence.Case, error) {
	if id == "" {
		return persistence.Case{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, selectCaseColumns+` WHERE id = ?`, id)
	return scanCase(row)
}

// PutCase inserts the case or replaces every column of an existing one.
func (r *CaseRepository) PutCase(ctx context.Context, c persistence.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.Clone()

	members, err := json.Marshal(c.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	holds, err := json.Marshal(c.ProvisionalEventIDs)
	if err != nil {
		return fmt.Errorf("encode provisional event ids: %w", err)
	}
	var confirmed sql.NullString
	if c.ConfirmedEventID != "" {
		confirmed = sql.NullString{String: c.ConfirmedEventID, Valid: true}
	}

	const query = `
		INSERT INTO cases (id, owner_id, name, duration_minutes, buffer_minutes, max_slots, status,
		                   members, provisional_event_ids, confirmed_event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			name = excluded.name,
			duration_minutes = excluded.duration_minutes,
			buffer_minutes = excluded.buffer_minutes,
			max_slots = excluded.max_slots,
			status = excluded.status,
			members = excluded.members,
			provisional_event_ids = excluded.provisional_event_ids,
			confirmed_event_id = excluded.confirmed_event_id,
			created_at = excluded.created_at`

	_, err = r.pool.db.ExecContext(ctx, query,
		c.ID,
		c.OwnerID,
		c.Name,
		c.DurationMinutes,
		c.BufferMinutes,
		c.MaxSlots,
		c.Status,
		string(members),
		string(holds),
		confirmed,
		c.CreatedAt.UTC().Format(timestampLayout),
	)
	return mapError(err)
}

// DeleteCase removes a case by ID.
func (r *CaseRepository) DeleteCase(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (persistence.Case, error) {
	var (
		c         persistence.Case
		members   string
		holds     string
		createdAt string
	)
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.DurationMinutes,
		&c.BufferMinutes,
		&c.MaxSlots,
		&c.Status,
		&members,
		&holds,
		&c.ConfirmedEventID,
		&createdAt,
	); err != nil {
		return persistence.Case{}, mapError(err)
	}

	if err := json.Unmarshal([]byte(members), &c.Members); err != nil {
		return persistence.Case{}, fmt.Errorf("decode members of case %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(holds), &c.ProvisionalEventIDs); err != nil {
		return persistence.Case{}, fmt.Errorf("decode provisional event ids of case %s: %w", c.ID, err)
	}
	parsed, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return persistence.Case{}, fmt.Errorf("parse created_at of case %s: %w", c.ID, err)
	}
	c.CreatedAt = parsed
	return c.Clone(), nil
}
