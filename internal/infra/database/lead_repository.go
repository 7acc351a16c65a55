package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/James-lakeshore/generac-crm-backend/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = "id, name, email, phone, message, source, status, meta, created_at, updated_at"

func scanLead(row interface{ Scan(...any) error }) (*entity.Lead, error) {
	var l entity.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Message,
		&l.Source, &l.Status, &l.Meta, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, phone, message, source, status, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.DB.QueryRowContext(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Message,
		lead.Source, lead.Status, lead.Meta,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)

	if err != nil {
		log.Printf("lead insert failed: %v", err)
		return err
	}

	return nil
}

// CreateIdempotent makes duplicate webhook deliveries converge on one row.
// ON CONFLICT against the partial unique index on meta->>'eventId' only sets
// fields on insert; a duplicate delivery never overwrites the stored lead.
// The index is the linearization point under concurrent retries, so the
// follow-up SELECT after a conflict always finds the winner.
func (r *LeadRepository) CreateIdempotent(ctx context.Context, lead *entity.Lead) (*entity.Lead, bool, error) {
	eventID := lead.Meta.EventID()
	if eventID == "" {
		if err := r.Create(ctx, lead); err != nil {
			return nil, false, err
		}
		return lead, true, nil
	}

	query := `
		INSERT INTO leads (id, name, email, phone, message, source, status, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ((meta->>'eventId')) WHERE meta->>'eventId' IS NOT NULL
		DO NOTHING
		RETURNING ` + leadColumns

	inserted, err := scanLead(r.DB.QueryRowContext(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Message,
		lead.Source, lead.Status, lead.Meta,
	))
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) && !isUniqueViolation(err) {
		return nil, false, err
	}

	existing, err := r.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup after conflict on event %s: %w", eventID, err)
	}
	return existing, false, nil
}

func (r *LeadRepository) FindByEventID(ctx context.Context, eventID string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE meta->>'eventId' = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]*entity.Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR name ILIKE $3 OR email ILIKE $3 OR phone ILIKE $3 OR message ILIKE $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := r.DB.QueryContext(ctx, query,
		filter.Status, filter.Query, "%"+escapeLike(filter.Query)+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id, status string) (*entity.Lead, error) {
	query := `
		UPDATE leads
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id, status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
