package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/voyara/platform/internal/api/request"
	"github.com/voyara/platform/internal/model"
)

const partnerColumns = `id, name, slug, contact_email, password_hash, status, created_at, updated_at`

// PartnerService manages partner organizations and their portal credentials.
type PartnerService struct {
	db DB
}

// NewPartnerService creates a new PartnerService.
func NewPartnerService(db DB) *PartnerService {
	return &PartnerService{db: db}
}

// Create inserts a partner. A non-empty password is bcrypt-hashed before
// storage; the plaintext never touches the database.
func (s *PartnerService) Create(ctx context.Context, p *model.Partner, password string) error {
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash partner password: %w", err)
		}
		p.PasswordHash = string(hash)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO partners (id, name, slug, contact_email, password_hash, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Slug, p.ContactEmail, p.PasswordHash, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

func (s *PartnerService) GetByID(ctx context.Context, id string) (*model.Partner, error) {
	return s.getWhere(ctx, "id = $1", id)
}

func (s *PartnerService) GetBySlug(ctx context.Context, slug string) (*model.Partner, error) {
	return s.getWhere(ctx, "slug = $1", slug)
}

func (s *PartnerService) getWhere(ctx context.Context, where string, arg any) (*model.Partner, error) {
	var p model.Partner
	err := s.db.QueryRow(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE `+where, arg,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.ContactEmail, &p.PasswordHash, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return &p, nil
}

// List retrieves partners with cursor-based pagination.
func (s *PartnerService) List(ctx context.Context, params request.ListParams) ([]model.Partner, bool, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR slug ILIKE $%d OR contact_email ILIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		// Keyset on the sort key, anchored by the cursor row's (name, id).
		query += fmt.Sprintf(` AND (name, id) > (SELECT name, id FROM partners WHERE id = $%d)`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY name ASC, id ASC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.ContactEmail, &p.PasswordHash, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate partners: %w", err)
	}

	hasMore := len(partners) > params.Limit
	if hasMore {
		partners = partners[:params.Limit]
	}
	return partners, hasMore, nil
}

// Update modifies a partner's name and contact email.
func (s *PartnerService) Update(ctx context.Context, id, name, contactEmail string) (*model.Partner, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE partners SET name = $1, contact_email = $2, updated_at = now() WHERE id = $3`,
		name, contactEmail, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update partner %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrPartnerNotFound
	}
	return s.GetByID(ctx, id)
}

// SetStatus suspends or reactivates a partner.
func (s *PartnerService) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE partners SET status = $1, updated_at = now() WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("set partner %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPartnerNotFound
	}
	return nil
}

// SetPassword replaces a partner's portal password.
func (s *PartnerService) SetPassword(ctx context.Context, id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash partner password: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE partners SET password_hash = $1, updated_at = now() WHERE id = $2`, string(hash), id,
	)
	if err != nil {
		return fmt.Errorf("set partner %s password: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPartnerNotFound
	}
	return nil
}

// Authenticate verifies a partner's portal credentials by contact email.
// Unknown accounts and wrong passwords both come back as
// model.ErrInvalidCredentials.
func (s *PartnerService) Authenticate(ctx context.Context, email, password string) (*model.Partner, error) {
	var p model.Partner
	err := s.db.QueryRow(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE contact_email = $1 AND status = $2`,
		email, model.StatusActive,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.ContactEmail, &p.PasswordHash, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate partner: %w", err)
	}

	if p.PasswordHash == "" {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return &p, nil
}

// Delete removes a partner. Providers owned by the partner survive with
// their partner reference cleared (enforced by the schema).
func (s *PartnerService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM partners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete partner %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPartnerNotFound
	}
	return nil
}
