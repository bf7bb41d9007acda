package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

const contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, notes, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*models.Contact, error) {
	c := &models.Contact{}
	err := s.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Birthday.Time, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanOne(row *sql.Row) (*models.Contact, error) {
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, in *models.ContactInput) (*models.Contact, error) {
	query := `INSERT INTO contacts (user_id, first_name, last_name, email, phone, birthday, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + contactColumns

	return scanOne(r.db.QueryRowContext(ctx, query,
		userID, in.FirstName, in.LastName, in.Email, in.Phone, in.Birthday.Time, in.Notes))
}

func (r *PostgresRepository) List(ctx context.Context, userID string, skip, limit int) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE user_id = $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3`

	return r.query(ctx, query, userID, skip, limit)
}

func (r *PostgresRepository) ListAll(ctx context.Context, userID string) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE user_id = $1
		ORDER BY created_at, id`

	return r.query(ctx, query, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
		WHERE id = $1 AND user_id = $2`

	return scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

func (r *PostgresRepository) Update(ctx context.Context, userID, id string, in *models.ContactInput) (*models.Contact, error) {
	query := `UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone = $6, birthday = $7, notes = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + contactColumns

	return scanOne(r.db.QueryRowContext(ctx, query,
		id, userID, in.FirstName, in.LastName, in.Email, in.Phone, in.Birthday.Time, in.Notes))
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (*models.Contact, error) {
	query := `DELETE FROM contacts
		WHERE id = $1 AND user_id = $2
		RETURNING ` + contactColumns

	return scanOne(r.db.QueryRowContext(ctx, query, id, userID))
}

// Search matches name against first or last name and email against email,
// case-insensitively by substring. Empty filters are ignored; given filters
// are combined with AND.
func (r *PostgresRepository) Search(ctx context.Context, userID, name, email string) ([]*models.Contact, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`)
	args := []any{userID}

	if name != "" {
		args = append(args, likePattern(name))
		fmt.Fprintf(&sb, ` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, len(args), len(args))
	}
	if email != "" {
		args = append(args, likePattern(email))
		fmt.Fprintf(&sb, ` AND email ILIKE $%d`, len(args))
	}
	sb.WriteString(` ORDER BY created_at, id`)

	return r.query(ctx, sb.String(), args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps term for a substring match, escaping LIKE wildcards.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
