package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkravets/contacts-api/internal/models"
)

// ContactRepository manages persistence for contacts. Every query is scoped
// to the owning user; a contact never leaks across accounts.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// List returns the owner's contacts matching the provided filters along
// with the total count before pagination.
func (r *ContactRepository) List(ctx context.Context, ownerID string, filter models.ContactFilter) ([]models.Contact, int, error) {
	base := "FROM contacts c"
	args := []interface{}{ownerID}
	conditions := []string{"c.owner_id = $1"}

	if filter.FirstName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.first_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.FirstName)+"%")
	}
	if filter.LastName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.last_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.LastName)+"%")
	}
	if filter.ChannelValue != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM contact_channels cc WHERE cc.contact_id = c.id AND LOWER(cc.value) LIKE $%d)",
			len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.ChannelValue)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.owner_id, c.first_name, c.last_name, c.birthdate, c.gender, c.persuasion, c.created_at, c.updated_at
        %s ORDER BY c.last_name ASC, c.first_name ASC LIMIT %d OFFSET %d`, base, size, offset)

	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}
	return contacts, total, nil
}

// FindByID fetches a single contact owned by the given user. Returns
// sql.ErrNoRows when the contact does not exist or belongs to someone else.
func (r *ContactRepository) FindByID(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	const query = `SELECT id, owner_id, first_name, last_name, birthdate, gender, persuasion, created_at, updated_at
        FROM contacts WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, id, ownerID); err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create inserts a new contact.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	const query = `INSERT INTO contacts (id, owner_id, first_name, last_name, birthdate, gender, persuasion, created_at, updated_at)
        VALUES (:id, :owner_id, :first_name, :last_name, :birthdate, :gender, :persuasion, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// Update rewrites a contact's mutable fields. Returns sql.ErrNoRows when
// nothing matched the id/owner pair.
func (r *ContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now().UTC()

	const query = `UPDATE contacts SET first_name = :first_name, last_name = :last_name, birthdate = :birthdate,
        gender = :gender, persuasion = :persuasion, updated_at = :updated_at
        WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, contact)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a contact and, via cascade, its channel associations.
func (r *ContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls
// within the next `days` days, today included. The comparison is on
// month/day only, so the birth year is irrelevant and year boundaries are
// handled by enumerating the dates in the window.
func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, ownerID string, days int, now time.Time) ([]models.Contact, error) {
	if days < 0 {
		days = 0
	}

	type monthDay struct {
		month int
		day   int
	}
	window := make([]monthDay, 0, days+1)
	seen := make(map[monthDay]bool)
	add := func(md monthDay) {
		if !seen[md] {
			seen[md] = true
			window = append(window, md)
		}
	}
	for i := 0; i <= days; i++ {
		d := now.AddDate(0, 0, i)
		add(monthDay{month: int(d.Month()), day: d.Day()})
		// In a non-leap year the window jumps from Feb 28 to Mar 1;
		// leap-day birthdays are observed on the skipped date.
		if d.Month() == time.March && d.Day() == 1 {
			prev := d.AddDate(0, 0, -1)
			if prev.Month() == time.February && prev.Day() == 28 {
				add(monthDay{month: 2, day: 29})
			}
		}
	}

	args := []interface{}{ownerID}
	pairs := make([]string, 0, len(window))
	for _, md := range window {
		pairs = append(pairs, fmt.Sprintf("(EXTRACT(MONTH FROM birthdate) = $%d AND EXTRACT(DAY FROM birthdate) = $%d)",
			len(args)+1, len(args)+2))
		args = append(args, md.month, md.day)
	}

	query := fmt.Sprintf(`SELECT id, owner_id, first_name, last_name, birthdate, gender, persuasion, created_at, updated_at
        FROM contacts WHERE owner_id = $1 AND birthdate IS NOT NULL AND (%s)
        ORDER BY EXTRACT(MONTH FROM birthdate), EXTRACT(DAY FROM birthdate)`, strings.Join(pairs, " OR "))

	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}
	return contacts, nil
}
