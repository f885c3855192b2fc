package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

const vulnerabilityColumns = `id, name, description, severity, created_by, created_at,
	status, deleted_at, deleted_by, delete_reason`

type vulnerabilityRow struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	Description  string     `db:"description"`
	Severity     string     `db:"severity"`
	CreatedBy    int64      `db:"created_by"`
	CreatedAt    time.Time  `db:"created_at"`
	Status       string     `db:"status"`
	DeletedAt    *time.Time `db:"deleted_at"`
	DeletedBy    *int64     `db:"deleted_by"`
	DeleteReason string     `db:"delete_reason"`
}

func (r vulnerabilityRow) toDomain() *domain.Vulnerability {
	v := &domain.Vulnerability{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Severity:     domain.Severity(r.Severity),
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt.UTC(),
		Status:       domain.VulnerabilityStatus(r.Status),
		DeletedBy:    r.DeletedBy,
		DeleteReason: r.DeleteReason,
	}
	if r.DeletedAt != nil {
		at := r.DeletedAt.UTC()
		v.DeletedAt = &at
	}
	return v
}

// VulnerabilityRepository implements ports.VulnerabilityRepository on a SQL
// database.
type VulnerabilityRepository struct {
	db *sqlx.DB
}

// NewVulnerabilityRepository creates a new VulnerabilityRepository.
func NewVulnerabilityRepository(db *sqlx.DB) ports.VulnerabilityRepository {
	return &VulnerabilityRepository{db: db}
}

func (r *VulnerabilityRepository) Create(ctx context.Context, v *domain.Vulnerability) (*domain.Vulnerability, error) {
	created := *v
	created.Status = domain.VulnerabilityActive

	query := r.db.Rebind(`INSERT INTO vulnerabilities (name, name_key, description, severity, created_by, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query,
		created.Name, domain.NameKey(created.Name), created.Description, string(created.Severity),
		created.CreatedBy, created.CreatedAt, string(created.Status),
	).Scan(&created.ID)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, domain.ErrVulnerabilityExists
		}
		return nil, fmt.Errorf("insert vulnerability: %w", err)
	}
	return &created, nil
}

func (r *VulnerabilityRepository) FindByID(ctx context.Context, id int64) (*domain.Vulnerability, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *VulnerabilityRepository) FindActiveByName(ctx context.Context, name string) (*domain.Vulnerability, error) {
	return r.findOne(ctx, "name_key = ? AND status = 'active'", domain.NameKey(name))
}

func (r *VulnerabilityRepository) findOne(ctx context.Context, where string, arg any) (*domain.Vulnerability, error) {
	var row vulnerabilityRow
	query := r.db.Rebind("SELECT " + vulnerabilityColumns + " FROM vulnerabilities WHERE " + where)
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVulnerabilityNotFound
		}
		return nil, fmt.Errorf("find vulnerability: %w", err)
	}
	return row.toDomain(), nil
}

func (r *VulnerabilityRepository) List(ctx context.Context, f domain.VulnerabilityFilter) ([]*domain.Vulnerability, int64, error) {
	where := "status = 'active'"
	args := []any{}
	if f.Severity != "" {
		where += " AND severity = ?"
		args = append(args, string(f.Severity))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM vulnerabilities WHERE "+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count vulnerabilities: %w", err)
	}

	var rows []vulnerabilityRow
	query := r.db.Rebind("SELECT " + vulnerabilityColumns + " FROM vulnerabilities WHERE " + where +
		" ORDER BY id LIMIT ? OFFSET ?")
	if err := r.db.SelectContext(ctx, &rows, query, append(args, f.Limit, f.Offset())...); err != nil {
		return nil, 0, fmt.Errorf("list vulnerabilities: %w", err)
	}

	items := make([]*domain.Vulnerability, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

// MarkDeleted flips status only while the row is still active, so two
// concurrent deletes cannot both succeed.
func (r *VulnerabilityRepository) MarkDeleted(ctx context.Context, id, deletedBy int64, reason string, at time.Time) error {
	query := r.db.Rebind(`UPDATE vulnerabilities
		SET status = 'deleted', deleted_at = ?, deleted_by = ?, delete_reason = ?
		WHERE id = ? AND status = 'active'`)
	res, err := r.db.ExecContext(ctx, query, at.UTC(), deletedBy, reason, id)
	if err != nil {
		return fmt.Errorf("mark vulnerability deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrVulnerabilityDeleted
}
