package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ManagerQuota holds the registration target a super admin assigned to a
// system manager for a period, and the remuneration paid at full target.
// One row per manager; reassigning overwrites.
type ManagerQuota struct {
	ID           uint64
	ManagerID    uint64
	Target       int
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Remuneration float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrQuotaNotFound is returned when a manager has no quota assigned.
var ErrQuotaNotFound = errors.New("quota not found")

type QuotaRepo struct{ DB *sql.DB }

func NewQuotaRepo(db *sql.DB) *QuotaRepo { return &QuotaRepo{DB: db} }

const quotaColumns = "id, manager_id, target, period_start, period_end, remuneration, created_at, updated_at"

func scanQuota(row interface{ Scan(...any) error }) (ManagerQuota, error) {
	var q ManagerQuota
	err := row.Scan(&q.ID, &q.ManagerID, &q.Target, &q.PeriodStart, &q.PeriodEnd,
		&q.Remuneration, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// Upsert assigns or replaces the manager's quota in one statement. The
// unique index on manager_id makes concurrent assigns converge on a single
// row instead of racing a select-then-insert.
func (r *QuotaRepo) Upsert(ctx context.Context, q ManagerQuota) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO manager_quotas (manager_id, target, period_start, period_end, remuneration)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   target = VALUES(target),
		   period_start = VALUES(period_start),
		   period_end = VALUES(period_end),
		   remuneration = VALUES(remuneration),
		   updated_at = CURRENT_TIMESTAMP`,
		q.ManagerID, q.Target, q.PeriodStart, q.PeriodEnd, q.Remuneration)
	return err
}

// GetByManager fetches the quota assigned to one manager.
func (r *QuotaRepo) GetByManager(ctx context.Context, managerID uint64) (ManagerQuota, error) {
	q, err := scanQuota(r.DB.QueryRowContext(ctx,
		"SELECT "+quotaColumns+" FROM manager_quotas WHERE manager_id = ?", managerID))
	if errors.Is(err, sql.ErrNoRows) {
		return ManagerQuota{}, ErrQuotaNotFound
	}
	return q, err
}

// ListAll returns every assigned quota ordered by manager id.
func (r *QuotaRepo) ListAll(ctx context.Context) ([]ManagerQuota, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+quotaColumns+" FROM manager_quotas ORDER BY manager_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ManagerQuota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
