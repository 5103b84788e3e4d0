package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// WashRecord is the audit row written when a system manager registers a
// station owner. ManagerID is the registering manager, WashID the created
// owner account, WashDate the day it happened. These rows feed the quota
// report.
type WashRecord struct {
	ID        uint64
	ManagerID uint64
	WashDate  time.Time
	WashID    uint64
	CreatedAt time.Time
}

// ErrWashRecordNotFound is returned when no audit row matches.
var ErrWashRecordNotFound = errors.New("wash record not found")

type WashRecordRepo struct{ DB *sql.DB }

func NewWashRecordRepo(db *sql.DB) *WashRecordRepo { return &WashRecordRepo{DB: db} }

const washRecordColumns = "id, manager_id, wash_date, wash_id, created_at"

func scanWashRecord(row interface{ Scan(...any) error }) (WashRecord, error) {
	var w WashRecord
	err := row.Scan(&w.ID, &w.ManagerID, &w.WashDate, &w.WashID, &w.CreatedAt)
	return w, err
}

// ListByManager returns every registration a manager performed, oldest first.
func (r *WashRecordRepo) ListByManager(ctx context.Context, managerID uint64) ([]WashRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+washRecordColumns+" FROM wash_records WHERE manager_id = ? ORDER BY wash_date, id",
		managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WashRecord
	for rows.Next() {
		w, err := scanWashRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CountByManager returns how many registrations a manager performed in total.
func (r *WashRecordRepo) CountByManager(ctx context.Context, managerID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM wash_records WHERE manager_id = ?", managerID).Scan(&n)
	return n, err
}

// GetByOwnerAndManager fetches the audit row tying an owner to the manager,
// if that manager registered them. A different manager's row reads as not
// found, which is what the detail endpoint wants.
func (r *WashRecordRepo) GetByOwnerAndManager(ctx context.Context, ownerID, managerID uint64) (WashRecord, error) {
	w, err := scanWashRecord(r.DB.QueryRowContext(ctx,
		"SELECT "+washRecordColumns+" FROM wash_records WHERE wash_id = ? AND manager_id = ? LIMIT 1",
		ownerID, managerID))
	if errors.Is(err, sql.ErrNoRows) {
		return WashRecord{}, ErrWashRecordNotFound
	}
	return w, err
}
