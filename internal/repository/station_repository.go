// This file defines the Station model and repository methods. A station is
// a car-wash location owned by exactly one station_owner account; ownership
// is never reassigned.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Station represents a row in the car_washes table.
type Station struct {
	ID        uint64
	OwnerID   uint64 // references users.id of the owning station_owner
	Name      string
	City      string
	Country   string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrStationNotFound is returned when a station cannot be found.
var ErrStationNotFound = errors.New("station not found")

// StationRepo encapsulates all database queries related to stations.
type StationRepo struct {
	db *sql.DB
}

func NewStationRepo(db *sql.DB) *StationRepo {
	return &StationRepo{db: db}
}

const stationColumns = "id, owner_id, name, city, country, address, created_at, updated_at"

func scanStation(row interface{ Scan(...any) error }) (*Station, error) {
	var s Station
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.City, &s.Country, &s.Address,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new station and populates the generated fields via a
// follow-up select so callers receive a fully populated record.
func (r *StationRepo) Create(ctx context.Context, s *Station) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO car_washes (owner_id, name, city, country, address) VALUES (?,?,?,?,?)",
		s.OwnerID, s.Name, s.City, s.Country, s.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM car_washes WHERE id = ?", s.ID).
		Scan(&s.ID, &s.OwnerID, &s.Name, &s.City, &s.Country, &s.Address,
			&s.CreatedAt, &s.UpdatedAt)
}

// GetByID fetches a station regardless of owner.
func (r *StationRepo) GetByID(ctx context.Context, id uint64) (*Station, error) {
	s, err := scanStation(r.db.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM car_washes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	return s, err
}

// GetByIDAndOwner fetches a station only if it belongs to the given owner;
// a station owned by someone else reads as not found.
func (r *StationRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Station, error) {
	s, err := scanStation(r.db.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM car_washes WHERE id = ? AND owner_id = ?", id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	return s, err
}

// ListByOwner returns all stations of one owner ordered by id.
func (r *StationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*Station, error) {
	return r.list(ctx,
		"SELECT "+stationColumns+" FROM car_washes WHERE owner_id = ? ORDER BY id", ownerID)
}

// ListAll returns every station; the super admin overview.
func (r *StationRepo) ListAll(ctx context.Context) ([]*Station, error) {
	return r.list(ctx, "SELECT "+stationColumns+" FROM car_washes ORDER BY id")
}

func (r *StationRepo) list(ctx context.Context, q string, args ...any) ([]*Station, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update rewrites the descriptive columns if the station belongs to the
// provided owner. Returns ErrStationNotFound when nothing was affected.
func (r *StationRepo) Update(ctx context.Context, s *Station) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE car_washes SET name=?, city=?, country=?, address=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=? AND owner_id=?`,
		s.Name, s.City, s.Country, s.Address, s.ID, s.OwnerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStationNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes a station with its stocks, stock history and
// employee assignments inside a transaction. ErrStationNotFound when the id
// is unknown, ErrForbidden when the station belongs to another owner.
func (r *StationRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	var dbOwnerID uint64
	if err = tx.QueryRowContext(ctx,
		"SELECT owner_id FROM car_washes WHERE id = ?", id).Scan(&dbOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStationNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		err = ErrForbidden
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE h FROM stock_histories h
		 JOIN stocks s ON s.id = h.stock_id
		 WHERE s.station_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM stocks WHERE station_id = ?", id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM station_employees WHERE station_id = ?", id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM car_washes WHERE id = ?", id)
	return err
}
