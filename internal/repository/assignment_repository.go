package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Assignment links an employee account to a station they work at. The pair
// (station_id, employee_id) is unique; assigning twice is a conflict, not a
// second row.
type Assignment struct {
	ID         uint64
	StationID  uint64
	EmployeeID uint64
	CreatedAt  time.Time
}

var (
	ErrAlreadyAssigned    = errors.New("employee already assigned to this station")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

// Assign records that an employee works at a station. The unique index on
// (station_id, employee_id) closes the duplicate race; a 1062 violation
// becomes ErrAlreadyAssigned.
func (r *AssignmentRepo) Assign(ctx context.Context, stationID, employeeID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO station_employees (station_id, employee_id) VALUES (?, ?)",
		stationID, employeeID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrAlreadyAssigned
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Exists reports whether the employee is assigned to the station.
func (r *AssignmentRepo) Exists(ctx context.Context, stationID, employeeID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM station_employees WHERE station_id = ? AND employee_id = ? LIMIT 1",
		stationID, employeeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListEmployeesForStation returns the accounts assigned to a station.
func (r *AssignmentRepo) ListEmployeesForStation(ctx context.Context, stationID uint64) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.firstname, u.lastname,
		        u.phone, u.age, u.role, COALESCE(u.owner_id, 0), u.is_verified,
		        u.is_active, u.created_at, u.updated_at
		 FROM users u
		 JOIN station_employees a ON a.employee_id = u.id
		 WHERE a.station_id = ?
		 ORDER BY u.id`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListStationIDsForEmployee returns the ids of stations an employee is
// assigned to.
func (r *AssignmentRepo) ListStationIDsForEmployee(ctx context.Context, employeeID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT station_id FROM station_employees WHERE employee_id = ? ORDER BY station_id",
		employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Remove unassigns an employee from a station.
func (r *AssignmentRepo) Remove(ctx context.Context, stationID, employeeID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM station_employees WHERE station_id = ? AND employee_id = ?",
		stationID, employeeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
