package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Stock is an inventory line at one station. StockHistory rows record every
// quantity movement; the current Quantity is always the sum of its history.
type Stock struct {
	ID        uint64
	StationID uint64
	Name      string
	Quantity  int
	Unit      string
	Threshold int // alert level, 0 disables the low flag
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockHistory is one movement on a stock line. Operation is "addition" or
// "substraction" (spelling kept stable for API consumers).
type StockHistory struct {
	ID        uint64
	StockID   uint64
	Operation string
	Quantity  int
	Note      string
	CreatedAt time.Time
}

// Movement operation values.
const (
	StockOpAddition  = "addition"
	StockOpSubstract = "substraction"
)

var (
	ErrStockNotFound     = errors.New("stock not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
	ErrInvalidStockOp    = errors.New("invalid stock operation")
)

type StockRepo struct{ DB *sql.DB }

func NewStockRepo(db *sql.DB) *StockRepo { return &StockRepo{DB: db} }

const stockColumns = "id, station_id, name, quantity, unit, threshold, created_at, updated_at"

func scanStock(row interface{ Scan(...any) error }) (Stock, error) {
	var s Stock
	err := row.Scan(&s.ID, &s.StationID, &s.Name, &s.Quantity, &s.Unit,
		&s.Threshold, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a stock line with its opening quantity, writing the
// matching history row in the same transaction when the quantity is
// nonzero.
func (r *StockRepo) Create(ctx context.Context, s *Stock) error {
	tx, err := r.DB.BeginTx(ctx, nil)
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
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"INSERT INTO stocks (station_id, name, quantity, unit, threshold) VALUES (?,?,?,?,?)",
		s.StationID, s.Name, s.Quantity, s.Unit, s.Threshold)
	if err != nil {
		return err
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if s.Quantity != 0 {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO stock_histories (stock_id, operation, quantity, note) VALUES (?,?,?,?)",
			s.ID, StockOpAddition, s.Quantity, "initial stock")
		if err != nil {
			return err
		}
	}
	err = tx.QueryRowContext(ctx,
		"SELECT "+stockColumns+" FROM stocks WHERE id = ?", s.ID).
		Scan(&s.ID, &s.StationID, &s.Name, &s.Quantity, &s.Unit,
			&s.Threshold, &s.CreatedAt, &s.UpdatedAt)
	return err
}

// GetByIDAndStation fetches a stock line scoped to its station. A line
// belonging to another station reads as not found.
func (r *StockRepo) GetByIDAndStation(ctx context.Context, id, stationID uint64) (Stock, error) {
	s, err := scanStock(r.DB.QueryRowContext(ctx,
		"SELECT "+stockColumns+" FROM stocks WHERE id = ? AND station_id = ?", id, stationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Stock{}, ErrStockNotFound
	}
	return s, err
}

// ListByStation returns the station's stock lines ordered by name.
func (r *StockRepo) ListByStation(ctx context.Context, stationID uint64) ([]Stock, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+stockColumns+" FROM stocks WHERE station_id = ? ORDER BY name", stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update rewrites the descriptive columns. Quantity moves only through
// Adjust so the history stays truthful.
func (r *StockRepo) Update(ctx context.Context, s Stock) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE stocks SET name=?, unit=?, threshold=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=? AND station_id=?`,
		s.Name, s.Unit, s.Threshold, s.ID, s.StationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStockNotFound
	}
	return nil
}

// Adjust applies a movement to the stock line and appends the history row in
// one transaction, locking the line so concurrent movements serialize. A
// substraction larger than the current quantity fails with
// ErrInsufficientStock instead of driving the line negative.
func (r *StockRepo) Adjust(ctx context.Context, id, stationID uint64, op string, qty int, note string) (Stock, error) {
	if qty <= 0 {
		return Stock{}, ErrInvalidStockOp
	}
	if op != StockOpAddition && op != StockOpSubstract {
		return Stock{}, ErrInvalidStockOp
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Stock{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current int
	err = tx.QueryRowContext(ctx,
		"SELECT quantity FROM stocks WHERE id = ? AND station_id = ? FOR UPDATE",
		id, stationID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrStockNotFound
		return Stock{}, err
	}
	if err != nil {
		return Stock{}, err
	}

	next := current + qty
	if op == StockOpSubstract {
		next = current - qty
		if next < 0 {
			err = ErrInsufficientStock
			return Stock{}, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE stocks SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		next, id); err != nil {
		return Stock{}, err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO stock_histories (stock_id, operation, quantity, note) VALUES (?,?,?,?)",
		id, op, qty, note); err != nil {
		return Stock{}, err
	}

	var s Stock
	s, err = scanStock(tx.QueryRowContext(ctx,
		"SELECT "+stockColumns+" FROM stocks WHERE id = ?", id))
	if err != nil {
		return Stock{}, err
	}
	err = tx.Commit()
	return s, err
}

// Delete removes a stock line and its history in one transaction.
func (r *StockRepo) Delete(ctx context.Context, id, stationID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
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
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"DELETE FROM stocks WHERE id = ? AND station_id = ?", id, stationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrStockNotFound
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM stock_histories WHERE stock_id = ?", id)
	return err
}

// History returns the movements of a stock line, newest first.
func (r *StockRepo) History(ctx context.Context, stockID uint64) ([]StockHistory, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, stock_id, operation, quantity, note, created_at
		 FROM stock_histories WHERE stock_id = ? ORDER BY id DESC`, stockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockHistory
	for rows.Next() {
		var h StockHistory
		if err := rows.Scan(&h.ID, &h.StockID, &h.Operation, &h.Quantity, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
