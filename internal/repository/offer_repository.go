package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Offer is a subscription plan station owners can subscribe to. Which
// features the plan unlocks is carried by the benefits attached through
// offer_benefits.
type Offer struct {
	ID          uint64
	Name        string
	Description string
	Price       float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	ErrOfferNotFound  = errors.New("offer not found")
	ErrOfferNameTaken = errors.New("offer name already taken")
)

type OfferRepo struct{ DB *sql.DB }

func NewOfferRepo(db *sql.DB) *OfferRepo { return &OfferRepo{DB: db} }

const offerColumns = "id, name, description, price, created_at, updated_at"

func scanOffer(row interface{ Scan(...any) error }) (Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.Price, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts an offer. Offer names are unique.
func (r *OfferRepo) Create(ctx context.Context, name, description string, price float64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO offers (name, description, price) VALUES (?,?,?)",
		name, description, price)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrOfferNameTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one offer.
func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (Offer, error) {
	o, err := scanOffer(r.DB.QueryRowContext(ctx,
		"SELECT "+offerColumns+" FROM offers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Offer{}, ErrOfferNotFound
	}
	return o, err
}

// List returns all offers ordered by id.
func (r *OfferRepo) List(ctx context.Context) ([]Offer, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+offerColumns+" FROM offers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Update rewrites the offer's fields.
func (r *OfferRepo) Update(ctx context.Context, o Offer) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE offers SET name=?, description=?, price=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`, o.Name, o.Description, o.Price, o.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrOfferNameTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// Delete removes an offer and its benefit links in one transaction.
// Subscription rows pointing at the offer stay for history, but with the
// links gone the gate stops granting the offer's benefits immediately.
func (r *OfferRepo) Delete(ctx context.Context, id uint64) error {
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
	if _, err = tx.ExecContext(ctx, "DELETE FROM offer_benefits WHERE offer_id = ?", id); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, "DELETE FROM offers WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrOfferNotFound
	}
	return err
}
