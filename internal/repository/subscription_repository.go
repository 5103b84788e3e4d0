package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Subscription ties a station owner to an offer for a period. EndDate may be
// NULL for legacy open-ended rows; Status holds the stored state which the
// access layer reclassifies against the clock when reporting.
type Subscription struct {
	ID        uint64
	UserID    uint64
	OfferID   uint64
	StartDate time.Time
	EndDate   sql.NullTime
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrNoActiveSubscription     = errors.New("no active subscription")
	ErrActiveSubscriptionExists = errors.New("active subscription already exists")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
)

type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

const subscriptionColumns = "id, user_id, offer_id, start_date, end_date, status, created_at, updated_at"

func scanSubscription(row interface{ Scan(...any) error }) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.OfferID, &s.StartDate, &s.EndDate,
		&s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ActiveForUser fetches the user's subscription only if it is stored active
// AND not past its end date. This is the row the benefit gate trusts; an
// expired row never grants anything even before its status column catches up.
func (r *SubscriptionRepo) ActiveForUser(ctx context.Context, userID uint64) (Subscription, error) {
	s, err := scanSubscription(r.DB.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? AND status = 'active'
		   AND (end_date IS NULL OR end_date >= CURDATE())
		 ORDER BY id DESC LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNoActiveSubscription
	}
	return s, err
}

// LatestForUser fetches the most recent subscription row regardless of state.
// Used by the status endpoint, which reports expiry instead of hiding the row.
func (r *SubscriptionRepo) LatestForUser(ctx context.Context, userID uint64) (Subscription, error) {
	s, err := scanSubscription(r.DB.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY id DESC LIMIT 1",
		userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return s, err
}

// Subscribe creates a 30-day active subscription unless the user already has
// a live one. The existence check and the insert run in one transaction with
// the user's rows locked, so two concurrent subscribes cannot both pass the
// check.
func (r *SubscriptionRepo) Subscribe(ctx context.Context, userID, offerID uint64) (Subscription, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Subscription{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM subscriptions
		 WHERE user_id = ? AND status = 'active'
		   AND (end_date IS NULL OR end_date >= CURDATE())
		 LIMIT 1 FOR UPDATE`, userID).Scan(&existing)
	if err == nil {
		err = ErrActiveSubscriptionExists
		return Subscription{}, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, offer_id, start_date, end_date, status)
		 VALUES (?, ?, CURDATE(), DATE_ADD(CURDATE(), INTERVAL 30 DAY), 'active')`,
		userID, offerID)
	if err != nil {
		return Subscription{}, err
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return Subscription{}, err
	}
	var s Subscription
	s, err = scanSubscription(tx.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id))
	if err != nil {
		return Subscription{}, err
	}
	err = tx.Commit()
	return s, err
}

// Renew extends the subscription by 30 days from its current end date, or
// from today when the end date already passed, and flips the row back to
// active. Operates on the user's latest row.
func (r *SubscriptionRepo) Renew(ctx context.Context, userID uint64) (Subscription, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Subscription{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM subscriptions WHERE user_id = ? ORDER BY id DESC LIMIT 1 FOR UPDATE",
		userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrSubscriptionNotFound
		return Subscription{}, err
	}
	if err != nil {
		return Subscription{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE subscriptions
		 SET end_date = DATE_ADD(GREATEST(COALESCE(end_date, CURDATE()), CURDATE()), INTERVAL 30 DAY),
		     status = 'active', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id)
	if err != nil {
		return Subscription{}, err
	}
	var s Subscription
	s, err = scanSubscription(tx.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id))
	if err != nil {
		return Subscription{}, err
	}
	err = tx.Commit()
	return s, err
}
