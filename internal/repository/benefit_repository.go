package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Benefit names a feature an offer can unlock. PermissionName is the stable
// machine key the access checks match on; Name and Description are display
// text and free to change.
type Benefit struct {
	ID             uint64
	Name           string
	Description    string
	PermissionName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	ErrBenefitNotFound        = errors.New("benefit not found")
	ErrPermissionNameTaken    = errors.New("permission name already taken")
	ErrBenefitAlreadyAttached = errors.New("benefit already attached to offer")
)

type BenefitRepo struct{ DB *sql.DB }

func NewBenefitRepo(db *sql.DB) *BenefitRepo { return &BenefitRepo{DB: db} }

const benefitColumns = "id, name, description, permission_name, created_at, updated_at"

func scanBenefit(row interface{ Scan(...any) error }) (Benefit, error) {
	var b Benefit
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.PermissionName, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Create inserts a benefit. permission_name carries a unique index.
func (r *BenefitRepo) Create(ctx context.Context, name, description, permissionName string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO benefits (name, description, permission_name) VALUES (?,?,?)",
		name, description, permissionName)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrPermissionNameTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one benefit.
func (r *BenefitRepo) GetByID(ctx context.Context, id uint64) (Benefit, error) {
	b, err := scanBenefit(r.DB.QueryRowContext(ctx,
		"SELECT "+benefitColumns+" FROM benefits WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Benefit{}, ErrBenefitNotFound
	}
	return b, err
}

// List returns all benefits ordered by id.
func (r *BenefitRepo) List(ctx context.Context) ([]Benefit, error) {
	return r.listQuery(ctx, "SELECT "+benefitColumns+" FROM benefits ORDER BY id")
}

func (r *BenefitRepo) listQuery(ctx context.Context, q string, args ...any) ([]Benefit, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update rewrites the benefit's fields.
func (r *BenefitRepo) Update(ctx context.Context, b Benefit) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE benefits SET name=?, description=?, permission_name=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`, b.Name, b.Description, b.PermissionName, b.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrPermissionNameTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBenefitNotFound
	}
	return nil
}

// Delete removes a benefit and its offer links in one transaction.
func (r *BenefitRepo) Delete(ctx context.Context, id uint64) error {
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
	if _, err = tx.ExecContext(ctx, "DELETE FROM offer_benefits WHERE benefit_id = ?", id); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, "DELETE FROM benefits WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrBenefitNotFound
	}
	return err
}

// AttachToOffer links a benefit to an offer. The (offer_id, benefit_id)
// unique index makes re-attaching a conflict.
func (r *BenefitRepo) AttachToOffer(ctx context.Context, offerID, benefitID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO offer_benefits (offer_id, benefit_id) VALUES (?, ?)", offerID, benefitID)
	if isDuplicateKey(err) {
		return ErrBenefitAlreadyAttached
	}
	return err
}

// DetachFromOffer removes the link between a benefit and an offer.
func (r *BenefitRepo) DetachFromOffer(ctx context.Context, offerID, benefitID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM offer_benefits WHERE offer_id = ? AND benefit_id = ?", offerID, benefitID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBenefitNotFound
	}
	return nil
}

// ListForOffer returns the benefits attached to an offer.
func (r *BenefitRepo) ListForOffer(ctx context.Context, offerID uint64) ([]Benefit, error) {
	return r.listQuery(ctx,
		`SELECT b.id, b.name, b.description, b.permission_name, b.created_at, b.updated_at
		 FROM benefits b
		 JOIN offer_benefits ob ON ob.benefit_id = b.id
		 WHERE ob.offer_id = ?
		 ORDER BY b.id`, offerID)
}

// PermissionNamesForOffer returns just the permission keys an offer grants.
// This is what the benefit gate consults on every protected request.
func (r *BenefitRepo) PermissionNamesForOffer(ctx context.Context, offerID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.permission_name
		 FROM benefits b
		 JOIN offer_benefits ob ON ob.benefit_id = b.id
		 WHERE ob.offer_id = ?`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
