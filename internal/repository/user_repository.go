package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/washly/station-backend/internal/utils"
)

// User mirrors the 'users' table. One table holds every account type; the
// subordinate roles (station_manager, car_washer, station_client) carry the
// id of the station owner that created them in OwnerID, zero otherwise.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Firstname    string
	Lastname     string
	Phone        string
	Age          uint
	Role         string
	OwnerID      uint64 // owning station_owner for subordinate accounts, 0 for top-level
	IsVerified   bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries the fields accepted when registering an account. Role and
// OwnerID are decided by the caller after running the role hierarchy, never
// taken verbatim from the request.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	Firstname string
	Lastname  string
	Phone     string
	Age       uint
	Role      string
	OwnerID   uint64
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
)

const userColumns = "id, username, email, password_hash, firstname, lastname, phone, age, role, COALESCE(owner_id, 0), is_verified, is_active, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Firstname, &u.Lastname, &u.Phone, &u.Age, &u.Role, &u.OwnerID,
		&u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// mapDuplicate converts a 1062 violation on the username or email unique
// index into the matching sentinel.
func mapDuplicate(err error) error {
	switch {
	case duplicateKeyOn(err, "uq_users_username"):
		return ErrUsernameTaken
	case duplicateKeyOn(err, "uq_users_email"):
		return ErrEmailTaken
	default:
		return err
	}
}

const insertUserSQL = `INSERT INTO users
	(username, email, password_hash, firstname, lastname, phone, age, role, owner_id, is_verified, is_active)
	VALUES (?,?,?,?,?,?,?,?,NULLIF(?,0),FALSE,TRUE)`

// Create inserts an account and returns its id. Username and email
// uniqueness rides on the table's unique indexes; violations surface as
// ErrUsernameTaken / ErrEmailTaken rather than a pre-check that could race.
func (r *UserRepo) Create(ctx context.Context, n NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(n.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, insertUserSQL,
		strings.TrimSpace(n.Username), normalizeEmail(n.Email), hash,
		n.Firstname, n.Lastname, n.Phone, n.Age, n.Role, n.OwnerID)
	if err != nil {
		return 0, mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateRegisteredByManager inserts a station_owner account and the
// wash_records audit row tying it to the registering system manager in one
// transaction. Either both rows exist afterwards or neither does; a created
// owner without its audit row would silently escape the manager's quota.
func (r *UserRepo) CreateRegisteredByManager(ctx context.Context, n NewUser, cost int, managerID uint64) (uint64, error) {
	hash, err := utils.HashPassword(n.Password, cost)
	if err != nil {
		return 0, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var res sql.Result
	res, err = tx.ExecContext(ctx, insertUserSQL,
		strings.TrimSpace(n.Username), normalizeEmail(n.Email), hash,
		n.Firstname, n.Lastname, n.Phone, n.Age, n.Role, n.OwnerID)
	if err != nil {
		err = mapDuplicate(err)
		return 0, err
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// wash_id carries a unique index: a given owner is registered by at
	// most one manager, ever.
	_, err = tx.ExecContext(ctx,
		"INSERT INTO wash_records (manager_id, wash_date, wash_id) VALUES (?, CURDATE(), ?)",
		managerID, id)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIdentifier fetches a user by username or email (the login form
// accepts either).
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? LIMIT 1",
		identifier, normalizeEmail(identifier)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// GetOwnerOf resolves the station_owner account a subordinate belongs to.
func (r *UserRepo) GetOwnerOf(ctx context.Context, employeeID uint64) (User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id = (SELECT owner_id FROM users WHERE id = ?) LIMIT 1`, employeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *UserRepo) listQuery(ctx context.Context, q string, args ...any) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
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

// ListAllExcept returns every account except the given one; the super admin
// listing view.
func (r *UserRepo) ListAllExcept(ctx context.Context, selfID uint64) ([]User, error) {
	return r.listQuery(ctx,
		"SELECT "+userColumns+" FROM users WHERE id <> ? ORDER BY id", selfID)
}

// ListSubordinates returns the employee accounts created by an owner.
func (r *UserRepo) ListSubordinates(ctx context.Context, ownerID uint64) ([]User, error) {
	return r.listQuery(ctx,
		"SELECT "+userColumns+" FROM users WHERE owner_id = ? ORDER BY id", ownerID)
}

// ListByRole returns accounts holding the given role.
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]User, error) {
	return r.listQuery(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? ORDER BY id", role)
}

// ListRegisteredBy returns the station owners whose registration audit row
// points at the given system manager.
func (r *UserRepo) ListRegisteredBy(ctx context.Context, managerID uint64) ([]User, error) {
	return r.listQuery(ctx,
		`SELECT u.id, u.username, u.email, u.password_hash, u.firstname, u.lastname,
		        u.phone, u.age, u.role, COALESCE(u.owner_id, 0), u.is_verified,
		        u.is_active, u.created_at, u.updated_at
		 FROM users u
		 JOIN wash_records w ON w.wash_id = u.id
		 WHERE w.manager_id = ? AND u.role = 'station_owner'
		 ORDER BY u.id`, managerID)
}

// Update rewrites the mutable profile columns. Callers merge request fields
// into a loaded User first, so every column is written unconditionally.
func (r *UserRepo) Update(ctx context.Context, u User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET username=?, email=?, password_hash=?, firstname=?, lastname=?,
		 phone=?, age=?, role=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		u.Username, normalizeEmail(u.Email), u.PasswordHash, u.Firstname, u.Lastname,
		u.Phone, u.Age, u.Role, u.ID)
	if err != nil {
		return mapDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive flips the account's active flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRole changes the account's role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes an account and every row hanging off it: stock history and
// stocks of its stations, station assignments (as station side and as
// employee side), stations, subscriptions, quota, audit rows and subordinate
// accounts' owner link. Runs in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
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

	var exists uint64
	if err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrUserNotFound
		}
		return err
	}

	steps := []string{
		`DELETE h FROM stock_histories h
		 JOIN stocks s ON s.id = h.stock_id
		 JOIN car_washes c ON c.id = s.station_id
		 WHERE c.owner_id = ?`,
		`DELETE s FROM stocks s
		 JOIN car_washes c ON c.id = s.station_id
		 WHERE c.owner_id = ?`,
		`DELETE a FROM station_employees a
		 JOIN car_washes c ON c.id = a.station_id
		 WHERE c.owner_id = ?`,
		`DELETE FROM station_employees WHERE employee_id = ?`,
		`DELETE FROM car_washes WHERE owner_id = ?`,
		`DELETE FROM subscriptions WHERE user_id = ?`,
		`DELETE FROM manager_quotas WHERE manager_id = ?`,
		`DELETE FROM wash_records WHERE manager_id = ? OR wash_id = ?`,
		`UPDATE users SET owner_id = NULL WHERE owner_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, q := range steps {
		args := []any{id}
		if strings.Count(q, "?") == 2 {
			args = append(args, id)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
