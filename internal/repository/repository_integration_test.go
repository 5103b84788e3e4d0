package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run against a real MySQL pointed at by TEST_MYSQL_DSN
// (e.g. "root:secret@tcp(localhost:3306)/station_test?parseTime=true").
// Without it, or when the server is unreachable, they skip.

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set; skipping integration tests")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("mysql unreachable: %v", err)
	}
	createTestTables(t, db)
	return db
}

func createTestTables(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			username VARCHAR(100) NOT NULL, email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			firstname VARCHAR(100) NOT NULL DEFAULT '', lastname VARCHAR(100) NOT NULL DEFAULT '',
			phone VARCHAR(30) NOT NULL DEFAULT '', age INT UNSIGNED NOT NULL DEFAULT 0,
			role VARCHAR(30) NOT NULL, owner_id BIGINT UNSIGNED NULL,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE, is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE KEY uq_users_username (username), UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS wash_records (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			manager_id BIGINT UNSIGNED NOT NULL, wash_date DATE NOT NULL,
			wash_id BIGINT UNSIGNED NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), UNIQUE KEY uq_wash_records_owner (wash_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			user_id BIGINT UNSIGNED NOT NULL, offer_id BIGINT UNSIGNED NOT NULL,
			start_date DATE NOT NULL, end_date DATE NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS manager_quotas (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			manager_id BIGINT UNSIGNED NOT NULL, target INT NOT NULL DEFAULT 0,
			period_start DATE NOT NULL, period_end DATE NOT NULL,
			remuneration DECIMAL(10,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), UNIQUE KEY uq_manager_quotas_manager (manager_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS car_washes (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			owner_id BIGINT UNSIGNED NOT NULL, name VARCHAR(150) NOT NULL,
			city VARCHAR(100) NOT NULL DEFAULT '', country VARCHAR(100) NOT NULL DEFAULT '',
			address VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), KEY idx_car_washes_owner (owner_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS station_employees (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			station_id BIGINT UNSIGNED NOT NULL, employee_id BIGINT UNSIGNED NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), UNIQUE KEY uq_station_employee (station_id, employee_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS offers (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			name VARCHAR(150) NOT NULL, description TEXT NOT NULL,
			price DECIMAL(10,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), UNIQUE KEY uq_offers_name (name)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS benefits (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			name VARCHAR(150) NOT NULL, description TEXT NOT NULL,
			permission_name VARCHAR(100) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id), UNIQUE KEY uq_benefits_permission (permission_name)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS offer_benefits (
			offer_id BIGINT UNSIGNED NOT NULL, benefit_id BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (offer_id, benefit_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			station_id BIGINT UNSIGNED NOT NULL, name VARCHAR(150) NOT NULL,
			quantity INT NOT NULL DEFAULT 0, unit VARCHAR(30) NOT NULL DEFAULT '',
			threshold INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS stock_histories (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			stock_id BIGINT UNSIGNED NOT NULL, operation VARCHAR(20) NOT NULL,
			quantity INT NOT NULL, note VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		) ENGINE=InnoDB`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

// uniq makes identifiers that survive repeated runs against the same
// database.
func uniq(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestUserRepoCreateAndLookup(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	repo := NewUserRepo(db)
	ctx := context.Background()

	username := uniq("it_user")
	email := username + "@example.com"

	id, err := repo.Create(ctx, NewUser{
		Username: username, Email: email, Password: "longenough",
		Role: "station_owner",
	}, 4)
	require.NoError(t, err)
	require.NotZero(t, id)

	t.Run("lookup by username and email", func(t *testing.T) {
		byName, err := repo.GetByIdentifier(ctx, username)
		require.NoError(t, err)
		byMail, err := repo.GetByIdentifier(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, byName.ID, byMail.ID)
		assert.Equal(t, "station_owner", byName.Role)
		assert.True(t, byName.IsActive)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := repo.Create(ctx, NewUser{
			Username: username, Email: uniq("other") + "@example.com",
			Password: "longenough", Role: "station_owner",
		}, 4)
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := repo.Create(ctx, NewUser{
			Username: uniq("other"), Email: email,
			Password: "longenough", Role: "station_owner",
		}, 4)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestUserRepoManagerRegistration(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	users := NewUserRepo(db)
	records := NewWashRecordRepo(db)
	ctx := context.Background()

	managerName := uniq("it_mgr")
	managerID, err := users.Create(ctx, NewUser{
		Username: managerName, Email: managerName + "@example.com",
		Password: "longenough", Role: "system_manager",
	}, 4)
	require.NoError(t, err)

	ownerName := uniq("it_owner")
	ownerID, err := users.CreateRegisteredByManager(ctx, NewUser{
		Username: ownerName, Email: ownerName + "@example.com",
		Password: "longenough", Role: "station_owner",
	}, 4, managerID)
	require.NoError(t, err)

	t.Run("audit row written atomically", func(t *testing.T) {
		rec, err := records.GetByOwnerAndManager(ctx, ownerID, managerID)
		require.NoError(t, err)
		assert.Equal(t, managerID, rec.ManagerID)
		assert.Equal(t, ownerID, rec.WashID)
	})

	t.Run("owner appears in manager listing", func(t *testing.T) {
		owners, err := users.ListRegisteredBy(ctx, managerID)
		require.NoError(t, err)
		found := false
		for _, o := range owners {
			if o.ID == ownerID {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("failed insert leaves no audit row", func(t *testing.T) {
		// Reusing the owner's username forces the user insert to fail; the
		// transaction must roll back without touching wash_records.
		_, err := users.CreateRegisteredByManager(ctx, NewUser{
			Username: ownerName, Email: uniq("dup") + "@example.com",
			Password: "longenough", Role: "station_owner",
		}, 4, managerID)
		require.ErrorIs(t, err, ErrUsernameTaken)
		count, err := records.CountByManager(ctx, managerID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestSubscriptionRepoSubscribe(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	repo := NewSubscriptionRepo(db)
	ctx := context.Background()

	userID := uint64(time.Now().UnixNano() % 1_000_000_000)

	s, err := repo.Subscribe(ctx, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, "active", s.Status)
	require.True(t, s.EndDate.Valid)

	t.Run("second live subscription conflicts", func(t *testing.T) {
		_, err := repo.Subscribe(ctx, userID, 2)
		assert.ErrorIs(t, err, ErrActiveSubscriptionExists)
	})

	t.Run("active row visible to the gate", func(t *testing.T) {
		got, err := repo.ActiveForUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
	})

	t.Run("renew pushes the end date out", func(t *testing.T) {
		renewed, err := repo.Renew(ctx, userID)
		require.NoError(t, err)
		require.True(t, renewed.EndDate.Valid)
		assert.True(t, renewed.EndDate.Time.After(s.EndDate.Time))
	})
}

func TestQuotaRepoUpsert(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	repo := NewQuotaRepo(db)
	ctx := context.Background()

	managerID := uint64(time.Now().UnixNano() % 1_000_000_000)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, ManagerQuota{
		ManagerID: managerID, Target: 10,
		PeriodStart: start, PeriodEnd: end, Remuneration: 500,
	}))

	t.Run("second upsert overwrites in place", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, ManagerQuota{
			ManagerID: managerID, Target: 20,
			PeriodStart: start, PeriodEnd: end, Remuneration: 800,
		}))
		q, err := repo.GetByManager(ctx, managerID)
		require.NoError(t, err)
		assert.Equal(t, 20, q.Target)
		assert.InDelta(t, 800.0, q.Remuneration, 0.001)
	})

	t.Run("unknown manager not found", func(t *testing.T) {
		_, err := repo.GetByManager(ctx, managerID+1)
		assert.ErrorIs(t, err, ErrQuotaNotFound)
	})

	t.Run("row appears in the full listing", func(t *testing.T) {
		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		found := false
		for _, q := range all {
			if q.ManagerID == managerID {
				found = true
				assert.Equal(t, 20, q.Target)
			}
		}
		assert.True(t, found)
	})
}

func TestBenefitRepoOfferAssociation(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	offers := NewOfferRepo(db)
	benefits := NewBenefitRepo(db)
	ctx := context.Background()

	offerID, err := offers.Create(ctx, uniq("it_offer"), "stock plan", 49.90)
	require.NoError(t, err)

	stockPerm := uniq("it_perm_stock")
	statsPerm := uniq("it_perm_stats")
	stockID, err := benefits.Create(ctx, "stock management", "manage station stock", stockPerm)
	require.NoError(t, err)
	statsID, err := benefits.Create(ctx, "statistics", "usage statistics", statsPerm)
	require.NoError(t, err)

	require.NoError(t, benefits.AttachToOffer(ctx, offerID, stockID))
	require.NoError(t, benefits.AttachToOffer(ctx, offerID, statsID))

	t.Run("attached benefits listed in order", func(t *testing.T) {
		got, err := benefits.ListForOffer(ctx, offerID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, stockID, got[0].ID)
		assert.Equal(t, statsID, got[1].ID)
	})

	t.Run("permission keys visible to the gate", func(t *testing.T) {
		perms, err := benefits.PermissionNamesForOffer(ctx, offerID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{stockPerm, statsPerm}, perms)
	})

	t.Run("re-attaching conflicts", func(t *testing.T) {
		err := benefits.AttachToOffer(ctx, offerID, stockID)
		assert.ErrorIs(t, err, ErrBenefitAlreadyAttached)
	})

	t.Run("detach leaves the other link intact", func(t *testing.T) {
		require.NoError(t, benefits.DetachFromOffer(ctx, offerID, statsID))
		got, err := benefits.ListForOffer(ctx, offerID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, stockID, got[0].ID)
	})

	t.Run("detaching an absent link not found", func(t *testing.T) {
		err := benefits.DetachFromOffer(ctx, offerID, statsID)
		assert.ErrorIs(t, err, ErrBenefitNotFound)
	})

	t.Run("offer delete removes the remaining links", func(t *testing.T) {
		require.NoError(t, offers.Delete(ctx, offerID))
		perms, err := benefits.PermissionNamesForOffer(ctx, offerID)
		require.NoError(t, err)
		assert.Empty(t, perms)
	})
}

func TestWorkforceLookups(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	users := NewUserRepo(db)
	stations := NewStationRepo(db)
	assignments := NewAssignmentRepo(db)
	ctx := context.Background()

	ownerName := uniq("it_wf_owner")
	ownerID, err := users.Create(ctx, NewUser{
		Username: ownerName, Email: ownerName + "@example.com",
		Password: "longenough", Role: "station_owner",
	}, 4)
	require.NoError(t, err)

	washerName := uniq("it_wf_washer")
	washerID, err := users.Create(ctx, NewUser{
		Username: washerName, Email: washerName + "@example.com",
		Password: "longenough", Role: "car_washer", OwnerID: ownerID,
	}, 4)
	require.NoError(t, err)

	st := &Station{OwnerID: ownerID, Name: uniq("it_wf_station"), City: "Lyon"}
	require.NoError(t, stations.Create(ctx, st))
	_, err = assignments.Assign(ctx, st.ID, washerID)
	require.NoError(t, err)

	t.Run("owner resolved from a subordinate", func(t *testing.T) {
		owner, err := users.GetOwnerOf(ctx, washerID)
		require.NoError(t, err)
		assert.Equal(t, ownerID, owner.ID)
		assert.Equal(t, ownerName, owner.Username)
	})

	t.Run("no owner for a top-level account", func(t *testing.T) {
		_, err := users.GetOwnerOf(ctx, ownerID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("assigned station ids for an employee", func(t *testing.T) {
		ids, err := assignments.ListStationIDsForEmployee(ctx, washerID)
		require.NoError(t, err)
		assert.Equal(t, []uint64{st.ID}, ids)
	})

	t.Run("station appears in the platform overview", func(t *testing.T) {
		all, err := stations.ListAll(ctx)
		require.NoError(t, err)
		found := false
		for _, s := range all {
			if s.ID == st.ID {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestStockRepoAdjust(t *testing.T) {
	db := testDB(t)
	defer db.Close()
	repo := NewStockRepo(db)
	ctx := context.Background()

	stationID := uint64(time.Now().UnixNano() % 1_000_000_000)
	s := &Stock{StationID: stationID, Name: uniq("soap"), Quantity: 10, Unit: "l"}
	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, 10, s.Quantity)

	t.Run("addition raises the quantity and appends history", func(t *testing.T) {
		got, err := repo.Adjust(ctx, s.ID, stationID, StockOpAddition, 5, "delivery")
		require.NoError(t, err)
		assert.Equal(t, 15, got.Quantity)
		history, err := repo.History(ctx, s.ID)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		assert.Equal(t, StockOpAddition, history[0].Operation)
	})

	t.Run("substraction below zero refused", func(t *testing.T) {
		_, err := repo.Adjust(ctx, s.ID, stationID, StockOpSubstract, 100, "")
		assert.ErrorIs(t, err, ErrInsufficientStock)
		got, err := repo.GetByIDAndStation(ctx, s.ID, stationID)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Quantity)
	})

	t.Run("invalid operation refused", func(t *testing.T) {
		_, err := repo.Adjust(ctx, s.ID, stationID, "removal", 1, "")
		assert.ErrorIs(t, err, ErrInvalidStockOp)
	})
}
