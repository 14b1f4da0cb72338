package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDb(Config{
		Driver:   DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %s", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func createUser(t *testing.T, repo *Repository, name string) *User {
	t.Helper()
	u := &User{Username: name, Password: "x", IsActive: true}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("can't create user: %s", err)
	}
	return u
}

func createFile(t *testing.T, repo *Repository, owner *User, name string, serials ...string) *UploadedFile {
	t.Helper()
	ctx := context.Background()
	f := &UploadedFile{Name: name, OwnerID: owner.ID, UploadedAt: time.Now()}
	if err := repo.CreateFile(ctx, f); err != nil {
		t.Fatalf("can't create file: %s", err)
	}
	rows := make([]*FileRow, 0, len(serials))
	for _, s := range serials {
		rows = append(rows, &FileRow{FileID: f.ID, OwnerID: owner.ID, PosSerialNumber: s})
	}
	if err := repo.CreateRows(ctx, rows); err != nil {
		t.Fatalf("can't create rows: %s", err)
	}
	return f
}

func TestRepository_Users(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	u := createUser(t, repo, "alice")

	t.Run("duplicate username", func(t *testing.T) {
		err := repo.CreateUser(ctx, &User{Username: "alice", Password: "y"})
		assert.True(t, IsUniqueViolation(err), "got %v", err)
	})
	t.Run("exists", func(t *testing.T) {
		ok, err := repo.UsernameExists(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.UsernameExists(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("token is created once", func(t *testing.T) {
		t1, err := repo.GetOrCreateToken(ctx, u.ID)
		require.NoError(t, err)
		t2, err := repo.GetOrCreateToken(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, t1.Key, t2.Key)

		got, err := repo.GetUserByToken(ctx, t1.Key)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = repo.GetUserByToken(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestRepository_Options(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	alice, bob := createUser(t, repo, "alice"), createUser(t, repo, "bob")

	for _, v := range []string{"used", "new"} {
		require.NoError(t, repo.AddOption(ctx, &UserOption{UserID: alice.ID, Kind: OptionTechnicalCondition, Value: v}))
	}
	require.NoError(t, repo.AddOption(ctx, &UserOption{UserID: alice.ID, Kind: OptionWarehouseName, Value: "Main"}))

	err := repo.AddOption(ctx, &UserOption{UserID: alice.ID, Kind: OptionTechnicalCondition, Value: "new"})
	assert.True(t, IsUniqueViolation(err), "got %v", err)

	opts, err := repo.ListOptions(ctx, alice.ID, OptionTechnicalCondition)
	require.NoError(t, err)
	values := make([]string, 0, len(opts))
	for _, o := range opts {
		values = append(values, o.Value)
	}
	assert.Equal(t, []string{"new", "used"}, values)

	assert.ErrorIs(t, repo.RemoveOption(ctx, bob.ID, OptionTechnicalCondition, opts[0].ID), ErrRecordNotFound)
	assert.ErrorIs(t, repo.RemoveOption(ctx, alice.ID, OptionWarehouseName, opts[0].ID), ErrRecordNotFound)
	require.NoError(t, repo.RemoveOption(ctx, alice.ID, OptionTechnicalCondition, opts[0].ID))

	opts, err = repo.ListOptions(ctx, alice.ID, OptionTechnicalCondition)
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestRepository_Files(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	alice, bob := createUser(t, repo, "alice"), createUser(t, repo, "bob")

	first := createFile(t, repo, alice, "stock.xlsx", "A", "B", "A")
	createFile(t, repo, bob, "stock.xlsx")

	t.Run("name is unique per owner", func(t *testing.T) {
		exists, err := repo.FileExists(ctx, alice.ID, "stock.xlsx")
		require.NoError(t, err)
		assert.True(t, exists)

		err = repo.CreateFile(ctx, &UploadedFile{Name: "stock.xlsx", OwnerID: alice.ID, UploadedAt: time.Now()})
		assert.True(t, IsUniqueViolation(err), "got %v", err)
	})

	t.Run("latest first", func(t *testing.T) {
		second := createFile(t, repo, alice, "later.xlsx")
		files, err := repo.ListFiles(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, second.ID, files[0].ID)

		latest, err := repo.LatestFile(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
	})

	t.Run("first match by serial", func(t *testing.T) {
		rows, err := repo.ListRows(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		row, err := repo.FindRowBySerial(ctx, first.ID, "A")
		require.NoError(t, err)
		assert.Equal(t, rows[0].ID, row.ID)

		_, err = repo.FindRowBySerial(ctx, first.ID, "C")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("scan overlay only touches scan fields", func(t *testing.T) {
		row, err := repo.FindRowBySerial(ctx, first.ID, "B")
		require.NoError(t, err)
		row.ScannedTechnicalCondition = "broken"
		row.ScannedOutletWhsName = "Main"
		row.PosModel = "not written"
		require.NoError(t, repo.UpdateScan(ctx, row))

		got, err := repo.FindRowBySerial(ctx, first.ID, "B")
		require.NoError(t, err)
		assert.Equal(t, "broken", got.ScannedTechnicalCondition)
		assert.Equal(t, "Main", got.ScannedOutletWhsName)
		assert.Equal(t, "", got.PosModel)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := repo.Transaction(ctx, func(tx *Repository) error {
			if err := tx.CreateFile(ctx, &UploadedFile{Name: "rolled.xlsx", OwnerID: alice.ID, UploadedAt: time.Now()}); err != nil {
				return err
			}
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		exists, err := repo.FileExists(ctx, alice.ID, "rolled.xlsx")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("file removal cascades to rows", func(t *testing.T) {
		require.NoError(t, repo.db.Delete(&UploadedFile{}, first.ID).Error)
		n, err := repo.CountRows(ctx, first.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRepository_Routes(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	u := createUser(t, repo, "admin")
	day := datatypes.Date(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	other := datatypes.Date(time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC))

	route := func(company string, d datatypes.Date) *Route {
		return &Route{
			TypeOfRoute: "install", SrName: "sr", Region: "north", CompanyName: "acme",
			OutletName: "shop", DeliveryAddress: "main st", TransportCompany: company,
			DateForDelivery: d, UserID: u.ID,
		}
	}
	routes := []*Route{route("fast", day), route("slow", day), route("fast", other)}
	require.NoError(t, repo.CreateRoutes(ctx, routes))

	ids := func(rs []*Route) []uint {
		res := make([]uint, 0, len(rs))
		for _, r := range rs {
			res = append(res, r.ID)
		}
		return res
	}

	all, err := repo.ListRoutes(ctx, day, "")
	require.NoError(t, err)
	if diff := cmp.Diff([]uint{routes[0].ID, routes[1].ID}, ids(all)); diff != "" {
		t.Errorf("ListRoutes() mismatch (-want +got):\n%s", diff)
	}
	fast, err := repo.ListRoutes(ctx, day, "fast")
	require.NoError(t, err)
	assert.Equal(t, []uint{routes[0].ID}, ids(fast))

	loaded, err := repo.GetRoutes(ctx, []uint{routes[0].ID, routes[2].ID, 9999})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	loaded[routes[0].ID].Comment = "call first"
	loaded[routes[2].ID].TransportCompany = "slow"
	require.NoError(t, repo.SaveRoutes(ctx, []*Route{loaded[routes[0].ID], loaded[routes[2].ID]}))

	got, err := repo.GetRoutes(ctx, []uint{routes[0].ID, routes[1].ID, routes[2].ID})
	require.NoError(t, err)
	assert.Equal(t, "call first", got[routes[0].ID].Comment)
	assert.Equal(t, "slow", got[routes[2].ID].TransportCompany)
	assert.Equal(t, "", got[routes[1].ID].Comment)
	assert.Equal(t, u.ID, got[routes[2].ID].UserID)
}
