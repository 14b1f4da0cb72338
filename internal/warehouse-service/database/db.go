package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	sqliteGo "github.com/mattn/go-sqlite3"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CustomDriverName is the sqlite driver with foreign keys switched on for
// every connection, cascades depend on it.
const CustomDriverName = "sqlite3_fk"

const DefaultFile = "warehouse-service.db"

var ErrUnknownDriver = errors.New("unknown database driver")

// ErrRecordNotFound is re-exported so callers don't import gorm.
var ErrRecordNotFound = gorm.ErrRecordNotFound

func init() {
	sql.Register(CustomDriverName,
		&sqliteGo.SQLiteDriver{
			ConnectHook: func(conn *sqliteGo.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
				return err
			},
		},
	)
}

type Config struct {
	Driver   string
	DSN      string
	MaxConns int
	LogLevel logger.LogLevel
}

func NewDb(cfg Config) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		maxConns  = cfg.MaxConns
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = DefaultFile
		}
		conn, err := sql.Open(CustomDriverName, dsn)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Dialector{
			DriverName: CustomDriverName,
			DSN:        dsn,
			Conn:       conn,
		}
		// one writer at a time, sqlite would answer "database is locked" otherwise
		maxConns = 1
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                   logger.Default.LogMode(level),
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
		TranslateError:           true,
	})
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}

	err = db.AutoMigrate(
		&User{},
		&Token{},
		&UserOption{},
		&UploadedFile{},
		&FileRow{},
		&Route{},
	)
	return db, err
}

// Ping checks that the database still answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsUniqueViolation reports whether err comes from a unique index,
// whichever driver produced it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqliteGo.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqliteGo.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqliteGo.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
