package db

import (
	"database/sql"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"straitwatch/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Open(cfg config.DBConfig) (*DB, error) {
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, err
	}

	conn, err := Wrap(gdb)
	if err != nil {
		return nil, err
	}

	conn.SQL.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SQL.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SQL.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SQL.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return conn, nil
}

// Wrap exposes an already opened gorm handle (any dialect) as a DB.
func Wrap(gdb *gorm.DB) (*DB, error) {
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

func SetTimezone(db *DB, tz string) error {
	tz = strings.TrimSpace(tz)
	if tz == "" || db == nil || db.SQL == nil {
		return nil
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + strings.ReplaceAll(tz, "'", "''") + "'")
	return err
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
