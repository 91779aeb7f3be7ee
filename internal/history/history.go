// Package history keeps an optional sqlite log of frames sent and received
// by this node. It uses the pure Go sqlite driver so the tools stay
// cross-compilable for the Pi without cgo.
package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var ErrStoreClosed = errors.New("history: store closed")

// Store wraps the GORM database instance.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the message log at path and migrates the schema.
func Open(path string) (*Store, error) {
	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := configureSQLite(sqlDB); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("history migrate: %w", err)
	}

	log.Info().Str("path", path).Msg("message history opened")
	return &Store{db: db}, nil
}

func configureSQLite(sqlDB *sql.DB) error {
	pragmaSettings := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmaSettings {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}

// Append stores one record.
func (s *Store) Append(rec Record) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	return s.db.Create(&rec).Error
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	var out []Record
	err := s.db.Order("created_at desc, id desc").Limit(n).Find(&out).Error
	return out, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}
