// Package dbtest opens throwaway SQLite databases carrying the same tables as
// the Postgres migrations, for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		role TEXT NOT NULL DEFAULT 'citizen',
		admin_area TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE reports (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		tags TEXT,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT,
		zip_code TEXT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		is_public BOOLEAN NOT NULL DEFAULT 1,
		reporter_id TEXT NOT NULL REFERENCES users(id),
		assigned_to TEXT REFERENCES users(id),
		upvote_count INTEGER NOT NULL DEFAULT 0,
		resolved_at DATETIME,
		estimated_resolution_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE report_images (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		public_id TEXT NOT NULL,
		caption TEXT,
		UNIQUE (report_id, position)
	)`,
	`CREATE TABLE report_status_history (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		comment TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE (report_id, seq)
	)`,
	`CREATE TABLE report_comments (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE report_upvotes (
		report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (report_id, user_id)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		outbox_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh in-memory database with the full schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                db.UTCNow,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
