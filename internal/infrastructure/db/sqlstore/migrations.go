package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// Migration is one versioned schema change. Statements are executed in order
// inside a single transaction, followed by Backfill and then Finalize.
type Migration struct {
	Version     int
	Description string
	SQLite      []string
	Postgres    []string
	// Backfill rewrites existing rows with values computed in Go.
	Backfill func(ctx context.Context, tx *sqlx.Tx) error
	// Finalize runs on both drivers once Backfill is done, typically to
	// build indexes over the backfilled columns.
	Finalize []string
}

func (m Migration) statements(driver string) []string {
	if driver == DriverPostgres {
		return m.Postgres
	}
	return m.SQLite
}

// Migrations returns every schema change in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create users table",
			SQLite: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					username      TEXT NOT NULL,
					email         TEXT NOT NULL,
					password_hash TEXT NOT NULL,
					role          TEXT NOT NULL DEFAULT 'user',
					created_at    TIMESTAMP NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username_lower ON users (lower(username))`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (email)`,
			},
			Postgres: []string{
				`CREATE TABLE IF NOT EXISTS users (
					id            BIGSERIAL PRIMARY KEY,
					username      VARCHAR(50) NOT NULL,
					email         VARCHAR(255) NOT NULL,
					password_hash TEXT NOT NULL,
					role          VARCHAR(20) NOT NULL DEFAULT 'user',
					created_at    TIMESTAMPTZ NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username_lower ON users (lower(username))`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (email)`,
			},
		},
		{
			Version:     2,
			Description: "create vulnerabilities table",
			SQLite: []string{
				`CREATE TABLE IF NOT EXISTS vulnerabilities (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					name          TEXT NOT NULL,
					description   TEXT NOT NULL,
					severity      TEXT NOT NULL,
					created_by    INTEGER NOT NULL,
					created_at    TIMESTAMP NOT NULL,
					status        TEXT NOT NULL DEFAULT 'active',
					deleted_at    TIMESTAMP,
					deleted_by    INTEGER,
					delete_reason TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_vulnerabilities_active_name
					ON vulnerabilities (lower(name)) WHERE status = 'active'`,
				`CREATE INDEX IF NOT EXISTS idx_vulnerabilities_status_severity ON vulnerabilities (status, severity)`,
			},
			Postgres: []string{
				`CREATE TABLE IF NOT EXISTS vulnerabilities (
					id            BIGSERIAL PRIMARY KEY,
					name          VARCHAR(100) NOT NULL,
					description   TEXT NOT NULL,
					severity      VARCHAR(10) NOT NULL,
					created_by    BIGINT NOT NULL,
					created_at    TIMESTAMPTZ NOT NULL,
					status        VARCHAR(10) NOT NULL DEFAULT 'active',
					deleted_at    TIMESTAMPTZ,
					deleted_by    BIGINT,
					delete_reason VARCHAR(255) NOT NULL DEFAULT ''
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_vulnerabilities_active_name
					ON vulnerabilities (lower(name)) WHERE status = 'active'`,
				`CREATE INDEX IF NOT EXISTS idx_vulnerabilities_status_severity ON vulnerabilities (status, severity)`,
			},
		},
		{
			// SQLite's lower() only folds ASCII, so "Évasion" and "évasion"
			// slipped past the expression indexes above.
			Version:     3,
			Description: "unicode-folded uniqueness keys",
			SQLite: []string{
				`ALTER TABLE users ADD COLUMN username_key TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE vulnerabilities ADD COLUMN name_key TEXT NOT NULL DEFAULT ''`,
			},
			Postgres: []string{
				`ALTER TABLE users ADD COLUMN IF NOT EXISTS username_key VARCHAR(50) NOT NULL DEFAULT ''`,
				`ALTER TABLE vulnerabilities ADD COLUMN IF NOT EXISTS name_key VARCHAR(100) NOT NULL DEFAULT ''`,
			},
			Backfill: backfillKeys,
			Finalize: []string{
				`DROP INDEX IF EXISTS ux_users_username_lower`,
				`DROP INDEX IF EXISTS ux_vulnerabilities_active_name`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username_key ON users (username_key)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_vulnerabilities_active_name_key
					ON vulnerabilities (name_key) WHERE status = 'active'`,
			},
		},
	}
}

type keyRow struct {
	ID    int64  `db:"id"`
	Value string `db:"value"`
}

// backfillKeys fills username_key and name_key for rows written before the
// columns existed.
func backfillKeys(ctx context.Context, tx *sqlx.Tx) error {
	var users []keyRow
	if err := tx.SelectContext(ctx, &users, "SELECT id, username AS value FROM users"); err != nil {
		return fmt.Errorf("read usernames: %w", err)
	}
	setUser := tx.Rebind("UPDATE users SET username_key = ? WHERE id = ?")
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, setUser, domain.UsernameKey(u.Value), u.ID); err != nil {
			return fmt.Errorf("backfill user %d: %w", u.ID, err)
		}
	}

	var vulns []keyRow
	if err := tx.SelectContext(ctx, &vulns, "SELECT id, name AS value FROM vulnerabilities"); err != nil {
		return fmt.Errorf("read vulnerability names: %w", err)
	}
	setVuln := tx.Rebind("UPDATE vulnerabilities SET name_key = ? WHERE id = ?")
	for _, v := range vulns {
		if _, err := tx.ExecContext(ctx, setVuln, domain.NameKey(v.Value), v.ID); err != nil {
			return fmt.Errorf("backfill vulnerability %d: %w", v.ID, err)
		}
	}
	return nil
}

// Migrate applies every pending migration and records it in
// schema_migrations. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sqlx.DB, log zerolog.Logger) error {
	log = log.With().Str("component", "migrations").Logger()

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var versions []int
	if err := db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	all := Migrations()
	sort.Slice(all, func(i, j int) bool { return all[i].Version < all[j].Version })

	pending := 0
	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		log.Info().Int("version", m.Version).Str("description", m.Description).Msg("migration applied")
		pending++
	}

	if pending == 0 {
		log.Debug().Msg("schema is up to date")
	}
	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.statements(db.DriverName()) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if m.Backfill != nil {
		if err := m.Backfill(ctx, tx); err != nil {
			return err
		}
	}
	for _, stmt := range m.Finalize {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	record := db.Rebind(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, record, m.Version, m.Description, time.Now().UTC()); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
