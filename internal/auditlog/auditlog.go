// Package auditlog records an append-only trail of dynamic-update
// attempts (accepted and rejected) in an embedded, migration-managed
// SQLite database.
//
// This is observability only: it is never read back at startup to
// reconstruct the live host table, so it does not give dynamic updates
// the persistence the resolver's core explicitly avoids. It exists purely
// so an operator can later ask "who tried to update what, and did it
// stick".
package auditlog

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Log wraps a SQLite connection recording dynamic-update attempts.
type Log struct {
	conn *sql.DB
}

// Open opens or creates the audit database at path and runs its
// migrations.
func Open(path string) (*Log, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	l := &Log{conn: conn}
	if err := l.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running audit log migrations: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

func (l *Log) runMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(l.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Record inserts one dyndns attempt outcome. Failures to write are
// returned so the caller can log them; they never block the resolver's
// own reply to the client (the caller is expected to fire-and-log, not
// fire-and-block).
func (l *Log) Record(sourceAddr, host, ip string, accepted bool, reason string) error {
	_, err := l.conn.Exec(
		`INSERT INTO dyndns_attempts (source_addr, host, ip, accepted, reason) VALUES (?, ?, ?, ?, ?)`,
		sourceAddr, host, ip, boolToInt(accepted), reason,
	)
	if err != nil {
		return fmt.Errorf("recording dyndns attempt: %w", err)
	}
	return nil
}

// Attempt is one row of the audit trail, for the admin API's /audit
// endpoint.
type Attempt struct {
	OccurredAt time.Time `json:"occurred_at"`
	SourceAddr string    `json:"source_addr"`
	Host       string    `json:"host"`
	IP         string    `json:"ip"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason,omitempty"`
}

// Recent returns up to limit of the most recent attempts, newest first.
func (l *Log) Recent(limit int) ([]Attempt, error) {
	rows, err := l.conn.Query(
		`SELECT occurred_at, source_addr, host, ip, accepted, reason
		 FROM dyndns_attempts ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var accepted int
		if err := rows.Scan(&a.OccurredAt, &a.SourceAddr, &a.Host, &a.IP, &accepted, &a.Reason); err != nil {
			return nil, fmt.Errorf("scanning attempt row: %w", err)
		}
		a.Accepted = accepted != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
