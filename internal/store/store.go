// Package store provides SQLite-backed persistence for composition
// records: the results of compose runs, their confirmations, and the
// links created by recomposition.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/composureci/composure/pkg/models"
)

// ErrNotFound is returned when a composition id does not exist.
var ErrNotFound = errors.New("composition not found")

// Status is the lifecycle state of a composition record.
type Status string

const (
	// StatusCreated means the composition was generated but not confirmed.
	StatusCreated Status = "created"
	// StatusDeployed means a blueprint was confirmed for deployment.
	StatusDeployed Status = "deployed"
	// StatusRecomposed means a newer composition superseded this one.
	StatusRecomposed Status = "recomposed"
)

// Composition is one persisted pipeline result.
type Composition struct {
	// ID is the composition identifier (uuid).
	ID string
	// Requirements is the requirements text the run was invoked with.
	Requirements string
	// Constraints is the open constraint map passed to the run.
	Constraints map[string]any
	// Status is the record's lifecycle state.
	Status Status
	// Blueprints is the blueprint set the run produced, nil when the
	// run degraded to no result.
	Blueprints *models.BlueprintSet
	// AuditLog is the run's stage-outcome trail.
	AuditLog []string
	// ConfirmedBlueprint is the alternative chosen at confirmation.
	ConfirmedBlueprint *models.CompositionBlueprint
	// DeploymentContext is the open map supplied at confirmation.
	DeploymentContext map[string]any
	// RecomposedFrom links a recomposition result to its predecessor.
	RecomposedFrom string
	// CreatedAt is when the record was stored.
	CreatedAt time.Time
	// ConfirmedAt is when the composition was confirmed, if ever.
	ConfirmedAt *time.Time
}

// DB wraps an SQLite database holding composition records.
type DB struct {
	conn *sql.DB
	path string
}

// DefaultPath returns the default database location.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "composure", "compositions.db")
}

// Open opens (and if needed creates) the database at path. WAL mode is
// enabled for concurrent reads while the server handles requests.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compositions (
		id                  TEXT PRIMARY KEY,
		requirements        TEXT NOT NULL,
		constraints         TEXT NOT NULL DEFAULT '{}',
		status              TEXT NOT NULL,
		blueprints          TEXT,
		audit_log           TEXT NOT NULL DEFAULT '[]',
		confirmed_blueprint TEXT,
		deployment_context  TEXT,
		recomposed_from     TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMP NOT NULL,
		confirmed_at        TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_compositions_status ON compositions(status);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Create inserts a new composition record.
func (db *DB) Create(c *Composition) error {
	constraints, err := json.Marshal(orEmptyMap(c.Constraints))
	if err != nil {
		return fmt.Errorf("encode constraints: %w", err)
	}
	auditLog, err := json.Marshal(orEmptySlice(c.AuditLog))
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}

	var blueprints any
	if c.Blueprints != nil {
		data, err := json.Marshal(c.Blueprints)
		if err != nil {
			return fmt.Errorf("encode blueprints: %w", err)
		}
		blueprints = string(data)
	}

	_, err = db.conn.Exec(`
		INSERT INTO compositions
			(id, requirements, constraints, status, blueprints, audit_log, recomposed_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Requirements, string(constraints), string(c.Status),
		blueprints, string(auditLog), c.RecomposedFrom, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert composition: %w", err)
	}
	return nil
}

// Get returns the composition with the given id, or ErrNotFound.
func (db *DB) Get(id string) (*Composition, error) {
	row := db.conn.QueryRow(`
		SELECT id, requirements, constraints, status, blueprints, audit_log,
		       confirmed_blueprint, deployment_context, recomposed_from,
		       created_at, confirmed_at
		FROM compositions WHERE id = ?`, id)

	return scanComposition(row)
}

// Confirm stores the chosen blueprint and deployment context for a
// composition and moves it to the deployed state.
func (db *DB) Confirm(id string, blueprint *models.CompositionBlueprint, deployCtx map[string]any, confirmedAt time.Time) error {
	blueprintJSON, err := json.Marshal(blueprint)
	if err != nil {
		return fmt.Errorf("encode confirmed blueprint: %w", err)
	}
	ctxJSON, err := json.Marshal(orEmptyMap(deployCtx))
	if err != nil {
		return fmt.Errorf("encode deployment context: %w", err)
	}

	res, err := db.conn.Exec(`
		UPDATE compositions
		SET status = ?, confirmed_blueprint = ?, deployment_context = ?, confirmed_at = ?
		WHERE id = ?`,
		string(StatusDeployed), string(blueprintJSON), string(ctxJSON), confirmedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("confirm composition: %w", err)
	}

	return requireOneRow(res)
}

// MarkRecomposed flags a composition as superseded by a newer one.
func (db *DB) MarkRecomposed(id string) error {
	res, err := db.conn.Exec(`UPDATE compositions SET status = ? WHERE id = ?`,
		string(StatusRecomposed), id)
	if err != nil {
		return fmt.Errorf("mark recomposed: %w", err)
	}
	return requireOneRow(res)
}

// List returns the most recent compositions, newest first.
func (db *DB) List(limit int) ([]*Composition, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, requirements, constraints, status, blueprints, audit_log,
		       confirmed_blueprint, deployment_context, recomposed_from,
		       created_at, confirmed_at
		FROM compositions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list compositions: %w", err)
	}
	defer rows.Close()

	var out []*Composition
	for rows.Next() {
		c, err := scanComposition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanComposition(row scanner) (*Composition, error) {
	var c Composition
	var constraints, auditLog string
	var blueprints, confirmedBlueprint, deployCtx sql.NullString
	var confirmedAt sql.NullTime

	err := row.Scan(&c.ID, &c.Requirements, &constraints, (*string)(&c.Status),
		&blueprints, &auditLog, &confirmedBlueprint, &deployCtx,
		&c.RecomposedFrom, &c.CreatedAt, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan composition: %w", err)
	}

	if err := json.Unmarshal([]byte(constraints), &c.Constraints); err != nil {
		return nil, fmt.Errorf("decode constraints: %w", err)
	}
	if err := json.Unmarshal([]byte(auditLog), &c.AuditLog); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	if blueprints.Valid {
		c.Blueprints = &models.BlueprintSet{}
		if err := json.Unmarshal([]byte(blueprints.String), c.Blueprints); err != nil {
			return nil, fmt.Errorf("decode blueprints: %w", err)
		}
	}
	if confirmedBlueprint.Valid {
		c.ConfirmedBlueprint = &models.CompositionBlueprint{}
		if err := json.Unmarshal([]byte(confirmedBlueprint.String), c.ConfirmedBlueprint); err != nil {
			return nil, fmt.Errorf("decode confirmed blueprint: %w", err)
		}
	}
	if deployCtx.Valid {
		if err := json.Unmarshal([]byte(deployCtx.String), &c.DeploymentContext); err != nil {
			return nil, fmt.Errorf("decode deployment context: %w", err)
		}
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		c.ConfirmedAt = &t
	}

	return &c, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
