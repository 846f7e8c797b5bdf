// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/simverse/riversim/internal/entities"
)

// ErrSessionNotFound is returned when a session id has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines the interface for simulation persistence operations
type SessionRepository interface {
	CreateSession(s *entities.Session, first entities.DayRecord) error
	GetSession(id string) (*entities.Session, error)
	ListSessions() ([]entities.Session, error)
	UpdateSession(s *entities.Session, rec *entities.DayRecord) error
	ResetSession(s *entities.Session, first entities.DayRecord) error
	GetHistory(id string) ([]entities.DayRecord, error)
	DeleteSession(id string) error
	PurgeIdleSessions(cutoff time.Time) (int, error)
	SaveObservations(obs []entities.Observation) error
	GetObservations(cutoff time.Time) ([]entities.Observation, error)
	GetLastObservationTime() (time.Time, error)
	Close() error
}

// SQLiteSessionRepository implements SessionRepository using SQLite
type SQLiteSessionRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteSessionRepository creates and initializes a new SQLite repository
func NewSQLiteSessionRepository(dbPath string) (*SQLiteSessionRepository, error) {
	if dbPath == "" {
		// Set default path if not specified
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "riversim.db")
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		pollution REAL NOT NULL,
		oxygen REAL NOT NULL,
		health REAL NOT NULL,
		treatment_plant INTEGER NOT NULL DEFAULT 0,
		regulation INTEGER NOT NULL DEFAULT 0,
		cleanup_drive INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session_history (
		session_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		factory_input REAL NOT NULL DEFAULT 0,
		farm_input REAL NOT NULL DEFAULT 0,
		pollution REAL NOT NULL,
		oxygen REAL NOT NULL,
		health REAL NOT NULL,
		PRIMARY KEY(session_id, day),
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		river TEXT NOT NULL,
		station TEXT NOT NULL,
		water_level TEXT,
		water_temp TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(river, station, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_history_session ON session_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_observations_timestamp ON observations(timestamp);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteSessionRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteSessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSession stores a fresh session together with its day-1 history row
func (r *SQLiteSessionRepository) CreateSession(s *entities.Session, first entities.DayRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	_, err = tx.Exec(`
		INSERT INTO sessions(id, day, pollution, oxygen, health, treatment_plant, regulation, cleanup_drive, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Day, s.Pollution, s.Oxygen, s.Health,
		s.Policies.TreatmentPlant, s.Policies.Regulation, s.Policies.CleanupDrive,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert session %s: %v", s.ID, err)
	}

	if err := insertHistory(tx, s.ID, first); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Created session %s", s.ID)
	return nil
}

// GetSession retrieves a single session by id
func (r *SQLiteSessionRepository) GetSession(id string) (*entities.Session, error) {
	row := r.db.QueryRow(`
		SELECT id, day, pollution, oxygen, health, treatment_plant, regulation, cleanup_drive, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var s entities.Session
	err := row.Scan(
		&s.ID, &s.Day, &s.Pollution, &s.Oxygen, &s.Health,
		&s.Policies.TreatmentPlant, &s.Policies.Regulation, &s.Policies.CleanupDrive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %v", id, err)
	}
	return &s, nil
}

// ListSessions retrieves all stored sessions, most recently touched first
func (r *SQLiteSessionRepository) ListSessions() ([]entities.Session, error) {
	rows, err := r.db.Query(`
		SELECT id, day, pollution, oxygen, health, treatment_plant, regulation, cleanup_drive, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %v", err)
	}
	defer rows.Close()

	var result []entities.Session
	for rows.Next() {
		var s entities.Session
		if err := rows.Scan(
			&s.ID, &s.Day, &s.Pollution, &s.Oxygen, &s.Health,
			&s.Policies.TreatmentPlant, &s.Policies.Regulation, &s.Policies.CleanupDrive,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// UpdateSession persists the session state and, when rec is not nil, appends
// the day's history row in the same transaction
func (r *SQLiteSessionRepository) UpdateSession(s *entities.Session, rec *entities.DayRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	res, err := tx.Exec(`
		UPDATE sessions
		SET day=?, pollution=?, oxygen=?, health=?, treatment_plant=?, regulation=?, cleanup_drive=?, updated_at=?
		WHERE id=?`,
		s.Day, s.Pollution, s.Oxygen, s.Health,
		s.Policies.TreatmentPlant, s.Policies.Regulation, s.Policies.CleanupDrive,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update session %s: %v", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return ErrSessionNotFound
	}

	if rec != nil {
		if err := insertHistory(tx, s.ID, *rec); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// ResetSession rewinds a session to initial conditions, dropping its history
func (r *SQLiteSessionRepository) ResetSession(s *entities.Session, first entities.DayRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	res, err := tx.Exec(`
		UPDATE sessions
		SET day=?, pollution=?, oxygen=?, health=?, treatment_plant=?, regulation=?, cleanup_drive=?, updated_at=?
		WHERE id=?`,
		s.Day, s.Pollution, s.Oxygen, s.Health,
		s.Policies.TreatmentPlant, s.Policies.Regulation, s.Policies.CleanupDrive,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reset session %s: %v", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return ErrSessionNotFound
	}

	if _, err := tx.Exec(`DELETE FROM session_history WHERE session_id = ?`, s.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear history for session %s: %v", s.ID, err)
	}
	if err := insertHistory(tx, s.ID, first); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Reset session %s", s.ID)
	return nil
}

func insertHistory(tx *sql.Tx, sessionID string, rec entities.DayRecord) error {
	_, err := tx.Exec(`
		INSERT INTO session_history(session_id, day, factory_input, farm_input, pollution, oxygen, health)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, day) DO UPDATE SET
		factory_input=excluded.factory_input,
		farm_input=excluded.farm_input,
		pollution=excluded.pollution,
		oxygen=excluded.oxygen,
		health=excluded.health`,
		sessionID, rec.Day, rec.FactoryInput, rec.FarmInput, rec.Pollution, rec.Oxygen, rec.Health,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history for session %s day %d: %v", sessionID, rec.Day, err)
	}
	return nil
}

// GetHistory retrieves the full day-by-day history of a session in day order
func (r *SQLiteSessionRepository) GetHistory(id string) ([]entities.DayRecord, error) {
	rows, err := r.db.Query(`
		SELECT day, factory_input, farm_input, pollution, oxygen, health
		FROM session_history
		WHERE session_id = ?
		ORDER BY day`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for session %s: %v", id, err)
	}
	defer rows.Close()

	var result []entities.DayRecord
	for rows.Next() {
		var rec entities.DayRecord
		if err := rows.Scan(
			&rec.Day,
			&rec.FactoryInput,
			&rec.FarmInput,
			&rec.Pollution,
			&rec.Oxygen,
			&rec.Health,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// DeleteSession removes a session and its history
func (r *SQLiteSessionRepository) DeleteSession(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec(`DELETE FROM session_history WHERE session_id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete history for session %s: %v", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete session %s: %v", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

// PurgeIdleSessions removes sessions not touched since the cutoff and returns
// how many were dropped
func (r *SQLiteSessionRepository) PurgeIdleSessions(cutoff time.Time) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM session_history
		WHERE session_id IN (SELECT id FROM sessions WHERE updated_at < ?)`, cutoff); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to purge idle session history: %v", err)
	}

	res, err := tx.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to purge idle sessions: %v", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}

	if n > 0 {
		log.Printf("Purged %d idle sessions", n)
	}
	return int(n), nil
}

// SaveObservations stores observed station readings in the database
func (r *SQLiteSessionRepository) SaveObservations(obs []entities.Observation) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO observations(river, station, water_level, water_temp, timestamp)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(river, station, timestamp) DO UPDATE SET
		water_level=excluded.water_level,
		water_temp=excluded.water_temp
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %v", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		_, err := stmt.Exec(
			o.River,
			o.Station,
			o.WaterLevel,
			o.WaterTemp,
			o.Timestamp,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert observation for %s at %s: %v", o.River, o.Station, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	log.Printf("Successfully saved %d observation records", len(obs))
	return nil
}

// GetObservations retrieves observed readings recorded after the cutoff time
func (r *SQLiteSessionRepository) GetObservations(cutoff time.Time) ([]entities.Observation, error) {
	rows, err := r.db.Query(`
		SELECT id, river, station, water_level, water_temp, timestamp
		FROM observations
		WHERE timestamp >= ?
		ORDER BY river, station, timestamp DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %v", err)
	}
	defer rows.Close()

	var result []entities.Observation
	for rows.Next() {
		var o entities.Observation
		if err := rows.Scan(
			&o.ID,
			&o.River,
			&o.Station,
			&o.WaterLevel,
			&o.WaterTemp,
			&o.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// GetLastObservationTime returns the most recent observation timestamp
func (r *SQLiteSessionRepository) GetLastObservationTime() (time.Time, error) {
	var timestampStr sql.NullString
	err := r.db.QueryRow("SELECT MAX(timestamp) FROM observations").Scan(&timestampStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil // Return zero time if no data
		}
		return time.Time{}, fmt.Errorf("failed to get last observation time: %v", err)
	}

	// If the timestamp is null/empty, return zero time
	if !timestampStr.Valid || timestampStr.String == "" {
		return time.Time{}, nil
	}

	// Try to parse the timestamp with different formats to handle potential timezone info
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05Z07:00",
	} {
		if ts, err := time.Parse(layout, timestampStr.String); err == nil {
			return ts, nil
		}
	}

	// SQLite DATETIME format without timezone
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", timestampStr.String, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %v", timestampStr.String, err)
	}
	return ts, nil
}
