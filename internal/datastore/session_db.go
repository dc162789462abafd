package datastore

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SessionDB records monitor sessions in a local SQLite database so operators
// can inspect past runs after the process exits.
type SessionDB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSessionDB opens (creating if needed) the session database and ensures
// the schema exists.
func NewSessionDB(dataSourceName string, logger zerolog.Logger) (*SessionDB, error) {
	componentLogger := logger.With().Str("component", "SessionDB").Logger()

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, common.NewPersistenceError("mkdir", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, common.NewPersistenceError("open", dataSourceName, err)
	}

	sdb := &SessionDB{db: dbInstance, logger: componentLogger}
	if err := sdb.initSchema(); err != nil {
		sdb.Close()
		return nil, common.NewPersistenceError("init schema", dataSourceName, err)
	}

	componentLogger.Info().Str("db_path", dataSourceName).Msg("Session database initialized")
	return sdb, nil
}

// Close closes the database connection.
func (s *SessionDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SessionDB) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS monitor_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		checks_performed INTEGER DEFAULT 0,
		notifications_sent INTEGER DEFAULT 0,
		errors_json TEXT,
		config_snapshot TEXT
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// RecordSessionStart inserts a new open session row.
func (s *SessionDB) RecordSessionStart(session *models.MonitorSession) error {
	query := `INSERT INTO monitor_sessions (session_id, start_time, config_snapshot) VALUES (?, ?, ?)`
	_, err := s.db.Exec(query, session.ID, session.StartTime,
		sql.NullString{String: session.ConfigSnapshot, Valid: session.ConfigSnapshot != ""})
	if err != nil {
		return common.NewPersistenceError("insert", "monitor_sessions", err)
	}
	s.logger.Debug().Str("session_id", session.ID).Msg("Session start recorded")
	return nil
}

// FinalizeSession updates the session row with its end state.
func (s *SessionDB) FinalizeSession(session *models.MonitorSession) error {
	var errorsJSON sql.NullString
	if len(session.Errors) > 0 {
		data, err := json.Marshal(session.Errors)
		if err != nil {
			return common.NewPersistenceError("marshal errors", "monitor_sessions", err)
		}
		errorsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var endTime interface{}
	if session.EndTime != nil {
		endTime = *session.EndTime
	}

	query := `UPDATE monitor_sessions
		SET end_time = ?, checks_performed = ?, notifications_sent = ?, errors_json = ?
		WHERE session_id = ?`
	_, err := s.db.Exec(query, endTime, session.ChecksPerformed, session.NotificationsSent, errorsJSON, session.ID)
	if err != nil {
		return common.NewPersistenceError("update", "monitor_sessions", err)
	}
	s.logger.Debug().
		Str("session_id", session.ID).
		Int("checks", session.ChecksPerformed).
		Int("notifications", session.NotificationsSent).
		Msg("Session finalized")
	return nil
}

// ListRecentSessions returns the newest sessions, most recent first.
func (s *SessionDB) ListRecentSessions(limit int) ([]models.MonitorSession, error) {
	query := `SELECT session_id, start_time, end_time, checks_performed, notifications_sent, errors_json, config_snapshot
		FROM monitor_sessions ORDER BY start_time DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, common.NewPersistenceError("query", "monitor_sessions", err)
	}
	defer rows.Close()

	var sessions []models.MonitorSession
	for rows.Next() {
		var (
			session    models.MonitorSession
			endTime    sql.NullTime
			errorsJSON sql.NullString
			snapshot   sql.NullString
		)
		if err := rows.Scan(&session.ID, &session.StartTime, &endTime,
			&session.ChecksPerformed, &session.NotificationsSent, &errorsJSON, &snapshot); err != nil {
			return nil, common.NewPersistenceError("scan", "monitor_sessions", err)
		}
		if endTime.Valid {
			t := endTime.Time
			session.EndTime = &t
		}
		if errorsJSON.Valid {
			if err := json.Unmarshal([]byte(errorsJSON.String), &session.Errors); err != nil {
				s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Session error log unparsable")
			}
		}
		session.ConfigSnapshot = snapshot.String
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// PruneSessions deletes sessions that started before the retention cutoff.
func (s *SessionDB) PruneSessions(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result, err := s.db.Exec(`DELETE FROM monitor_sessions WHERE start_time < ?`, cutoff)
	if err != nil {
		return 0, common.NewPersistenceError("delete", "monitor_sessions", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, common.NewPersistenceError("rows affected", "monitor_sessions", err)
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("Old sessions pruned")
	}
	return removed, nil
}
