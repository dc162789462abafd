package datastore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	snapshotFile = "snapshot.json"
	historyFile  = "history.json"
	ledgerFile   = "notified.json"
)

// StateStore persists the monitor's working state as JSON files under a base
// directory. Loads are forgiving: a missing or corrupt file yields empty
// state and a warning, never an error, so a damaged data directory degrades
// to a cold start instead of blocking the monitor.
type StateStore struct {
	baseDir string
	logger  zerolog.Logger
}

// NewStateStore creates the base directory and returns a store rooted there.
func NewStateStore(baseDir string, logger zerolog.Logger) (*StateStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, common.NewPersistenceError("mkdir", baseDir, err)
	}
	return &StateStore{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "StateStore").Logger(),
	}, nil
}

// SaveSnapshot persists the appointments from the latest completed check.
func (s *StateStore) SaveSnapshot(appointments []models.Appointment) error {
	return s.writeJSON(snapshotFile, appointments)
}

// LoadSnapshot returns the persisted appointment snapshot, or nil when none
// is available.
func (s *StateStore) LoadSnapshot() []models.Appointment {
	var out []models.Appointment
	if !s.readJSON(snapshotFile, &out) {
		return nil
	}
	return out
}

// SaveHistory persists per-slot transition history.
func (s *StateStore) SaveHistory(history models.ItemHistory) error {
	return s.writeJSON(historyFile, history)
}

// LoadHistory returns persisted transition history, empty when unavailable.
func (s *StateStore) LoadHistory() models.ItemHistory {
	out := make(models.ItemHistory)
	if !s.readJSON(historyFile, &out) {
		return make(models.ItemHistory)
	}
	return out
}

// SaveLedger persists the notified ledger.
func (s *StateStore) SaveLedger(ledger models.NotifiedLedger) error {
	return s.writeJSON(ledgerFile, ledger)
}

// LoadLedger returns the persisted notified ledger, empty when unavailable.
func (s *StateStore) LoadLedger() models.NotifiedLedger {
	out := make(models.NotifiedLedger)
	if !s.readJSON(ledgerFile, &out) {
		return make(models.NotifiedLedger)
	}
	return out
}

// writeJSON marshals v and replaces the target file atomically: the payload
// lands in a temp file first and a rename swaps it in, so a crash mid-write
// leaves the previous state intact.
func (s *StateStore) writeJSON(name string, v interface{}) error {
	path := filepath.Join(s.baseDir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return common.NewPersistenceError("marshal", path, err)
	}

	tmp, err := os.CreateTemp(s.baseDir, name+".tmp-*")
	if err != nil {
		return common.NewPersistenceError("create temp", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return common.NewPersistenceError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return common.NewPersistenceError("close", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return common.NewPersistenceError("rename", path, err)
	}
	return nil
}

// readJSON reports whether v was fully populated from the file. A partial
// unmarshal of a corrupt file counts as failure and callers discard v.
func (s *StateStore) readJSON(name string, v interface{}) bool {
	path := filepath.Join(s.baseDir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("State file unreadable, starting empty")
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("State file corrupt, starting empty")
		return false
	}
	return true
}
