package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *StateStore {
	t.Helper()
	store, err := NewStateStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestStateStore_SnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	apps := []models.Appointment{{
		Date:      "1404/06/15",
		TimeRange: "09:00-11:00",
		Location:  "Tehran Center 3",
		Category:  "Driving",
		Status:    models.StatusAvailable,
	}}
	require.NoError(t, store.SaveSnapshot(apps))

	loaded := store.LoadSnapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, apps[0].Key(), loaded[0].Key())
	assert.Equal(t, models.StatusAvailable, loaded[0].Status)
}

func TestStateStore_MissingFilesYieldEmptyState(t *testing.T) {
	store := newTestStore(t)

	assert.Nil(t, store.LoadSnapshot())
	assert.Empty(t, store.LoadHistory())
	assert.Empty(t, store.LoadLedger())
}

func TestStateStore_CorruptFileYieldsEmptyState(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStateStore(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledgerFile), []byte("[]"), 0644))

	assert.Empty(t, store.LoadHistory())
	assert.Empty(t, store.LoadLedger())
}

func TestStateStore_HistoryAndLedgerRoundTrip(t *testing.T) {
	store := newTestStore(t)

	key := models.AppointmentKey("abc123")
	when := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	history := models.ItemHistory{
		key: {{Timestamp: when, NewStatus: models.StatusAvailable}},
	}
	ledger := models.NotifiedLedger{key: when}

	require.NoError(t, store.SaveHistory(history))
	require.NoError(t, store.SaveLedger(ledger))

	loadedHistory := store.LoadHistory()
	require.Contains(t, loadedHistory, key)
	assert.Equal(t, models.StatusAvailable, loadedHistory[key][0].NewStatus)
	assert.True(t, loadedHistory[key][0].Timestamp.Equal(when))

	loadedLedger := store.LoadLedger()
	require.Contains(t, loadedLedger, key)
	assert.True(t, loadedLedger[key].Equal(when))
}

func TestStateStore_OverwriteReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)

	first := []models.Appointment{{Date: "1404/06/15", Location: "Tehran", Status: models.StatusFilled}}
	second := []models.Appointment{{Date: "1404/06/16", Location: "Qom", Status: models.StatusAvailable}}

	require.NoError(t, store.SaveSnapshot(first))
	require.NoError(t, store.SaveSnapshot(second))

	loaded := store.LoadSnapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, "Qom", loaded[0].Location)
}

func TestSessionDB_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	sdb, err := NewSessionDB(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer sdb.Close()

	session := models.NewMonitorSession(`{"check_interval_ms":300000}`)
	require.NoError(t, sdb.RecordSessionStart(session))

	session.ChecksPerformed = 12
	session.NotificationsSent = 3
	session.RecordError("network", "connection reset")
	session.Finalize()
	require.NoError(t, sdb.FinalizeSession(session))

	sessions, err := sdb.ListRecentSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)
	assert.Equal(t, 12, sessions[0].ChecksPerformed)
	assert.Equal(t, 3, sessions[0].NotificationsSent)
	require.NotNil(t, sessions[0].EndTime)
	require.Len(t, sessions[0].Errors, 1)
	assert.Equal(t, "network", sessions[0].Errors[0].Kind)
}

func TestSessionDB_Prune(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	sdb, err := NewSessionDB(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer sdb.Close()

	old := models.NewMonitorSession("")
	old.StartTime = time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, sdb.RecordSessionStart(old))

	recent := models.NewMonitorSession("")
	require.NoError(t, sdb.RecordSessionStart(recent))

	removed, err := sdb.PruneSessions(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	sessions, err := sdb.ListRecentSessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, recent.ID, sessions[0].ID)
}
