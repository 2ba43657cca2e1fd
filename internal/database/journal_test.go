package database

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/gamebot-go/internal/actions"
	"jordanella.com/gamebot-go/internal/events"
	"jordanella.com/gamebot-go/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)

	version, err := db.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), version)

	applied, err := db.RunMigrations()
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	require.NoError(t, db.RollbackTo(1))
	version, err = db.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	applied, err = db.RunMigrations()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion()-1, applied)
}

func TestJournalRecordsJobEvents(t *testing.T) {
	db := openTestDB(t)
	bus := events.NewEventBus(16)
	db.Attach(bus, nil)

	now := time.Now()
	bus.Publish(events.NewJobCreatedEvent("bot", actions.Info{ID: "job-1", Action: "KillMob", State: actions.StateReady}))
	bus.Publish(events.NewJobTransitionEvent("bot", actions.Event{
		Seq: 1, Kind: actions.EventStart, InstanceID: "job-1", ActionName: "KillMob",
		State: actions.StateRunning, Timestamp: now,
	}))
	bus.Publish(events.NewJobTransitionEvent("bot", actions.Event{
		Seq: 2, Kind: actions.EventFail, InstanceID: "job-1", ActionName: "KillMob",
		State: actions.StateFailed, Message: "mob with id 9 not found", Timestamp: now,
	}))
	bus.Publish(events.NewJobTransitionEvent("bot", actions.Event{
		Seq: 1, Kind: actions.EventStart, InstanceID: "job-2", ActionName: "GoTo",
		State: actions.StateRunning, Timestamp: now,
	}))
	bus.Publish(events.NewActionRegisteredEvent("bot", "GoTo", true))
	bus.Stop()

	history, err := db.JobHistory("job-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "job.created", history[0].EventType)
	assert.Equal(t, "job.failed", history[2].EventType)
	assert.Equal(t, "FAILED", history[2].State)
	assert.Equal(t, "mob with id 9 not found", history[2].Message)
	assert.Equal(t, float64(2), history[2].Data["seq"])

	recent, err := db.RecentJobEvents(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "job-2", recent[0].JobID)

	names, err := db.RegisteredActions("bot")
	require.NoError(t, err)
	assert.Equal(t, []string{"GoTo"}, names)
}

func TestStoppingBusBeforeCloseJournalsEveryEvent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	_, err = db.RunMigrations()
	require.NoError(t, err)

	var logged bytes.Buffer
	bus := events.NewEventBus(4)
	db.Attach(bus, logging.NewLogger("Journal").SetOutput(&logged))

	for i := 1; i <= 40; i++ {
		bus.Publish(events.NewJobTransitionEvent("bot", actions.Event{
			Seq: i, Kind: actions.EventStart, InstanceID: fmt.Sprintf("job-%d", i), ActionName: "GoTo",
			State: actions.StateRunning, Timestamp: time.Now(),
		}))
	}
	bus.Stop()

	recent, err := db.RecentJobEvents(100)
	require.NoError(t, err)
	assert.Len(t, recent, 40)
	require.NoError(t, db.Close())
	assert.NotContains(t, logged.String(), "Failed to journal event")
}
