package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jordanella.com/gamebot-go/internal/events"
	"jordanella.com/gamebot-go/internal/logging"
)

// JobEventRecord is one row of the job journal
type JobEventRecord struct {
	ID         int64                  `json:"id"`
	Bot        string                 `json:"bot"`
	JobID      string                 `json:"jobId"`
	EventType  string                 `json:"type"`
	ActionName string                 `json:"action"`
	State      string                 `json:"state"`
	Message    string                 `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// RecordEvent appends a bus event to the journal. Job events go to
// job_events; action registrations to action_registrations; anything
// else is ignored.
func (db *DB) RecordEvent(event events.Event) error {
	switch {
	case strings.HasPrefix(string(event.Type), "job."):
		return db.recordJobEvent(event)
	case event.Type == events.EventTypeActionRegistered:
		return db.recordRegistration(event)
	}
	return nil
}

func (db *DB) recordJobEvent(event events.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	action, _ := event.Data["action"].(string)
	state, _ := event.Data["state"].(string)
	message, _ := event.Data["message"].(string)

	_, err = db.conn.Exec(`
		INSERT INTO job_events (bot, job_id, event_type, action_name, state, message, data, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.Source, event.JobID(), string(event.Type), action, state, message, string(data), event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert job event: %w", err)
	}
	return nil
}

func (db *DB) recordRegistration(event events.Event) error {
	name, _ := event.Data["action"].(string)
	predefined, _ := event.Data["predefined"].(bool)

	_, err := db.conn.Exec(`
		INSERT INTO action_registrations (bot, action_name, predefined, registered_at)
		VALUES (?, ?, ?, ?)
	`, event.Source, name, predefined, event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert action registration: %w", err)
	}
	return nil
}

// JobHistory returns journal rows for one job in insertion order
func (db *DB) JobHistory(jobID string, limit int) ([]*JobEventRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, bot, job_id, event_type, action_name, state, message, data, occurred_at
		FROM job_events
		WHERE job_id = ?
		ORDER BY id ASC
		LIMIT ?
	`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}
	defer rows.Close()

	return scanJobEvents(rows)
}

// RecentJobEvents returns the newest journal rows across all jobs, newest first
func (db *DB) RecentJobEvents(limit int) ([]*JobEventRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, bot, job_id, event_type, action_name, state, message, data, occurred_at
		FROM job_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent job events: %w", err)
	}
	defer rows.Close()

	return scanJobEvents(rows)
}

// RegisteredActions returns the names of all recorded registrations in order
func (db *DB) RegisteredActions(bot string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT action_name FROM action_registrations
		WHERE bot = ?
		ORDER BY id ASC
	`, bot)
	if err != nil {
		return nil, fmt.Errorf("failed to query action registrations: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanJobEvents(rows *sql.Rows) ([]*JobEventRecord, error) {
	records := []*JobEventRecord{}
	for rows.Next() {
		rec := &JobEventRecord{}
		var data string
		err := rows.Scan(&rec.ID, &rec.Bot, &rec.JobID, &rec.EventType, &rec.ActionName,
			&rec.State, &rec.Message, &data, &rec.OccurredAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to decode event data of row %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Attach records every bus event into the journal. Write failures are
// logged and do not affect the bot.
func (db *DB) Attach(bus events.EventBus, logger *logging.Logger) events.SubscriptionID {
	return bus.Subscribe(events.EventTypeAll, func(event events.Event) {
		if err := db.RecordEvent(event); err != nil && logger != nil {
			logger.ErrorWithContext("Failed to journal event", err, map[string]interface{}{
				"event_type": string(event.Type),
			})
		}
	})
}
