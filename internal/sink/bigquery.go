// Package sink forwards accepted activity events to analytics.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const (
	MoodTable       = "mood_logs"
	JournalTable    = "journal_insights"
	TaskTable       = "task_completions"
	ChatTable       = "chat_turns"
	MeditationTable = "meditation_sessions"
)

// Pseudonymizer maps a user id to the identifier stored in analytics.
type Pseudonymizer func(string) string

// BigQuery streams events into one table per event kind. Free text (mood
// notes, journal text, chat messages and meditation notes) is never
// exported.
type BigQuery struct {
	client    *bigquery.Client
	dataset   *bigquery.Dataset
	pseudonym Pseudonymizer
	now       func() time.Time
}

func NewBigQuery(ctx context.Context, projectID, datasetID string, pseudonym Pseudonymizer) (*BigQuery, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("project and dataset are required for the BigQuery sink")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	if pseudonym == nil {
		pseudonym = func(s string) string { return s }
	}
	return &BigQuery{
		client:    client,
		dataset:   client.Dataset(datasetID),
		pseudonym: pseudonym,
		now:       time.Now,
	}, nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}

var schemas = map[string]bigquery.Schema{
	MoodTable: {
		{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "mood", Type: bigquery.StringFieldType, Required: true},
		{Name: "energy", Type: bigquery.IntegerFieldType},
		{Name: "stress", Type: bigquery.IntegerFieldType},
		{Name: "timestamp", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	},
	JournalTable: {
		{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "categories", Type: bigquery.StringFieldType, Repeated: true},
		{Name: "mood", Type: bigquery.StringFieldType},
		{Name: "risk_level", Type: bigquery.StringFieldType},
		{Name: "confidence", Type: bigquery.FloatFieldType},
		{Name: "word_count", Type: bigquery.IntegerFieldType},
		{Name: "timestamp", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	},
	TaskTable: {
		{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "plan_date", Type: bigquery.DateFieldType},
		{Name: "timestamp", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	},
	ChatTable: {
		{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "conversation_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "mood_detected", Type: bigquery.StringFieldType},
		{Name: "suggestion_count", Type: bigquery.IntegerFieldType},
		{Name: "timestamp", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	},
	MeditationTable: {
		{Name: "user_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "session_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "meditation_id", Type: bigquery.StringFieldType},
		{Name: "status", Type: bigquery.StringFieldType, Required: true},
		{Name: "duration_minutes", Type: bigquery.IntegerFieldType},
		{Name: "rating", Type: bigquery.IntegerFieldType},
		{Name: "timestamp", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	},
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// EnsureTables creates the dataset and tables that do not exist yet.
func (b *BigQuery) EnsureTables(ctx context.Context, location string) error {
	if _, err := b.dataset.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("bigquery dataset metadata: %w", err)
		}
		if err := b.dataset.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil {
			return fmt.Errorf("bigquery create dataset: %w", err)
		}
	}
	for name, schema := range schemas {
		t := b.dataset.Table(name)
		if _, err := t.Metadata(ctx); err == nil {
			continue
		} else if !isNotFound(err) {
			return fmt.Errorf("bigquery table %s metadata: %w", name, err)
		}
		if err := t.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
			return fmt.Errorf("bigquery create table %s: %w", name, err)
		}
	}
	return nil
}

// row is one analytics row. It implements bigquery.ValueSaver.
type row struct {
	table  string
	id     string
	values map[string]bigquery.Value
}

func (r row) Save() (map[string]bigquery.Value, string, error) {
	return r.values, r.id, nil
}

// rowFor maps an event to its analytics row.
func rowFor(e models.ActivityEvent, user string, now time.Time) (row, error) {
	values := map[string]bigquery.Value{
		"user_id":    user,
		"event_id":   e.ID,
		"timestamp":  e.Timestamp.UTC(),
		"created_at": now.UTC(),
	}
	r := row{id: e.ID, values: values}
	switch {
	case e.Kind == models.KindMood && e.Mood != nil:
		r.table = MoodTable
		values["mood"] = string(e.Mood.Mood)
		values["energy"] = e.Mood.Energy
		values["stress"] = e.Mood.Stress
	case e.Kind == models.KindJournal && e.Journal != nil:
		r.table = JournalTable
		in := e.Journal.Insight
		values["categories"] = in.Categories
		values["mood"] = string(in.Mood)
		values["risk_level"] = string(in.Risk)
		values["confidence"] = in.Confidence
		values["word_count"] = e.Journal.WordCount
	case e.Kind == models.KindTaskCompletion && e.Task != nil:
		r.table = TaskTable
		values["category"] = e.Task.Category
		values["plan_date"] = e.Task.PlanDate
	case e.Kind == models.KindChat && e.Chat != nil:
		r.table = ChatTable
		values["conversation_id"] = e.Chat.ConversationID
		values["mood_detected"] = string(e.Chat.MoodDetected)
		values["suggestion_count"] = len(e.Chat.Suggestions)
	case e.Kind == models.KindMeditation && e.Meditation != nil:
		r.table = MeditationTable
		m := e.Meditation
		values["session_id"] = m.SessionID
		values["meditation_id"] = m.MeditationID
		values["status"] = string(m.Status)
		if m.Status == models.MeditationCompleted {
			values["duration_minutes"] = m.DurationMinutes
			values["rating"] = m.Rating
		}
	default:
		return row{}, fmt.Errorf("%w: cannot export %s event", models.ErrValidation, e.Kind)
	}
	return r, nil
}

// Publish implements models.EventSink.
func (b *BigQuery) Publish(ctx context.Context, e models.ActivityEvent) error {
	r, err := rowFor(e, b.pseudonym(string(e.UserID)), b.now())
	if err != nil {
		return err
	}
	if err := b.dataset.Table(r.table).Inserter().Put(ctx, r); err != nil {
		return fmt.Errorf("bigquery insert into %s: %w", r.table, err)
	}
	return nil
}
