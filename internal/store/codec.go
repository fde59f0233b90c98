// Package store holds what the persistent store implementations share.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/Shreya-nipunge/Glowra/internal/crypto"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type payload struct {
	Mood       *models.MoodPayload       `json:"mood,omitempty"`
	Journal    *models.JournalPayload    `json:"journal,omitempty"`
	Task       *models.TaskPayload       `json:"task,omitempty"`
	Chat       *models.ChatPayload       `json:"chat,omitempty"`
	Meditation *models.MeditationPayload `json:"meditation,omitempty"`
}

// EncodePayload validates e and returns its body as JSON, with free text
// sealed when sealer is non-nil. e itself is not modified.
func EncodePayload(e models.ActivityEvent, sealer *crypto.Sealer) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	p := payload{}
	if e.Mood != nil {
		m := *e.Mood
		p.Mood = &m
	}
	if e.Journal != nil {
		j := *e.Journal
		p.Journal = &j
	}
	if e.Task != nil {
		t := *e.Task
		p.Task = &t
	}
	if e.Chat != nil {
		c := *e.Chat
		p.Chat = &c
	}
	if e.Meditation != nil {
		m := *e.Meditation
		p.Meditation = &m
	}
	if sealer != nil {
		sealed := models.ActivityEvent{Mood: p.Mood, Journal: p.Journal, Chat: p.Chat, Meditation: p.Meditation}
		if err := sealer.SealEvent(&sealed); err != nil {
			return nil, fmt.Errorf("seal event %s: %w", e.ID, err)
		}
	}
	return json.Marshal(p)
}

// DecodePayload fills the payload fields of e from b.
func DecodePayload(b []byte, e *models.ActivityEvent, sealer *crypto.Sealer) error {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decode event %s: %w", e.ID, err)
	}
	e.Mood, e.Journal, e.Task = p.Mood, p.Journal, p.Task
	e.Chat, e.Meditation = p.Chat, p.Meditation
	if sealer != nil {
		if err := sealer.OpenEvent(e); err != nil {
			return fmt.Errorf("open event %s: %w", e.ID, err)
		}
	}
	return nil
}
