package crypto

import (
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

// SealEvent encrypts the free text fields of an event before it is stored.
// The event is modified in place; payload pointers must not be shared.
func (s *Sealer) SealEvent(e *models.ActivityEvent) error {
	if e.Mood != nil && e.Mood.Note != "" {
		sealed, err := s.Seal(e.Mood.Note)
		if err != nil {
			return err
		}
		e.Mood.Note = sealed
	}
	if e.Journal != nil {
		sealed, err := s.Seal(e.Journal.Text)
		if err != nil {
			return err
		}
		e.Journal.Text = sealed
	}
	if e.Chat != nil {
		for _, field := range []*string{&e.Chat.Message, &e.Chat.Response} {
			sealed, err := s.Seal(*field)
			if err != nil {
				return err
			}
			*field = sealed
		}
	}
	if e.Meditation != nil && e.Meditation.Notes != "" {
		sealed, err := s.Seal(e.Meditation.Notes)
		if err != nil {
			return err
		}
		e.Meditation.Notes = sealed
	}
	return nil
}

// OpenEvent reverses SealEvent after an event is read back.
func (s *Sealer) OpenEvent(e *models.ActivityEvent) error {
	if e.Mood != nil && e.Mood.Note != "" {
		note, err := s.Open(e.Mood.Note)
		if err != nil {
			return err
		}
		e.Mood.Note = note
	}
	if e.Journal != nil {
		text, err := s.Open(e.Journal.Text)
		if err != nil {
			return err
		}
		e.Journal.Text = text
	}
	if e.Chat != nil {
		for _, field := range []*string{&e.Chat.Message, &e.Chat.Response} {
			text, err := s.Open(*field)
			if err != nil {
				return err
			}
			*field = text
		}
	}
	if e.Meditation != nil && e.Meditation.Notes != "" {
		notes, err := s.Open(e.Meditation.Notes)
		if err != nil {
			return err
		}
		e.Meditation.Notes = notes
	}
	return nil
}
