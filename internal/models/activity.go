package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type UserID string

type EventKind string

const (
	KindMood           EventKind = "mood"
	KindJournal        EventKind = "journal"
	KindTaskCompletion EventKind = "task_completion"
	KindChat           EventKind = "chat"
	KindMeditation     EventKind = "meditation"
)

func (k EventKind) Valid() bool {
	switch k {
	case KindMood, KindJournal, KindTaskCompletion, KindChat, KindMeditation:
		return true
	}
	return false
}

// Streaked reports whether events of kind k count as an activity day.
func (k EventKind) Streaked() bool {
	return k == KindMood || k == KindJournal || k == KindTaskCompletion
}

type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodNeutral  Mood = "neutral"
	MoodSad      Mood = "sad"
	MoodStressed Mood = "stressed"
	MoodAnxious  Mood = "anxious"
)

var moodScores = map[Mood]float64{
	MoodHappy:    5,
	MoodNeutral:  3,
	MoodSad:      2,
	MoodStressed: 2,
	MoodAnxious:  1,
}

func (m Mood) Valid() bool {
	_, ok := moodScores[m]
	return ok
}

// Score maps a mood onto the 1..5 scale used for averages and trends.
// Unknown moods score as neutral.
func (m Mood) Score() float64 {
	if s, ok := moodScores[m]; ok {
		return s
	}
	return moodScores[MoodNeutral]
}

const (
	MaxMoodNoteLength   = 500
	MinJournalLength    = 10
	MaxJournalLength    = 2000
	MaxLevelMeasurement = 10
)

type MoodPayload struct {
	Mood   Mood   `json:"mood"`
	Energy int    `json:"energy"`
	Stress int    `json:"stress"`
	Note   string `json:"note,omitempty"`
}

// Normalize trims the note and checks the ranges accepted at intake.
func (p *MoodPayload) Normalize() error {
	if !p.Mood.Valid() {
		return fmt.Errorf("%w: mood must be one of happy, neutral, sad, stressed, anxious", ErrValidation)
	}
	if p.Energy < 0 || p.Energy > MaxLevelMeasurement {
		return fmt.Errorf("%w: energy must be between 0 and 10", ErrValidation)
	}
	if p.Stress < 0 || p.Stress > MaxLevelMeasurement {
		return fmt.Errorf("%w: stress must be between 0 and 10", ErrValidation)
	}
	p.Note = strings.TrimSpace(p.Note)
	if utf8.RuneCountInString(p.Note) > MaxMoodNoteLength {
		r := []rune(p.Note)
		p.Note = string(r[:MaxMoodNoteLength])
	}
	return nil
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	DurationMin int    `json:"duration_min"`
	ResourceURL string `json:"resource_url,omitempty"`
}

type JournalInsight struct {
	Mood             Mood             `json:"mood"`
	Categories       []string         `json:"categories"`
	Confidence       float64          `json:"confidence"`
	Recommendations  []Recommendation `json:"recommendations"`
	Risk             RiskLevel        `json:"risk"`
	Message          string           `json:"message"`
	EscalationAdvice string           `json:"escalation_advice,omitempty"`
}

const EscalationAdvice = "Please consider reaching out to a trusted adult, counselor, or mental health helpline. " +
	"You don't have to go through this alone - support is available."

// FallbackInsight is what a journal entry gets when the analyzer is down.
func FallbackInsight() JournalInsight {
	return JournalInsight{
		Mood:       MoodNeutral,
		Categories: []string{"general"},
		Confidence: 0.5,
		Recommendations: []Recommendation{
			{Type: "breathing", Title: "5-minute deep breathing", DurationMin: 5},
		},
		Risk:    RiskLow,
		Message: "Thank you for sharing your thoughts. Remember that every feeling is valid.",
	}
}

// Sanitize fills gaps left by a partially valid analyzer response.
func (in JournalInsight) Sanitize() JournalInsight {
	if !in.Mood.Valid() {
		in.Mood = MoodNeutral
	}
	if len(in.Categories) == 0 {
		in.Categories = []string{"general"}
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		in.Confidence = 0.5
	}
	switch in.Risk {
	case RiskLow, RiskModerate, RiskHigh:
	default:
		in.Risk = RiskLow
	}
	if in.Risk == RiskHigh {
		in.EscalationAdvice = EscalationAdvice
	} else {
		in.EscalationAdvice = ""
	}
	return in
}

type JournalPayload struct {
	Text      string         `json:"text"`
	WordCount int            `json:"word_count"`
	CharCount int            `json:"char_count"`
	Insight   JournalInsight `json:"ai_insight"`
}

// NewJournalPayload validates the entry text and derives its counts.
func NewJournalPayload(text string) (JournalPayload, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < MinJournalLength || n > MaxJournalLength {
		return JournalPayload{}, fmt.Errorf("%w: journal text must be between %d and %d characters",
			ErrValidation, MinJournalLength, MaxJournalLength)
	}
	return JournalPayload{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		CharCount: n,
	}, nil
}

type TaskPayload struct {
	TaskID   string `json:"task_id"`
	Category string `json:"category"`
	PlanDate string `json:"plan_date"`
}

const (
	MaxChatMessageLength = 1000
	MaxMeditationMinutes = 240
	MaxMeditationNotes   = 500
)

// ChatPayload is one turn of a conversation with the companion.
type ChatPayload struct {
	ConversationID string   `json:"conversation_id"`
	Message        string   `json:"message"`
	Response       string   `json:"response"`
	MoodDetected   Mood     `json:"mood_detected"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// ChatReply is what the companion answers to one message.
type ChatReply struct {
	Response     string   `json:"response"`
	MoodDetected Mood     `json:"mood_detected"`
	Suggestions  []string `json:"suggestions"`
}

// FallbackChatReply is what a message gets when the responder is down.
func FallbackChatReply() ChatReply {
	return ChatReply{
		Response:     "I'm here to listen and support you. Sometimes talking through our feelings can really help. What's on your mind today?",
		MoodDetected: MoodNeutral,
		Suggestions: []string{
			"Take a few deep breaths",
			"Consider journaling about your feelings",
			"Reach out to someone you trust",
		},
	}
}

// Sanitize fills in what a responder left out. An empty response is
// replaced by the fallback.
func (r ChatReply) Sanitize() ChatReply {
	r.Response = strings.TrimSpace(r.Response)
	if r.Response == "" {
		return FallbackChatReply()
	}
	if !r.MoodDetected.Valid() {
		r.MoodDetected = MoodNeutral
	}
	if len(r.Suggestions) > 5 {
		r.Suggestions = r.Suggestions[:5]
	}
	return r
}

type MeditationStatus string

const (
	MeditationStarted   MeditationStatus = "started"
	MeditationCompleted MeditationStatus = "completed"
)

// MeditationPayload records either the start or the completion of a
// session. Both share SessionID.
type MeditationPayload struct {
	SessionID       string           `json:"session_id"`
	MeditationID    string           `json:"meditation_id"`
	Status          MeditationStatus `json:"status"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	Rating          int              `json:"rating,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// ActivityEvent is an immutable record of something the user did.
// Exactly one payload matches Kind.
type ActivityEvent struct {
	ID         string             `json:"id"`
	UserID     UserID             `json:"user_id"`
	Kind       EventKind          `json:"kind"`
	Timestamp  time.Time          `json:"timestamp"`
	Mood       *MoodPayload       `json:"mood,omitempty"`
	Journal    *JournalPayload    `json:"journal,omitempty"`
	Task       *TaskPayload       `json:"task,omitempty"`
	Chat       *ChatPayload       `json:"chat,omitempty"`
	Meditation *MeditationPayload `json:"meditation,omitempty"`
}

func (e ActivityEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrValidation)
	}
	var ok bool
	switch e.Kind {
	case KindMood:
		ok = e.Mood != nil
	case KindJournal:
		ok = e.Journal != nil
	case KindTaskCompletion:
		ok = e.Task != nil
	case KindChat:
		ok = e.Chat != nil && e.Chat.ConversationID != ""
	case KindMeditation:
		ok = e.Meditation != nil && e.Meditation.SessionID != ""
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrValidation, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: %s event without payload", ErrValidation, e.Kind)
	}
	return nil
}

// EventFilter narrows an event query. From is inclusive, To exclusive; zero
// values leave the bound open. Limit <= 0 means no limit.
type EventFilter struct {
	Kind  EventKind
	From  time.Time
	To    time.Time
	Limit int
}

// Matches reports whether e passes the kind and time bounds of f.
func (f EventFilter) Matches(e ActivityEvent) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	return true
}
