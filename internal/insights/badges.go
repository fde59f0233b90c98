package insights

import (
	"context"

	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/models"
)

type UserLevel struct {
	CurrentLevel      int `json:"current_level"`
	TotalPoints       int `json:"total_points"`
	PointsToNextLevel int `json:"points_for_next_level"`
}

type BadgeBoard struct {
	Earned          []gamification.Badge `json:"earned_badges"`
	New             []gamification.Badge `json:"new_badges"`
	TotalBadges     int                  `json:"total_badges"`
	AvailableBadges int                  `json:"available_badges"`
	Level           UserLevel            `json:"user_level"`
	StreakDays      int                  `json:"streak_days"`
	CompletedTasks  int                  `json:"completed_tasks"`
}

// Badges evaluates the catalog against the user's current activity,
// awarding anything newly earned, and returns the resulting board. It is
// never served from the cache.
func (s *Summarizer) Badges(ctx context.Context, user models.UserID) (BadgeBoard, error) {
	out, err := s.progression.Refresh(ctx, user)
	if err != nil {
		return BadgeBoard{}, err
	}
	if len(out.NewBadges) > 0 {
		s.Invalidate(user)
	}

	state := out.State
	board := BadgeBoard{
		Earned:          make([]gamification.Badge, 0, len(state.Badges)),
		New:             out.NewBadges,
		AvailableBadges: len(gamification.Catalog()),
		Level: UserLevel{
			CurrentLevel:      gamification.Level(state.Points),
			TotalPoints:       state.Points,
			PointsToNextLevel: gamification.PointsToNextLevel(state.Points),
		},
		StreakDays:     state.StreakDays,
		CompletedTasks: state.CompletedTasks,
	}
	if board.New == nil {
		board.New = []gamification.Badge{}
	}
	for _, b := range gamification.Catalog() {
		if state.HasBadge(b.ID) {
			board.Earned = append(board.Earned, b)
		}
	}
	board.TotalBadges = len(board.Earned)

	s.log.Debug("badge board built",
		zap.String("user_id", string(user)),
		zap.Int("earned", board.TotalBadges),
		zap.Int("new", len(board.New)),
	)
	return board, nil
}
