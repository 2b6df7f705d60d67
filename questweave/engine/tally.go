package engine

import (
	"log/slog"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

// TallyResult is the outcome of counting one chapter's ballots.
type TallyResult struct {
	WinningOption int
	VoteCounts    []int
	Participation int
}

// Tally counts ballots for one chapter and picks the winning option.
//
// Rules, in order: ballots with an out-of-range option are discarded; each
// user's latest ballot is the one that counts; strict plurality wins; ties
// break to the option whose first counted ballot was cast earliest, then to
// the lowest index. With zero valid ballots the configured default option
// wins so the quest always advances. Pure and deterministic: re-running on
// the same persisted ballots yields the same winner.
func Tally(options []string, votes []*models.ChapterVote, defaultOption int) TallyResult {
	counts := make([]int, len(options))
	if defaultOption < 0 || defaultOption >= len(options) {
		defaultOption = 0
	}

	// Latest ballot per user wins. Input is ordered by voted_at so a plain
	// overwrite keeps the newest.
	latest := make(map[string]*models.ChapterVote)
	for _, v := range votes {
		if v.SelectedOption < 0 || v.SelectedOption >= len(options) {
			slog.Debug("Discarding out-of-range ballot",
				slog.String("type", "engine"),
				slog.Int64("chapter_id", v.ChapterID),
				slog.String("user_id", v.UserID),
				slog.Int("selected_option", v.SelectedOption))
			continue
		}
		prev, ok := latest[v.UserID]
		if !ok || !v.VotedAt.Before(prev.VotedAt) {
			latest[v.UserID] = v
		}
	}

	firstVote := make([]time.Time, len(options))
	for _, v := range latest {
		counts[v.SelectedOption]++
		if firstVote[v.SelectedOption].IsZero() || v.VotedAt.Before(firstVote[v.SelectedOption]) {
			firstVote[v.SelectedOption] = v.VotedAt
		}
	}

	participation := len(latest)
	if participation == 0 {
		return TallyResult{WinningOption: defaultOption, VoteCounts: counts}
	}

	winner := -1
	for i, c := range counts {
		if c == 0 {
			continue
		}
		switch {
		case winner == -1 || c > counts[winner]:
			winner = i
		case c == counts[winner] && firstVote[i].Before(firstVote[winner]):
			winner = i
		}
	}

	return TallyResult{
		WinningOption: winner,
		VoteCounts:    counts,
		Participation: participation,
	}
}
