package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/questweave/questweave/questweave/database/models"
)

var tallyBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ballot(user string, option int, offset time.Duration) *models.ChapterVote {
	return &models.ChapterVote{
		ChapterID:      1,
		UserID:         user,
		SelectedOption: option,
		VotedAt:        tallyBase.Add(offset),
	}
}

func TestTally(t *testing.T) {
	options := []string{"North", "South", "East"}

	tests := []struct {
		name          string
		votes         []*models.ChapterVote
		defaultOption int
		wantWinner    int
		wantCounts    []int
		wantTurnout   int
	}{
		{
			name: "plurality wins",
			votes: []*models.ChapterVote{
				ballot("a", 0, 0),
				ballot("b", 1, time.Minute),
				ballot("c", 1, 2*time.Minute),
			},
			wantWinner:  1,
			wantCounts:  []int{1, 2, 0},
			wantTurnout: 3,
		},
		{
			name: "latest ballot per user counts",
			votes: []*models.ChapterVote{
				ballot("a", 0, 0),
				ballot("b", 2, time.Minute),
				ballot("a", 1, 2*time.Minute),
				ballot("a", 2, 3*time.Minute),
			},
			wantWinner:  2,
			wantCounts:  []int{0, 0, 2},
			wantTurnout: 2,
		},
		{
			name: "out of range ballots discarded",
			votes: []*models.ChapterVote{
				ballot("a", 7, 0),
				ballot("b", -1, time.Minute),
				ballot("c", 0, 2*time.Minute),
			},
			wantWinner:  0,
			wantCounts:  []int{1, 0, 0},
			wantTurnout: 1,
		},
		{
			name:          "zero ballots falls to default option",
			votes:         nil,
			defaultOption: 2,
			wantWinner:    2,
			wantCounts:    []int{0, 0, 0},
			wantTurnout:   0,
		},
		{
			name:          "out of range default clamps to zero",
			votes:         nil,
			defaultOption: 9,
			wantWinner:    0,
			wantCounts:    []int{0, 0, 0},
			wantTurnout:   0,
		},
		{
			name: "tie breaks to earliest first ballot",
			votes: []*models.ChapterVote{
				ballot("a", 2, 0),
				ballot("b", 0, time.Minute),
				ballot("c", 0, 2*time.Minute),
				ballot("d", 2, 3*time.Minute),
			},
			wantWinner:  2,
			wantCounts:  []int{2, 0, 2},
			wantTurnout: 4,
		},
		{
			name: "tie with equal first ballots breaks to lowest index",
			votes: []*models.ChapterVote{
				ballot("a", 1, 0),
				ballot("b", 2, 0),
			},
			wantWinner:  1,
			wantCounts:  []int{0, 1, 1},
			wantTurnout: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tally(options, tt.votes, tt.defaultOption)
			if got.WinningOption != tt.wantWinner {
				t.Errorf("WinningOption = %d, want %d", got.WinningOption, tt.wantWinner)
			}
			if !reflect.DeepEqual(got.VoteCounts, tt.wantCounts) {
				t.Errorf("VoteCounts = %v, want %v", got.VoteCounts, tt.wantCounts)
			}
			if got.Participation != tt.wantTurnout {
				t.Errorf("Participation = %d, want %d", got.Participation, tt.wantTurnout)
			}
		})
	}
}

func TestTallyDeterministic(t *testing.T) {
	options := []string{"North", "South"}
	votes := []*models.ChapterVote{
		ballot("a", 0, 0),
		ballot("b", 1, time.Minute),
		ballot("c", 0, 2*time.Minute),
		ballot("b", 0, 3*time.Minute),
		ballot("d", 1, 4*time.Minute),
	}

	first := Tally(options, votes, 0)
	for i := 0; i < 50; i++ {
		if got := Tally(options, votes, 0); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %+v, first run produced %+v", i, got, first)
		}
	}
}

func TestTallySimultaneousRevote(t *testing.T) {
	// Two ballots from the same user at the same instant: the later row in
	// persisted order wins, matching the voted_at ASC, id ASC read order.
	options := []string{"North", "South"}
	votes := []*models.ChapterVote{
		ballot("a", 0, 0),
		ballot("a", 1, 0),
	}

	got := Tally(options, votes, 0)
	if got.WinningOption != 1 {
		t.Errorf("WinningOption = %d, want 1", got.WinningOption)
	}
	if got.Participation != 1 {
		t.Errorf("Participation = %d, want 1", got.Participation)
	}
}
