package services

import (
	"testing"

	"github.com/questweave/questweave/questweave/database/models"
)

func TestDetectQuestVote(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"stop hashtag", "this is going nowhere #endquest", models.QuestVoteStop, true},
		{"alternate stop hashtag", "#StopQuest please", models.QuestVoteStop, true},
		{"continue hashtag", "loving it #continuequest", models.QuestVoteContinue, true},
		{"plain stop word is not a poll vote", "stop right there", "", false},
		{"ordinary ballot text", "2", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectQuestVote(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("detectQuestVote(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
