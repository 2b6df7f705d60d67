package interpret

import (
	"context"
	"testing"
)

// All cases run without an LLM client, exercising the deterministic paths.
func TestInterpretNumericReplies(t *testing.T) {
	in := New(nil, 0)
	options := []string{"Enter the gate", "Run away", "Wait for dawn"}

	tests := []struct {
		name    string
		reply   string
		want    int
		wantOK  bool
	}{
		{"bare number", "2", 1, true},
		{"option prefix", "option 3", 2, true},
		{"vote prefix", "vote 1", 0, true},
		{"hash prefix", "#2", 1, true},
		{"leading mention stripped", "@storyteller 1", 0, true},
		{"zero is not a valid ballot", "0", 0, false},
		{"number beyond options dropped", "9", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := in.Interpret(context.Background(), 1, tt.reply, options)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.SelectedOption != tt.want {
				t.Errorf("SelectedOption = %d, want %d", got.SelectedOption, tt.want)
			}
		})
	}
}

func TestInterpretFuzzyFallback(t *testing.T) {
	in := New(nil, 0)
	options := []string{"Enter the gate", "Run away"}

	got, ok := in.Interpret(context.Background(), 2, "enter the gate!!", options)
	if !ok {
		t.Fatal("fuzzy match should accept a near-verbatim option")
	}
	if got.SelectedOption != 0 {
		t.Errorf("SelectedOption = %d, want 0", got.SelectedOption)
	}
	if got.Confidence >= 1 {
		t.Errorf("fuzzy confidence = %v, must be below exact-match confidence", got.Confidence)
	}
}

func TestInterpretDropsUnrelatedReplies(t *testing.T) {
	in := New(nil, 0)
	options := []string{"North", "South"}

	if _, ok := in.Interpret(context.Background(), 3, "xzzqj", options); ok {
		t.Error("gibberish must not become a ballot")
	}
	if _, ok := in.Interpret(context.Background(), 3, "", options); ok {
		t.Error("empty reply must not become a ballot")
	}
	if _, ok := in.Interpret(context.Background(), 3, "2", nil); ok {
		t.Error("reply against zero options must not become a ballot")
	}
}

func TestInterpretCacheIsPerChapter(t *testing.T) {
	in := New(nil, 0)

	first, ok := in.Interpret(context.Background(), 10, "2", []string{"a", "b"})
	if !ok || first.SelectedOption != 1 {
		t.Fatalf("first = %+v ok=%v", first, ok)
	}

	// Same text on another chapter must be evaluated against that chapter's
	// options, not served from the other chapter's cache entry.
	if _, ok := in.Interpret(context.Background(), 11, "2", []string{"only"}); ok {
		t.Error("cached result leaked across chapters")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello World  ", "hello world"},
		{"@bot @other reply text", "reply text"},
		{"@bot", ""},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
