// Package interpret turns a free-form reply into a structured option choice.
// The LLM does the heavy lifting; a deterministic fuzzy matcher covers LLM
// outages and low-confidence answers, and an LRU cache keeps repeated reply
// texts to one LLM call per chapter.
package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/questweave/questweave/questweave/llm"
)

const (
	cacheSize            = 4096
	defaultMinConfidence = 0.6
	fuzzyConfidence      = 0.5
)

// Interpretation is the structured reading of one reply.
type Interpretation struct {
	SelectedOption int
	Label          string
	Confidence     float64
}

type interpretSchema struct {
	OptionIndex int     `json:"option_index" jsonschema_description:"Zero-based index of the chosen option, -1 when the reply is not a vote"`
	Confidence  float64 `json:"confidence" jsonschema_description:"Confidence between 0 and 1"`
}

var schema = llm.GenerateSchema[interpretSchema]()

type Interpreter struct {
	client        llm.Client
	cache         *lru.Cache
	minConfidence float64
}

// New builds an interpreter. client may be nil, leaving only the fuzzy path;
// minConfidence <= 0 selects the default.
func New(client llm.Client, minConfidence float64) *Interpreter {
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	cache, _ := lru.New(cacheSize)
	return &Interpreter{
		client:        client,
		cache:         cache,
		minConfidence: minConfidence,
	}
}

// Interpret maps replyText onto one of options. ok is false when the reply
// could not be read as a vote; such replies are dropped, never guessed.
func (i *Interpreter) Interpret(ctx context.Context, chapterID int64, replyText string, options []string) (Interpretation, bool) {
	normalized := normalize(replyText)
	if normalized == "" || len(options) == 0 {
		return Interpretation{}, false
	}

	cacheKey := fmt.Sprintf("%d:%s", chapterID, normalized)
	if cached, found := i.cache.Get(cacheKey); found {
		in := cached.(Interpretation)
		return in, in.SelectedOption >= 0
	}

	in, ok := i.interpret(ctx, normalized, options)
	i.cache.Add(cacheKey, in)
	return in, ok
}

func (i *Interpreter) interpret(ctx context.Context, normalized string, options []string) (Interpretation, bool) {
	// Numeric replies ("2", "option 2") don't need a model.
	if idx, ok := parseNumeric(normalized, len(options)); ok {
		return Interpretation{SelectedOption: idx, Label: options[idx], Confidence: 1}, true
	}

	if i.client != nil {
		if in, ok := i.interpretLLM(ctx, normalized, options); ok {
			return in, true
		}
	}

	return i.interpretFuzzy(normalized, options)
}

func (i *Interpreter) interpretLLM(ctx context.Context, normalized string, options []string) (Interpretation, bool) {
	var out interpretSchema
	err := i.client.Chat(ctx, llm.Request{
		SystemPrompt: "You classify a tweet reply as a vote for one of the listed story options. Answer with the zero-based option index, or -1 when the reply is not a vote.",
		UserPrompt:   fmt.Sprintf("Options:\n%s\n\nReply: %q", numberedOptions(options), normalized),
		SchemaName:   "vote_interpretation",
		Schema:       schema,
		MaxTokens:    50,
		Temperature:  llm.Temp(0),
	}, &out)
	if err != nil {
		slog.Warn("Reply interpretation fell back to fuzzy matching",
			slog.Any("error", err))
		return Interpretation{}, false
	}

	if out.OptionIndex < 0 || out.OptionIndex >= len(options) || out.Confidence < i.minConfidence {
		return Interpretation{}, false
	}

	return Interpretation{
		SelectedOption: out.OptionIndex,
		Label:          options[out.OptionIndex],
		Confidence:     out.Confidence,
	}, true
}

func (i *Interpreter) interpretFuzzy(normalized string, options []string) (Interpretation, bool) {
	matches := fuzzy.Find(normalized, options)
	if len(matches) == 0 {
		// The reply may quote an option verbatim inside a longer sentence.
		for idx, opt := range options {
			if strings.Contains(normalized, strings.ToLower(opt)) {
				return Interpretation{SelectedOption: idx, Label: opt, Confidence: fuzzyConfidence}, true
			}
		}
		return Interpretation{SelectedOption: -1}, false
	}

	best := matches[0]
	return Interpretation{
		SelectedOption: best.Index,
		Label:          options[best.Index],
		Confidence:     fuzzyConfidence,
	}, true
}

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	// Strip @mentions that prefix nearly every reply.
	words := strings.Fields(text)
	for len(words) > 0 && strings.HasPrefix(words[0], "@") {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func parseNumeric(normalized string, optionCount int) (int, bool) {
	candidate := normalized
	for _, prefix := range []string{"option ", "choice ", "vote ", "#"} {
		candidate = strings.TrimPrefix(candidate, prefix)
	}

	n, err := strconv.Atoi(strings.TrimSpace(candidate))
	if err != nil {
		return 0, false
	}
	// Replies are 1-based ("1" means the first option).
	if n < 1 || n > optionCount {
		return 0, false
	}
	return n - 1, true
}

func numberedOptions(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i, opt)
	}
	return b.String()
}
