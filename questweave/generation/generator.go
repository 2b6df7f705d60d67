// Package generation produces chapter drafts from quest history and the
// winning option. Output is schema-constrained so malformed prose never
// reaches the publisher.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/questweave/questweave/questweave/engine"
	"github.com/questweave/questweave/questweave/llm"
)

const (
	minOptions = 2
	maxOptions = 4

	systemPrompt = `You are the narrator of a community-driven interactive fiction story told in tweets.
Write the next chapter continuing from the story so far and the option the community chose.
Keep chapters under 200 words. Offer between 2 and 4 distinct options unless the story is concluding.
Set final to true only when the story reaches a natural ending or you are told this must be the last chapter.`
)

type chapterSchema struct {
	Content string   `json:"content" jsonschema_description:"The chapter text, under 200 words"`
	Options []string `json:"options" jsonschema_description:"2-4 choices for the community, empty when final"`
	Sources []string `json:"sources" jsonschema_description:"Optional references woven into the chapter"`
	Final   bool     `json:"final" jsonschema_description:"True when this chapter ends the story"`
}

var schema = llm.GenerateSchema[chapterSchema]()

type Generator struct {
	client llm.Client
}

var _ engine.Generator = (*Generator)(nil)

func New(client llm.Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, req engine.GenerateRequest) (*engine.Draft, error) {
	var out chapterSchema
	err := g.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(req),
		SchemaName:   "chapter",
		Schema:       schema,
		MaxTokens:    1500,
		Temperature:  llm.Temp(0.9),
	}, &out)
	if err != nil {
		if llm.IsRetryable(err) {
			return nil, fmt.Errorf("chapter generation: %w", err)
		}
		return nil, fmt.Errorf("chapter generation rejected: %w (%w)", err, engine.ErrPermanent)
	}

	if err := validate(&out, req.FinalChapter); err != nil {
		// Schema-valid but semantically unusable; one more attempt may fix it.
		return nil, fmt.Errorf("generated chapter invalid: %w", err)
	}

	return &engine.Draft{
		Content: strings.TrimSpace(out.Content),
		Options: out.Options,
		Sources: out.Sources,
		IsFinal: out.Final || req.FinalChapter,
	}, nil
}

func buildPrompt(req engine.GenerateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Story: %s\n", req.Quest.Title)
	if req.Quest.Premise != "" {
		fmt.Fprintf(&b, "Premise: %s\n", req.Quest.Premise)
	}
	b.WriteString("\n")
	for _, ch := range req.History {
		fmt.Fprintf(&b, "Chapter %d:\n%s\n", ch.ChapterNumber, ch.Content)
		if len(ch.Options) > 0 {
			fmt.Fprintf(&b, "Options were: %s\n", strings.Join(ch.Options, " | "))
		}
		b.WriteString("\n")
	}

	if req.WinningLabel != "" {
		fmt.Fprintf(&b, "The community chose: %q\n", req.WinningLabel)
	}
	fmt.Fprintf(&b, "Write chapter %d.\n", req.ChapterNumber)
	if req.FinalChapter {
		b.WriteString("This must be the final chapter: conclude the story and offer no options.\n")
	}

	return b.String()
}

func validate(out *chapterSchema, final bool) error {
	if strings.TrimSpace(out.Content) == "" {
		return fmt.Errorf("empty content")
	}
	if out.Final || final {
		return nil
	}
	if len(out.Options) < minOptions || len(out.Options) > maxOptions {
		return fmt.Errorf("expected %d-%d options, got %d", minOptions, maxOptions, len(out.Options))
	}
	for i, opt := range out.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	return nil
}
