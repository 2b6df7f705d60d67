package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/questweave/questweave/questweave/database/models"
	"github.com/questweave/questweave/questweave/database/repositories"
)

const tombstoneTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
  body { margin: 0; background: #0d1117; font-family: Georgia, serif; }
  #tombstone {
    width: 600px; height: 600px;
    display: flex; flex-direction: column; align-items: center; justify-content: center;
    background: radial-gradient(circle at 50% 30%, #2b3138, #0d1117);
    color: #c9d1d9;
  }
  .stone {
    width: 420px; padding: 48px 32px;
    background: #484f58; border-radius: 180px 180px 8px 8px;
    text-align: center; box-shadow: 0 12px 24px rgba(0,0,0,0.6);
  }
  .rip { font-size: 42px; letter-spacing: 12px; color: #d0d7de; }
  .name { font-size: 30px; margin-top: 18px; font-weight: bold; }
  .side { font-size: 16px; margin-top: 6px; color: #8b949e; }
  .roast { font-size: 18px; margin-top: 24px; font-style: italic; line-height: 1.5; }
  .date { font-size: 14px; margin-top: 28px; color: #8b949e; }
</style>
</head>
<body>
<div id="tombstone">
  <div class="stone">
    <div class="rip">R.I.P</div>
    <div class="name">@{{.Username}}</div>
    {{if .Side}}<div class="side">fell with the {{.Side}}</div>{{end}}
    <div class="roast">&ldquo;{{.Roast}}&rdquo;</div>
    <div class="date">{{.Date}}</div>
  </div>
</div>
</body>
</html>`

type tombstoneData struct {
	Username string
	Side     string
	Roast    string
	Date     string
}

// TombstoneService renders an elimination tombstone card with a headless
// browser and publishes it to Spaces.
type TombstoneService struct {
	executions repositories.ExecutionRepository
	spaces     *SpacesService
	tmpl       *template.Template
	logger     *slog.Logger
}

func NewTombstoneService(executions repositories.ExecutionRepository, spaces *SpacesService) *TombstoneService {
	return &TombstoneService{
		executions: executions,
		spaces:     spaces,
		tmpl:       template.Must(template.New("tombstone").Parse(tombstoneTemplate)),
		logger:     slog.With(slog.String("service", "tombstone")),
	}
}

// Render generates, uploads and records the tombstone for one execution.
// Returns the existing URL unchanged when one was already published.
func (s *TombstoneService) Render(ctx context.Context, execution *models.Execution) (string, error) {
	if execution.TombstoneURL != "" {
		return execution.TombstoneURL, nil
	}

	start := time.Now()

	imageBytes, err := s.renderImage(ctx, tombstoneData{
		Username: execution.UserID,
		Side:     execution.Side,
		Roast:    execution.RoastText,
		Date:     execution.EliminatedAt.Format("Jan 2, 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render tombstone: %w", err)
	}

	key := fmt.Sprintf("tombstones/%d.png", execution.ID)
	publicURL, err := s.spaces.UploadImage(ctx, key, imageBytes)
	if err != nil {
		return "", fmt.Errorf("failed to upload tombstone: %w", err)
	}

	if err := s.executions.SetTombstoneURL(ctx, execution.ID, publicURL); err != nil {
		return "", err
	}

	s.logger.Info("Tombstone rendered",
		slog.Int64("execution_id", execution.ID),
		slog.Int("image_size", len(imageBytes)),
		slog.Duration("took", time.Since(start)))

	return publicURL, nil
}

func (s *TombstoneService) renderImage(ctx context.Context, data tombstoneData) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, 15*time.Second)
	defer cancel()

	var imageBytes []byte
	err := chromedp.Run(chromedpCtx,
		chromedp.Navigate("data:text/html,"+url.PathEscape(buf.String())),
		chromedp.WaitVisible("#tombstone", chromedp.ByID),
		chromedp.Sleep(200*time.Millisecond),
		chromedp.Screenshot("#tombstone", &imageBytes, chromedp.ByID),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp screenshot failed: %w", err)
	}
	return imageBytes, nil
}
