// Package twitter is a minimal X API v2 client covering what the engine
// needs: posting chapter tweets (threaded as replies) and pulling the
// replies to a chapter for vote ingestion.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/questweave/questweave/questweave/engine"
)

const (
	tweetsURL      = "https://api.twitter.com/2/tweets"
	searchURL      = "https://api.twitter.com/2/tweets/search/recent"
	mediaUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	requestTimeout = 30 * time.Second
)

type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

type Client struct {
	http *http.Client
}

var _ engine.Poster = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("twitter credentials are required")
	}

	oauthCfg := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)

	httpClient := oauthCfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = requestTimeout

	return &Client{http: httpClient}, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes one tweet, threaded under inReplyTo when set, and returns
// the new tweet's id.
func (c *Client) Post(ctx context.Context, text string, inReplyTo string) (string, error) {
	return c.post(ctx, text, inReplyTo, nil)
}

// PostWithMedia publishes a tweet carrying previously uploaded media.
func (c *Client) PostWithMedia(ctx context.Context, text string, inReplyTo string, mediaIDs []string) (string, error) {
	return c.post(ctx, text, inReplyTo, mediaIDs)
}

func (c *Client) post(ctx context.Context, text string, inReplyTo string, mediaIDs []string) (string, error) {
	body := tweetRequest{Text: text}
	if inReplyTo != "" {
		body.Reply = &tweetReply{InReplyToTweetID: inReplyTo}
	}
	if len(mediaIDs) > 0 {
		body.Media = &tweetMedia{MediaIDs: mediaIDs}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tweetsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tweet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", apiError(resp)
	}

	var out tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode tweet response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("tweet response missing id")
	}
	return out.Data.ID, nil
}

// Reply is one reply tweet to a posted chapter.
type Reply struct {
	TweetID   string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

type searchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		AuthorID  string    `json:"author_id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// Replies fetches every reply in the conversation rooted at tweetID, oldest
// first, following pagination.
func (c *Client) Replies(ctx context.Context, tweetID string) ([]*Reply, error) {
	var (
		replies   []*Reply
		nextToken string
	)

	for {
		page, token, err := c.repliesPage(ctx, tweetID, nextToken)
		if err != nil {
			return nil, err
		}
		replies = append(replies, page...)
		if token == "" {
			break
		}
		nextToken = token
	}

	// Recent search returns newest first; ingestion wants chronological order.
	for i, j := 0, len(replies)-1; i < j; i, j = i+1, j-1 {
		replies[i], replies[j] = replies[j], replies[i]
	}
	return replies, nil
}

func (c *Client) repliesPage(ctx context.Context, tweetID, nextToken string) ([]*Reply, string, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("conversation_id:%s is:reply", tweetID))
	params.Set("tweet.fields", "author_id,created_at")
	params.Set("max_results", "100")
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("reply search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apiError(resp)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("failed to decode search response: %w", err)
	}

	replies := make([]*Reply, 0, len(out.Data))
	for _, t := range out.Data {
		replies = append(replies, &Reply{
			TweetID:   t.ID,
			AuthorID:  t.AuthorID,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return replies, out.Meta.NextToken, nil
}

type mediaResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// UploadMedia uploads an image and returns the media id for attachment.
func (c *Client) UploadMedia(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", "media.png")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mediaUploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var out mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode media response: %w", err)
	}
	return out.MediaIDString, nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("twitter API returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	// Client rejections won't heal with a retry; the publisher holds the
	// quest instead of burning attempts.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w (%w)", err, engine.ErrPermanent)
	}
	return err
}
