package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps the Instagram Graph API for single-image publishing.
type Client struct {
	baseURL      string
	accessToken  string
	accountID    string
	imageURL     string
	httpClient   *http.Client
	pollInterval time.Duration
	pollAttempts int
}

// Config holds client configuration. ImageURL must be publicly reachable;
// the Graph API fetches it when building the media container.
type Config struct {
	BaseURL     string
	AccessToken string
	AccountID   string
	ImageURL    string
}

const defaultBaseURL = "https://graph.instagram.com/v24.0"

// NewClient creates a new Graph API client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		accountID:   cfg.AccountID,
		imageURL:    cfg.ImageURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: 3 * time.Second,
		pollAttempts: 10,
	}
}

// Configured reports whether the client has credentials to publish with.
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.accountID != ""
}

type graphObject struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code,omitempty"`
	Username   string `json:"username,omitempty"`
}

// Publish pushes one image post through the Graph API three-step flow:
// create a media container, wait for processing, publish the container.
// It returns the platform post id.
func (c *Client) Publish(ctx context.Context, caption, hashtags string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("instagram: credentials not configured")
	}
	if c.imageURL == "" {
		return "", fmt.Errorf("instagram: an image URL is required for every post")
	}

	fullCaption := caption + "\n\n" + hashtags

	containerID, err := c.createContainer(ctx, fullCaption)
	if err != nil {
		return "", err
	}
	if err := c.waitForContainer(ctx, containerID); err != nil {
		return "", err
	}
	return c.publishContainer(ctx, containerID)
}

func (c *Client) createContainer(ctx context.Context, caption string) (string, error) {
	form := url.Values{
		"image_url":    {c.imageURL},
		"caption":      {caption},
		"access_token": {c.accessToken},
	}

	obj, err := c.postForm(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, c.accountID), form)
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	if obj.ID == "" {
		return "", fmt.Errorf("create media container: response carried no id")
	}
	return obj.ID, nil
}

// waitForContainer polls until the Graph API finishes processing the image.
func (c *Client) waitForContainer(ctx context.Context, containerID string) error {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		obj, err := c.get(ctx, fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
			c.baseURL, containerID, url.QueryEscape(c.accessToken)))
		if err != nil {
			return fmt.Errorf("container status: %w", err)
		}
		switch obj.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("media container %s failed processing", containerID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return fmt.Errorf("media processing timed out after %d polls", c.pollAttempts)
}

func (c *Client) publishContainer(ctx context.Context, containerID string) (string, error) {
	form := url.Values{
		"creation_id":  {containerID},
		"access_token": {c.accessToken},
	}

	obj, err := c.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, c.accountID), form)
	if err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	if obj.ID == "" {
		return "", fmt.Errorf("publish container: response carried no id")
	}
	return obj.ID, nil
}

// Ping checks Graph API connectivity for the configured account.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return fmt.Errorf("instagram: credentials not configured")
	}
	obj, err := c.get(ctx, fmt.Sprintf("%s/%s?fields=id,username&access_token=%s",
		c.baseURL, c.accountID, url.QueryEscape(c.accessToken)))
	if err != nil {
		return fmt.Errorf("instagram ping: %w", err)
	}
	if obj.Username == "" {
		return fmt.Errorf("instagram ping: account lookup returned no username")
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (*graphObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, rawURL string) (*graphObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*graphObject, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var obj graphObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &obj, nil
}
