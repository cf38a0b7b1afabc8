package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pktikkani/mindful-poster/internal/notify"
	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// ErrInvalidToken rejects a callback whose token does not match the action
// and record id.
var ErrInvalidToken = errors.New("invalid action token")

// Producer drafts content for a theme.
type Producer interface {
	Generate(ctx context.Context, theme string) (posts.Draft, posts.Usage, error)
}

// Publisher pushes an approved post to the platform and returns the platform
// post id.
type Publisher interface {
	Publish(ctx context.Context, caption, hashtags string) (string, error)
}

// Notifier delivers a drafted post to the approver for review.
type Notifier interface {
	SendReview(ctx context.Context, review notify.Review) error
}

// Config wires a Controller.
type Config struct {
	Store     posts.Store
	Producer  Producer
	Publisher Publisher
	Notifier  Notifier
	Signer    *TokenSigner
	Themes    []string
	BaseURL   string
	Logger    logging.Logger
	Metrics   *Metrics
}

// Controller drives post records through the pipeline: generate, review,
// decide, publish. Every transition goes through the store's compare-and-set
// updates, so concurrent triggers settle on exactly one outcome per record.
type Controller struct {
	store     posts.Store
	producer  Producer
	publisher Publisher
	notifier  Notifier
	signer    *TokenSigner
	themes    []string
	baseURL   string
	logger    logging.Logger
	metrics   *Metrics
}

func NewController(cfg Config) *Controller {
	return &Controller{
		store:     cfg.Store,
		producer:  cfg.Producer,
		publisher: cfg.Publisher,
		notifier:  cfg.Notifier,
		signer:    cfg.Signer,
		themes:    cfg.Themes,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Start creates a record on the next theme, generates a draft and mails the
// approver. Producer and notifier failures end up recorded on the returned
// record instead of surfacing as errors; only store failures do that.
func (c *Controller) Start(ctx context.Context) (posts.Post, error) {
	theme, err := c.nextTheme(ctx)
	if err != nil {
		return posts.Post{}, err
	}

	post, err := c.store.Create(ctx, theme)
	if err != nil {
		return posts.Post{}, fmt.Errorf("create post record: %w", err)
	}

	log := c.logger.WithFields(logging.Fields{"post_id": post.ID, "theme": theme})
	log.Info("Generating post draft")

	draft, usage, err := c.producer.Generate(ctx, theme)
	if err != nil {
		c.metrics.IncGeneration("failed")
		log.WithFields(logging.Fields{"error": err.Error()}).Error("Draft generation failed")
		failed, markErr := c.store.MarkGenerationFailed(ctx, post.ID, err.Error())
		if markErr != nil {
			return posts.Post{}, fmt.Errorf("mark generation failed: %w", markErr)
		}
		return failed, nil
	}

	updated, err := c.store.MarkGenerated(ctx, post.ID, draft, usage)
	if err != nil {
		return posts.Post{}, fmt.Errorf("store draft: %w", err)
	}
	c.metrics.IncGeneration("generated")
	log.WithFields(logging.Fields{
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"cost_usd":      usage.CostUSD,
		"cost_inr":      usage.CostINR,
	}).Info("Draft generated")

	review := notify.Review{
		Post:       updated,
		ApproveURL: c.ActionURL(ActionApprove, updated.ID),
		RejectURL:  c.ActionURL(ActionReject, updated.ID),
		PreviewURL: c.ActionURL(ActionPreview, updated.ID),
	}
	if err := c.notifier.SendReview(ctx, review); err != nil {
		log.WithFields(logging.Fields{"error": err.Error()}).Error("Review notification failed")
		noted, recErr := c.store.RecordError(ctx, updated.ID, fmt.Sprintf("notify: %v", err))
		if recErr != nil {
			log.WithFields(logging.Fields{"error": recErr.Error()}).Error("Failed to record notify error")
			return updated, nil
		}
		return noted, nil
	}

	return updated, nil
}

// Resolve applies an approver decision arriving on a callback link. The
// token must authorize the action for this record id. A record already out
// of AWAITING_APPROVAL is returned as-is with no side effects, so repeated
// and duplicate clicks are safe.
func (c *Controller) Resolve(ctx context.Context, id, action, token string) (posts.Post, error) {
	if action != ActionApprove && action != ActionReject {
		return posts.Post{}, ErrInvalidToken
	}
	if !c.signer.Verify(action, id, token) {
		return posts.Post{}, ErrInvalidToken
	}

	post, err := c.store.Get(ctx, id)
	if err != nil {
		return posts.Post{}, err
	}
	if post.Status != posts.StatusAwaitingApproval {
		return post, nil
	}

	decision := posts.StatusApproved
	if action == ActionReject {
		decision = posts.StatusRejected
	}

	decided, err := c.store.MarkDecided(ctx, id, decision)
	if errors.Is(err, posts.ErrConflict) {
		// Lost the compare-and-set to another click. Report the settled
		// state without touching the publisher.
		return c.store.Get(ctx, id)
	}
	if err != nil {
		return posts.Post{}, fmt.Errorf("record decision: %w", err)
	}
	c.metrics.IncDecision(action)
	c.logger.WithFields(logging.Fields{"post_id": id, "action": action}).Info("Post decision recorded")

	if decision == posts.StatusRejected {
		return decided, nil
	}
	return c.publish(ctx, decided)
}

// publish runs the single publish attempt that follows an approval. The
// approval is already durable at this point.
func (c *Controller) publish(ctx context.Context, post posts.Post) (posts.Post, error) {
	platformID, err := c.publisher.Publish(ctx, post.Caption, post.Hashtags)
	if err != nil {
		c.metrics.IncPublish("failed")
		c.logger.WithFields(logging.Fields{"post_id": post.ID, "error": err.Error()}).Error("Instagram publish failed")
		failed, markErr := c.store.MarkPublishFailed(ctx, post.ID, err.Error())
		if markErr != nil {
			return posts.Post{}, fmt.Errorf("mark publish failed: %w", markErr)
		}
		return failed, nil
	}

	published, err := c.store.MarkPublished(ctx, post.ID, platformID)
	if err != nil {
		return posts.Post{}, fmt.Errorf("store platform post id: %w", err)
	}
	c.metrics.IncPublish("published")
	c.logger.WithFields(logging.Fields{"post_id": post.ID, "instagram_post_id": platformID}).Info("Post published to Instagram")
	return published, nil
}

// ActionURL builds the signed callback link for an action on a record.
func (c *Controller) ActionURL(action, id string) string {
	return fmt.Sprintf("%s/%s/%s?token=%s", c.baseURL, action, id, c.signer.Sign(action, id))
}

// VerifyToken reports whether token authorizes action on the record id.
func (c *Controller) VerifyToken(action, id, token string) bool {
	return c.signer.Verify(action, id, token)
}

// nextTheme rotates through the configured list, skipping the theme of the
// most recently created record. The prior theme is read from the store, so
// rotation survives restarts.
func (c *Controller) nextTheme(ctx context.Context) (string, error) {
	if len(c.themes) == 0 {
		return "", errors.New("no themes configured")
	}
	prior, err := c.store.LatestTheme(ctx)
	if err != nil {
		return "", fmt.Errorf("latest theme: %w", err)
	}
	if prior == "" {
		return c.themes[0], nil
	}
	for i, theme := range c.themes {
		if theme == prior {
			return c.themes[(i+1)%len(c.themes)], nil
		}
	}
	return c.themes[0], nil
}
