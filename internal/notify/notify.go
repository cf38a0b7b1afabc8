package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/pkg/email"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// Review is the payload for an approval email: the freshly drafted post plus
// the signed action links the reviewer clicks.
type Review struct {
	Post       posts.Post
	ApproveURL string
	RejectURL  string
	PreviewURL string
}

// Config holds notifier configuration.
type Config struct {
	SMTP          email.Config
	ApproverEmail string
}

// EmailNotifier mails drafted posts to the approver for review.
type EmailNotifier struct {
	sender        *email.Sender
	smtpConfig    email.Config
	approverEmail string
	logger        logging.Logger
}

func NewEmailNotifier(cfg Config, logger logging.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender:        email.NewSender(cfg.SMTP),
		smtpConfig:    cfg.SMTP,
		approverEmail: cfg.ApproverEmail,
		logger:        logger,
	}
}

func (n *EmailNotifier) IsConfigured() bool {
	return n.smtpConfig.Host != "" && n.smtpConfig.From != "" && n.approverEmail != ""
}

// SendReview emails the approver a preview of the drafted post with approve,
// reject and preview buttons.
func (n *EmailNotifier) SendReview(ctx context.Context, review Review) error {
	if !n.IsConfigured() {
		n.logger.Warn("Email notifier not configured, skipping review email")
		return nil
	}

	data := reviewEmailData{
		Theme:       review.Post.Theme,
		Hook:        review.Post.Hook,
		Caption:     review.Post.Caption,
		Hashtags:    review.Post.Hashtags,
		ImagePrompt: review.Post.ImagePrompt,
		AltText:     review.Post.AltText,
		CTA:         review.Post.CTA,
		ApproveURL:  review.ApproveURL,
		RejectURL:   review.RejectURL,
		PreviewURL:  review.PreviewURL,
	}
	if usage := review.Post.Usage; usage != nil {
		data.HasCost = true
		data.CostUSD = usage.CostUSD
		data.CostINR = usage.CostINR
		data.InputTokens = usage.InputTokens
		data.OutputTokens = usage.OutputTokens
	}

	body, err := n.renderTemplate(data)
	if err != nil {
		return fmt.Errorf("render review email: %w", err)
	}

	subject := fmt.Sprintf("New Mindful Post for Review - %s", review.Post.Theme)
	if err := n.sender.SendMail(ctx, n.approverEmail, subject, body); err != nil {
		n.logger.WithFields(logging.Fields{
			"error":   err.Error(),
			"to":      n.approverEmail,
			"post_id": review.Post.ID,
		}).Error("Failed to send review email")
		return err
	}

	n.logger.WithFields(logging.Fields{
		"to":      n.approverEmail,
		"post_id": review.Post.ID,
		"theme":   review.Post.Theme,
	}).Info("Review email sent")

	return nil
}

type reviewEmailData struct {
	Theme        string
	Hook         string
	Caption      string
	Hashtags     string
	ImagePrompt  string
	AltText      string
	CTA          string
	HasCost      bool
	CostUSD      float64
	CostINR      float64
	InputTokens  int
	OutputTokens int
	ApproveURL   string
	RejectURL    string
	PreviewURL   string
}

func (n *EmailNotifier) renderTemplate(data reviewEmailData) (string, error) {
	tpl, err := template.New("review_email").Parse(reviewEmailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const reviewEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Post for Review</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 640px; margin: 0 auto; padding: 24px;">
        <h2 style="color: #2c3e50;">New post ready for review</h2>

        <p>A fresh <strong>{{.Theme}}</strong> post is waiting for your decision.</p>

        {{if .Hook}}
        <div style="background-color: #f8f9fa; padding: 16px; border-radius: 6px; margin: 20px 0;">
            <strong>Hook</strong>
            <p style="margin: 10px 0 0 0;">{{.Hook}}</p>
        </div>
        {{end}}

        <h3 style="color: #2c3e50; margin-top: 30px;">Caption</h3>
        <div style="white-space: pre-wrap; background-color: #fff; border: 1px solid #eee; border-radius: 6px; padding: 16px;">{{.Caption}}</div>

        {{if .Hashtags}}
        <p style="color: #3498db; margin-top: 16px;">{{.Hashtags}}</p>
        {{end}}

        {{if .ImagePrompt}}
        <h3 style="color: #2c3e50; margin-top: 30px;">Image idea</h3>
        <p>{{.ImagePrompt}}</p>
        {{end}}

        {{if .CTA}}
        <p style="color: #555;"><em>{{.CTA}}</em></p>
        {{end}}

        {{if .HasCost}}
        <p style="color: #6c757d; font-size: 12px;">Generation cost: {{printf "$%.6f" .CostUSD}} ({{printf "INR %.4f" .CostINR}}) for {{.InputTokens}} in / {{.OutputTokens}} out tokens</p>
        {{end}}

        <p style="text-align: center; margin: 30px 0;">
            <a href="{{.ApproveURL}}" style="background-color: #27ae60; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; margin-right: 8px;">Approve &amp; Publish</a>
            <a href="{{.RejectURL}}" style="background-color: #e74c3c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; margin-right: 8px;">Reject</a>
            <a href="{{.PreviewURL}}" style="background-color: #3498db; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block;">Preview</a>
        </p>

        <p style="color: #6c757d; font-size: 12px;">Approving publishes the post to Instagram immediately.</p>
    </div>
</body>
</html>`
