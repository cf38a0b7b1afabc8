package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pktikkani/mindful-poster/internal/posts"
)

const (
	colorGreen = "#2e7d32"
	colorAmber = "#f57c00"
	colorRed   = "#c62828"
	colorBlue  = "#1565c0"
)

type resultPage struct {
	Title   string
	Message string
	Details []string
	Color   string
}

type previewPage struct {
	Post        posts.Post
	StatusLabel string
	StatusColor string
	Created     string
	Cost        string
	ShowActions bool
	ApproveURL  string
	RejectURL   string
}

type dashboardRow struct {
	Index       int
	StatusLabel string
	StatusColor string
	Theme       string
	Hook        string
	Created     string
	Cost        string
	PreviewURL  string
}

type dashboardPage struct {
	Rows []dashboardRow
}

var (
	resultTmpl    = template.Must(template.New("result").Parse(resultPageHTML))
	previewTmpl   = template.Must(template.New("preview").Parse(previewPageHTML))
	dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardPageHTML))
)

func renderPage(c *gin.Context, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		c.String(http.StatusInternalServerError, "page rendering failed")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func renderResult(c *gin.Context, status int, page resultPage) {
	renderPage(c, status, resultTmpl, page)
}

// statusBadge maps a lifecycle state to the label and color the pages use.
func statusBadge(s posts.Status) (string, string) {
	switch s {
	case posts.StatusPendingGeneration:
		return "Generating", "#757575"
	case posts.StatusAwaitingApproval:
		return "Pending Review", colorAmber
	case posts.StatusApproved:
		return "Approved", colorGreen
	case posts.StatusPublished:
		return "Published", colorBlue
	case posts.StatusRejected:
		return "Rejected", colorRed
	case posts.StatusPublishFailed:
		return "Publish Failed", colorRed
	case posts.StatusGenerationFailed:
		return "Generation Failed", colorRed
	}
	return string(s), "#757575"
}

func formatCost(u *posts.Usage) string {
	if u == nil {
		return ""
	}
	return fmt.Sprintf("$%.6f", u.CostUSD)
}

func formatCreated(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04 MST")
}

const resultPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; margin: 0; padding: 24px 16px; }
.card { max-width: 520px; margin: 48px auto; background: #ffffff; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,0.08); padding: 40px; text-align: center; }
h1 { color: {{.Color}}; font-size: 24px; margin: 0 0 16px; }
p { color: #444444; line-height: 1.6; margin: 0 0 8px; }
.detail { color: #777777; font-size: 14px; }
a.back { display: inline-block; margin-top: 24px; font-size: 14px; color: #3498db; text-decoration: none; }
</style>
</head>
<body>
<div class="card">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{range .Details}}<p class="detail">{{.}}</p>
{{end}}<a class="back" href="/dashboard">Back to Dashboard</a>
</div>
</body>
</html>
`

const previewPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Post Preview - {{.Post.Theme}}</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #fafafa; margin: 0; padding: 24px 16px; }
.card { max-width: 470px; margin: 0 auto; background: #ffffff; border: 1px solid #dbdbdb; border-radius: 8px; overflow: hidden; }
.header { display: flex; justify-content: space-between; align-items: center; padding: 14px 16px; border-bottom: 1px solid #efefef; }
.account { font-weight: 600; font-size: 14px; color: #262626; }
.badge { font-size: 12px; font-weight: 600; color: #ffffff; background: {{.StatusColor}}; border-radius: 12px; padding: 4px 10px; }
.image { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: #ffffff; padding: 48px 32px; min-height: 180px; display: flex; flex-direction: column; justify-content: center; }
.image .hook { font-size: 22px; font-weight: 700; line-height: 1.35; margin: 0 0 16px; }
.image .idea { font-size: 12px; opacity: 0.85; line-height: 1.5; margin: 0; }
.body { padding: 16px; }
.caption { font-size: 14px; color: #262626; line-height: 1.6; white-space: pre-line; }
.hashtags { font-size: 14px; color: #0095f6; margin-top: 12px; word-break: break-word; }
.meta { border-top: 1px solid #efefef; padding: 12px 16px; font-size: 13px; color: #8e8e8e; }
.meta div { margin: 4px 0; }
.meta span { color: #262626; }
.actions { display: flex; gap: 12px; padding: 16px; border-top: 1px solid #efefef; }
.actions a { flex: 1; text-align: center; padding: 12px 0; border-radius: 6px; color: #ffffff; font-weight: 600; font-size: 14px; text-decoration: none; }
.approve { background: #27ae60; }
.reject { background: #e74c3c; }
.back { display: block; max-width: 470px; margin: 16px auto 0; font-size: 14px; color: #3498db; text-decoration: none; text-align: center; }
</style>
</head>
<body>
<div class="card">
<div class="header">
<span class="account">themindfulinitiative</span>
<span class="badge">{{.StatusLabel}}</span>
</div>
<div class="image">
<p class="hook">{{.Post.Hook}}</p>
<p class="idea">Image idea: {{.Post.ImagePrompt}}</p>
</div>
<div class="body">
<div class="caption">{{.Post.Caption}}</div>
<div class="hashtags">{{.Post.Hashtags}}</div>
</div>
<div class="meta">
<div>Theme: <span>{{.Post.Theme}}</span></div>
<div>Call to action: <span>{{.Post.CTA}}</span></div>
<div>Alt text: <span>{{.Post.AltText}}</span></div>
<div>Created: <span>{{.Created}}</span></div>
{{if .Cost}}<div>Generation cost: <span>{{.Cost}}</span></div>
{{end}}{{if .Post.InstagramPostID}}<div>Instagram post: <span>{{.Post.InstagramPostID}}</span></div>
{{end}}{{if .Post.ErrorDetail}}<div>Last error: <span>{{.Post.ErrorDetail}}</span></div>
{{end}}</div>
{{if .ShowActions}}<div class="actions">
<a class="approve" href="{{.ApproveURL}}">Approve &amp; Publish</a>
<a class="reject" href="{{.RejectURL}}">Reject</a>
</div>
{{end}}</div>
<a class="back" href="/dashboard">Back to Dashboard</a>
</body>
</html>
`

const dashboardPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mindful Poster Dashboard</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; margin: 0; padding: 32px 16px; }
.wrap { max-width: 960px; margin: 0 auto; }
h1 { font-size: 22px; color: #262626; margin: 0 0 4px; }
.sub { font-size: 14px; color: #8e8e8e; margin: 0 0 24px; }
table { width: 100%; border-collapse: collapse; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 4px rgba(0,0,0,0.06); }
th { text-align: left; font-size: 12px; text-transform: uppercase; letter-spacing: 0.05em; color: #8e8e8e; padding: 12px 16px; border-bottom: 2px solid #efefef; }
td { font-size: 14px; color: #262626; padding: 12px 16px; border-bottom: 1px solid #f5f5f5; vertical-align: top; }
.badge { display: inline-block; font-size: 12px; font-weight: 600; color: #ffffff; border-radius: 12px; padding: 3px 10px; }
.hook { max-width: 320px; }
.empty { text-align: center; color: #8e8e8e; padding: 32px 16px; }
a { color: #3498db; text-decoration: none; }
</style>
</head>
<body>
<div class="wrap">
<h1>Mindful Poster</h1>
<p class="sub">Most recent posts, newest first.</p>
<table>
<tr><th>#</th><th>Status</th><th>Theme</th><th>Hook</th><th>Created</th><th>Cost</th><th></th></tr>
{{range .Rows}}<tr>
<td>{{.Index}}</td>
<td><span class="badge" style="background: {{.StatusColor}}">{{.StatusLabel}}</span></td>
<td>{{.Theme}}</td>
<td class="hook">{{.Hook}}</td>
<td>{{.Created}}</td>
<td>{{.Cost}}</td>
<td><a href="{{.PreviewURL}}">Preview</a></td>
</tr>
{{else}}<tr><td colspan="7" class="empty">No posts yet. Trigger one with POST /generate.</td></tr>
{{end}}</table>
</div>
</body>
</html>
`
