package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pktikkani/mindful-poster/internal/notify"
	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// memStore implements posts.Store in memory with the same compare-and-set
// discipline as the SQL store.
type memStore struct {
	mu      sync.Mutex
	seq     int
	records map[string]posts.Post
	order   []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]posts.Post)}
}

var _ posts.Store = (*memStore)(nil)

func (m *memStore) Create(_ context.Context, theme string) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	post := posts.Post{
		ID:        fmt.Sprintf("post-%d", m.seq),
		Theme:     theme,
		Status:    posts.StatusPendingGeneration,
		CreatedAt: time.Now().UTC(),
	}
	m.records[post.ID] = post
	m.order = append(m.order, post.ID)
	return post, nil
}

func (m *memStore) Get(_ context.Context, id string) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.records[id]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	return post, nil
}

func (m *memStore) List(_ context.Context, filter posts.Status, limit int) ([]posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []posts.Post
	for i := len(m.order) - 1; i >= 0 && len(list) < limit; i-- {
		post := m.records[m.order[i]]
		if filter != "" && post.Status != filter {
			continue
		}
		list = append(list, post)
	}
	return list, nil
}

func (m *memStore) LatestTheme(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return "", nil
	}
	return m.records[m.order[len(m.order)-1]].Theme, nil
}

func (m *memStore) ExistsOnDay(_ context.Context, from, to time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, post := range m.records {
		if !post.CreatedAt.Before(from) && post.CreatedAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkGenerated(_ context.Context, id string, draft posts.Draft, usage posts.Usage) (posts.Post, error) {
	return m.transition(id, posts.StatusPendingGeneration, func(p *posts.Post) {
		p.Status = posts.StatusAwaitingApproval
		p.Hook = draft.Hook
		p.Caption = draft.Caption
		p.Hashtags = draft.Hashtags
		p.AltText = draft.AltText
		p.ImagePrompt = draft.ImagePrompt
		p.CTA = draft.CTA
		u := usage
		p.Usage = &u
	})
}

func (m *memStore) MarkGenerationFailed(_ context.Context, id, detail string) (posts.Post, error) {
	return m.transition(id, posts.StatusPendingGeneration, func(p *posts.Post) {
		p.Status = posts.StatusGenerationFailed
		p.ErrorDetail = detail
	})
}

func (m *memStore) MarkDecided(_ context.Context, id string, decision posts.Status) (posts.Post, error) {
	return m.transition(id, posts.StatusAwaitingApproval, func(p *posts.Post) {
		now := time.Now().UTC()
		p.Status = decision
		p.DecidedAt = &now
	})
}

func (m *memStore) MarkPublished(_ context.Context, id, platformPostID string) (posts.Post, error) {
	return m.transition(id, posts.StatusApproved, func(p *posts.Post) {
		now := time.Now().UTC()
		p.Status = posts.StatusPublished
		p.InstagramPostID = platformPostID
		p.PublishedAt = &now
	})
}

func (m *memStore) MarkPublishFailed(_ context.Context, id, detail string) (posts.Post, error) {
	return m.transition(id, posts.StatusApproved, func(p *posts.Post) {
		p.Status = posts.StatusPublishFailed
		p.ErrorDetail = detail
	})
}

func (m *memStore) RecordError(_ context.Context, id, detail string) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.records[id]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	post.ErrorDetail = detail
	m.records[id] = post
	return post, nil
}

func (m *memStore) transition(id string, want posts.Status, apply func(*posts.Post)) (posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.records[id]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	if post.Status != want {
		return posts.Post{}, posts.ErrConflict
	}
	apply(&post)
	m.records[id] = post
	return post, nil
}

type stubProducer struct {
	draft  posts.Draft
	usage  posts.Usage
	err    error
	themes []string
}

func (p *stubProducer) Generate(_ context.Context, theme string) (posts.Draft, posts.Usage, error) {
	p.themes = append(p.themes, theme)
	if p.err != nil {
		return posts.Draft{}, posts.Usage{}, p.err
	}
	return p.draft, p.usage, nil
}

type stubPublisher struct {
	mu           sync.Mutex
	id           string
	err          error
	calls        int
	lastCaption  string
	lastHashtags string
	onPublish    func()
}

func (p *stubPublisher) Publish(_ context.Context, caption, hashtags string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.lastCaption = caption
	p.lastHashtags = hashtags
	hook := p.onPublish
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	if p.err != nil {
		return "", p.err
	}
	return p.id, nil
}

func (p *stubPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type stubNotifier struct {
	err     error
	reviews []notify.Review
}

func (n *stubNotifier) SendReview(_ context.Context, review notify.Review) error {
	n.reviews = append(n.reviews, review)
	if n.err != nil {
		return n.err
	}
	return nil
}

func testDraft() posts.Draft {
	return posts.Draft{
		Hook:        "That 2 AM spiral again?",
		Caption:     "That 2 AM spiral again?\n\nTry this tonight.",
		Hashtags:    "#MindfulTeens #Mindfulness",
		AltText:     "A dark bedroom lit by a phone screen",
		ImagePrompt: "moody night sky over a city",
		CTA:         "What keeps you up at night?",
	}
}

func testUsage() posts.Usage {
	return posts.Usage{
		InputTokens:  100,
		OutputTokens: 50,
		CostUSD:      0.00105,
		CostINR:      0.0893,
		Model:        "claude-sonnet-4-5-20250929",
	}
}

type testEnv struct {
	store     *memStore
	producer  *stubProducer
	publisher *stubPublisher
	notifier  *stubNotifier
	ctrl      *Controller
}

func newTestEnv(themes ...string) *testEnv {
	if len(themes) == 0 {
		themes = []string{"stress", "sleep"}
	}
	env := &testEnv{
		store:     newMemStore(),
		producer:  &stubProducer{draft: testDraft(), usage: testUsage()},
		publisher: &stubPublisher{id: "IG123"},
		notifier:  &stubNotifier{},
	}
	env.ctrl = NewController(Config{
		Store:     env.store,
		Producer:  env.producer,
		Publisher: env.publisher,
		Notifier:  env.notifier,
		Signer:    NewTokenSigner("test-secret"),
		Themes:    themes,
		BaseURL:   "http://localhost:18090",
		Logger:    logging.NewLoggerWithService("poster-test"),
	})
	return env
}

func (e *testEnv) token(action, id string) string {
	return NewTokenSigner("test-secret").Sign(action, id)
}

func (e *testEnv) startPost(t *testing.T) posts.Post {
	t.Helper()
	post, err := e.ctrl.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if post.Status != posts.StatusAwaitingApproval {
		t.Fatalf("expected AWAITING_APPROVAL, got %s", post.Status)
	}
	return post
}

func TestStartSelectsNextThemeAndNotifies(t *testing.T) {
	env := newTestEnv("stress", "sleep")
	if _, err := env.store.Create(context.Background(), "stress"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	post, err := env.ctrl.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if post.Theme != "sleep" {
		t.Fatalf("theme: got %q, want sleep", post.Theme)
	}
	if post.Status != posts.StatusAwaitingApproval {
		t.Fatalf("status: got %s", post.Status)
	}
	if post.Usage == nil || post.Usage.InputTokens != 100 || post.Usage.OutputTokens != 50 {
		t.Fatalf("usage not stored: %+v", post.Usage)
	}
	if len(env.producer.themes) != 1 || env.producer.themes[0] != "sleep" {
		t.Fatalf("producer themes: %v", env.producer.themes)
	}
	if len(env.notifier.reviews) != 1 {
		t.Fatalf("expected one review email, got %d", len(env.notifier.reviews))
	}

	review := env.notifier.reviews[0]
	wantApprove := "http://localhost:18090/approve/" + post.ID + "?token=" + env.token(ActionApprove, post.ID)
	if review.ApproveURL != wantApprove {
		t.Fatalf("approve url: got %q, want %q", review.ApproveURL, wantApprove)
	}
	wantReject := "http://localhost:18090/reject/" + post.ID + "?token=" + env.token(ActionReject, post.ID)
	if review.RejectURL != wantReject {
		t.Fatalf("reject url: got %q, want %q", review.RejectURL, wantReject)
	}
	if review.Post.ID != post.ID {
		t.Fatalf("review post id: got %q", review.Post.ID)
	}
}

func TestStartFirstRecordUsesFirstTheme(t *testing.T) {
	env := newTestEnv("stress", "sleep")

	post := env.startPost(t)
	if post.Theme != "stress" {
		t.Fatalf("theme: got %q, want stress", post.Theme)
	}
}

func TestNextThemeRotation(t *testing.T) {
	cases := []struct {
		name   string
		themes []string
		prior  string
		want   string
	}{
		{"empty store", []string{"stress", "sleep"}, "", "stress"},
		{"advances past prior", []string{"stress", "sleep"}, "stress", "sleep"},
		{"wraps around", []string{"stress", "sleep"}, "sleep", "stress"},
		{"prior no longer configured", []string{"stress", "sleep"}, "retired", "stress"},
		{"single theme repeats", []string{"stress"}, "stress", "stress"},
	}

	for _, tc := range cases {
		env := newTestEnv(tc.themes...)
		if tc.prior != "" {
			if _, err := env.store.Create(context.Background(), tc.prior); err != nil {
				t.Fatalf("%s: seed store: %v", tc.name, err)
			}
		}
		got, err := env.ctrl.nextTheme(context.Background())
		if err != nil {
			t.Fatalf("%s: next theme: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestStartProducerFailureIsTerminal(t *testing.T) {
	env := newTestEnv()
	env.producer.err = errors.New("model overloaded")

	post, err := env.ctrl.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if post.Status != posts.StatusGenerationFailed {
		t.Fatalf("status: got %s, want GENERATION_FAILED", post.Status)
	}
	if post.ErrorDetail != "model overloaded" {
		t.Fatalf("error detail: got %q", post.ErrorDetail)
	}
	if post.Usage != nil {
		t.Fatalf("expected no usage on failed generation, got %+v", post.Usage)
	}
	if len(env.notifier.reviews) != 0 {
		t.Fatalf("expected no review email, got %d", len(env.notifier.reviews))
	}
}

func TestStartNotifierFailureKeepsRecordActionable(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("smtp unreachable")

	post, err := env.ctrl.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if post.Status != posts.StatusAwaitingApproval {
		t.Fatalf("status: got %s, want AWAITING_APPROVAL", post.Status)
	}
	if !strings.Contains(post.ErrorDetail, "notify:") {
		t.Fatalf("error detail: got %q", post.ErrorDetail)
	}
}

func TestResolveApprovePublishes(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)

	var statusAtPublish posts.Status
	env.publisher.onPublish = func() {
		rec, err := env.store.Get(context.Background(), post.ID)
		if err != nil {
			t.Errorf("get at publish time: %v", err)
			return
		}
		statusAtPublish = rec.Status
	}

	resolved, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, env.token(ActionApprove, post.ID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != posts.StatusPublished {
		t.Fatalf("status: got %s, want PUBLISHED", resolved.Status)
	}
	if resolved.InstagramPostID != "IG123" {
		t.Fatalf("instagram post id: got %q, want IG123", resolved.InstagramPostID)
	}
	if resolved.DecidedAt == nil || resolved.PublishedAt == nil {
		t.Fatalf("expected decision and publish timestamps, got %+v", resolved)
	}
	if statusAtPublish != posts.StatusApproved {
		t.Fatalf("expected APPROVED durably recorded before publish, got %s", statusAtPublish)
	}
	if env.publisher.callCount() != 1 {
		t.Fatalf("publish calls: got %d, want 1", env.publisher.callCount())
	}
	if env.publisher.lastCaption != testDraft().Caption {
		t.Fatalf("published caption: got %q", env.publisher.lastCaption)
	}
	if env.publisher.lastHashtags != testDraft().Hashtags {
		t.Fatalf("published hashtags: got %q", env.publisher.lastHashtags)
	}
}

func TestResolveRepeatedApproveIsNoOp(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)
	token := env.token(ActionApprove, post.ID)

	if _, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, token); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	again, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, token)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.Status != posts.StatusPublished {
		t.Fatalf("status: got %s, want PUBLISHED", again.Status)
	}
	if env.publisher.callCount() != 1 {
		t.Fatalf("publish calls: got %d, want 1", env.publisher.callCount())
	}
}

func TestResolveRejectNeverPublishes(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)

	rejected, err := env.ctrl.Resolve(context.Background(), post.ID, ActionReject, env.token(ActionReject, post.ID))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != posts.StatusRejected {
		t.Fatalf("status: got %s, want REJECTED", rejected.Status)
	}
	if rejected.DecidedAt == nil {
		t.Fatal("expected decision timestamp")
	}

	// A later approve with a valid token reports the settled state.
	after, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, env.token(ActionApprove, post.ID))
	if err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
	if after.Status != posts.StatusRejected {
		t.Fatalf("status: got %s, want REJECTED", after.Status)
	}
	if env.publisher.callCount() != 0 {
		t.Fatalf("publish calls: got %d, want 0", env.publisher.callCount())
	}
}

func TestResolveInvalidTokenLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)

	_, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, "not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	current, err := env.store.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != posts.StatusAwaitingApproval {
		t.Fatalf("status changed to %s", current.Status)
	}
}

func TestResolveTokenActionMismatch(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)

	_, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, env.token(ActionReject, post.ID))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if env.publisher.callCount() != 0 {
		t.Fatalf("publish calls: got %d, want 0", env.publisher.callCount())
	}
}

func TestResolveUnknownRecord(t *testing.T) {
	env := newTestEnv()

	_, err := env.ctrl.Resolve(context.Background(), "missing", ActionApprove, env.token(ActionApprove, "missing"))
	if !errors.Is(err, posts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveUnsupportedAction(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)

	_, err := env.ctrl.Resolve(context.Background(), post.ID, ActionPreview, env.token(ActionPreview, post.ID))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestResolvePublishFailureIsRecorded(t *testing.T) {
	env := newTestEnv()
	env.publisher.err = errors.New("graph api 400")
	post := env.startPost(t)

	resolved, err := env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, env.token(ActionApprove, post.ID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != posts.StatusPublishFailed {
		t.Fatalf("status: got %s, want PUBLISH_FAILED", resolved.Status)
	}
	if resolved.ErrorDetail != "graph api 400" {
		t.Fatalf("error detail: got %q", resolved.ErrorDetail)
	}
	if resolved.DecidedAt == nil {
		t.Fatal("expected decision timestamp")
	}
}

func TestResolveConcurrentClicksPublishOnce(t *testing.T) {
	env := newTestEnv()
	post := env.startPost(t)
	token := env.token(ActionApprove, post.ID)

	var wg sync.WaitGroup
	results := make([]posts.Post, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.ctrl.Resolve(context.Background(), post.ID, ActionApprove, token)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("resolve %d: %v", i, errs[i])
		}
		if results[i].Status != posts.StatusApproved && results[i].Status != posts.StatusPublished {
			t.Fatalf("resolve %d status: got %s", i, results[i].Status)
		}
	}
	if env.publisher.callCount() != 1 {
		t.Fatalf("publish calls: got %d, want 1", env.publisher.callCount())
	}

	final, err := env.store.Get(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != posts.StatusPublished {
		t.Fatalf("final status: got %s, want PUBLISHED", final.Status)
	}
}

func TestActionURLCarriesSignedToken(t *testing.T) {
	env := newTestEnv()

	got := env.ctrl.ActionURL(ActionApprove, "post-9")
	want := "http://localhost:18090/approve/post-9?token=" + env.token(ActionApprove, "post-9")
	if got != want {
		t.Fatalf("action url: got %q, want %q", got, want)
	}
}

func TestTokenSignerVerify(t *testing.T) {
	signer := NewTokenSigner("secret-a")

	token := signer.Sign(ActionApprove, "post-1")
	if !signer.Verify(ActionApprove, "post-1", token) {
		t.Fatal("expected token to verify")
	}
	if signer.Verify(ActionReject, "post-1", token) {
		t.Fatal("token must not verify for another action")
	}
	if signer.Verify(ActionApprove, "post-2", token) {
		t.Fatal("token must not verify for another record")
	}
	if NewTokenSigner("secret-b").Verify(ActionApprove, "post-1", token) {
		t.Fatal("token must not verify under another secret")
	}
	if signer.Verify(ActionApprove, "post-1", "") {
		t.Fatal("empty token must not verify")
	}
}
