package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for post records. Every mutation is a
// compare-and-set against the expected current state; a mutation that finds
// the record in another state fails with ErrConflict and changes nothing.
type Store interface {
	Create(ctx context.Context, theme string) (Post, error)
	Get(ctx context.Context, id string) (Post, error)
	List(ctx context.Context, filter Status, limit int) ([]Post, error)
	LatestTheme(ctx context.Context) (string, error)
	ExistsOnDay(ctx context.Context, from, to time.Time) (bool, error)
	MarkGenerated(ctx context.Context, id string, draft Draft, usage Usage) (Post, error)
	MarkGenerationFailed(ctx context.Context, id, detail string) (Post, error)
	MarkDecided(ctx context.Context, id string, decision Status) (Post, error)
	MarkPublished(ctx context.Context, id, platformPostID string) (Post, error)
	MarkPublishFailed(ctx context.Context, id, detail string) (Post, error)
	RecordError(ctx context.Context, id, detail string) (Post, error)
}

// SQLStore implements Store on Postgres.
type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const postColumns = `id, theme, status, hook, caption, hashtags, alt_text, image_prompt, cta,
	input_tokens, output_tokens, cost_usd, cost_inr, model,
	instagram_post_id, error_detail, created_at, decided_at, published_at`

func (s *SQLStore) Create(ctx context.Context, theme string) (Post, error) {
	if s == nil || s.db == nil {
		return Post{}, errors.New("post store unavailable")
	}
	if theme == "" {
		return Post{}, errors.New("theme is required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (id, theme, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING `+postColumns,
		uuid.NewString(), theme, StatusPendingGeneration,
	)
	post, err := scanPost(row)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Post, error) {
	if s == nil || s.db == nil {
		return Post{}, errors.New("post store unavailable")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = $1
	`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// List returns records newest first. An empty filter returns every state.
func (s *SQLStore) List(ctx context.Context, filter Status, limit int) ([]Post, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("post store unavailable")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1
	`
	args := []any{limit}
	if filter != "" {
		query = `
			SELECT ` + postColumns + `
			FROM posts
			WHERE status = $2
			ORDER BY created_at DESC
			LIMIT $1
		`
		args = append(args, filter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var list []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		list = append(list, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return list, nil
}

// LatestTheme returns the theme of the most recently created record, or ""
// when no records exist. Theme rotation reads this instead of keeping an
// in-memory index so it survives restarts.
func (s *SQLStore) LatestTheme(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("post store unavailable")
	}

	var theme string
	err := s.db.QueryRowContext(ctx, `
		SELECT theme
		FROM posts
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&theme)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest theme: %w", err)
	}
	return theme, nil
}

// ExistsOnDay reports whether any record was created in [from, to).
func (s *SQLStore) ExistsOnDay(ctx context.Context, from, to time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("post store unavailable")
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM posts WHERE created_at >= $1 AND created_at < $2
		)
	`, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists on day: %w", err)
	}
	return exists, nil
}

// MarkGenerated stores the draft and usage and moves the record from
// PENDING_GENERATION to AWAITING_APPROVAL. The status guard makes the usage
// columns write-once: no other transition touches them.
func (s *SQLStore) MarkGenerated(ctx context.Context, id string, draft Draft, usage Usage) (Post, error) {
	return s.transition(ctx, id, `
		UPDATE posts
		SET status = $3, hook = $4, caption = $5, hashtags = $6, alt_text = $7,
			image_prompt = $8, cta = $9, input_tokens = $10, output_tokens = $11,
			cost_usd = $12, cost_inr = $13, model = $14
		WHERE id = $1 AND status = $2
		RETURNING `+postColumns,
		id, StatusPendingGeneration, StatusAwaitingApproval,
		draft.Hook, draft.Caption, draft.Hashtags, draft.AltText, draft.ImagePrompt, draft.CTA,
		usage.InputTokens, usage.OutputTokens, usage.CostUSD, usage.CostINR, usage.Model,
	)
}

// MarkGenerationFailed records the producer error and moves the record from
// PENDING_GENERATION to the terminal GENERATION_FAILED.
func (s *SQLStore) MarkGenerationFailed(ctx context.Context, id, detail string) (Post, error) {
	return s.transition(ctx, id, `
		UPDATE posts
		SET status = $3, error_detail = $4
		WHERE id = $1 AND status = $2
		RETURNING `+postColumns,
		id, StatusPendingGeneration, StatusGenerationFailed, detail,
	)
}

// MarkDecided records the approver decision with its timestamp. Exactly one
// decision can win the compare-and-set out of AWAITING_APPROVAL.
func (s *SQLStore) MarkDecided(ctx context.Context, id string, decision Status) (Post, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Post{}, fmt.Errorf("invalid decision %q", decision)
	}
	return s.transition(ctx, id, `
		UPDATE posts
		SET status = $3, decided_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+postColumns,
		id, StatusAwaitingApproval, decision,
	)
}

// MarkPublished stores the platform post id and moves the record from
// APPROVED to PUBLISHED.
func (s *SQLStore) MarkPublished(ctx context.Context, id, platformPostID string) (Post, error) {
	return s.transition(ctx, id, `
		UPDATE posts
		SET status = $3, instagram_post_id = $4, published_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+postColumns,
		id, StatusApproved, StatusPublished, platformPostID,
	)
}

// MarkPublishFailed records the publisher error and moves the record from
// APPROVED to PUBLISH_FAILED.
func (s *SQLStore) MarkPublishFailed(ctx context.Context, id, detail string) (Post, error) {
	return s.transition(ctx, id, `
		UPDATE posts
		SET status = $3, error_detail = $4
		WHERE id = $1 AND status = $2
		RETURNING `+postColumns,
		id, StatusApproved, StatusPublishFailed, detail,
	)
}

// RecordError stores a collaborator failure detail without changing state.
// Used for failures that leave the record actionable, like a review email
// that could not be sent.
func (s *SQLStore) RecordError(ctx context.Context, id, detail string) (Post, error) {
	if s == nil || s.db == nil {
		return Post{}, errors.New("post store unavailable")
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE posts
		SET error_detail = $2
		WHERE id = $1
		RETURNING `+postColumns,
		id, detail,
	)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("record error detail: %w", err)
	}
	return post, nil
}

// transition runs a guarded UPDATE and disambiguates the empty result:
// a missing record is ErrNotFound, a state mismatch is ErrConflict.
func (s *SQLStore) transition(ctx context.Context, id, query string, args ...any) (Post, error) {
	if s == nil || s.db == nil {
		return Post{}, errors.New("post store unavailable")
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Post{}, getErr
		}
		return Post{}, ErrConflict
	}
	if err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var (
		post         Post
		inputTokens  sql.NullInt64
		outputTokens sql.NullInt64
		costUSD      sql.NullFloat64
		costINR      sql.NullFloat64
		model        sql.NullString
		decidedAt    sql.NullTime
		publishedAt  sql.NullTime
	)

	err := row.Scan(
		&post.ID,
		&post.Theme,
		&post.Status,
		&post.Hook,
		&post.Caption,
		&post.Hashtags,
		&post.AltText,
		&post.ImagePrompt,
		&post.CTA,
		&inputTokens,
		&outputTokens,
		&costUSD,
		&costINR,
		&model,
		&post.InstagramPostID,
		&post.ErrorDetail,
		&post.CreatedAt,
		&decidedAt,
		&publishedAt,
	)
	if err != nil {
		return Post{}, err
	}

	if inputTokens.Valid {
		post.Usage = &Usage{
			InputTokens:  int(inputTokens.Int64),
			OutputTokens: int(outputTokens.Int64),
			CostUSD:      costUSD.Float64,
			CostINR:      costINR.Float64,
			Model:        model.String,
		}
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		post.DecidedAt = &t
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		post.PublishedAt = &t
	}

	return post, nil
}
