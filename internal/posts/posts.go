package posts

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a post record. Transitions are
// one-directional and enforced by the store's compare-and-set updates.
type Status string

const (
	StatusPendingGeneration Status = "PENDING_GENERATION"
	StatusAwaitingApproval  Status = "AWAITING_APPROVAL"
	StatusApproved          Status = "APPROVED"
	StatusPublished         Status = "PUBLISHED"
	StatusPublishFailed     Status = "PUBLISH_FAILED"
	StatusRejected          Status = "REJECTED"
	StatusGenerationFailed  Status = "GENERATION_FAILED"
)

// ParseStatus maps a raw status string to a known lifecycle state.
func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusPendingGeneration, StatusAwaitingApproval, StatusApproved,
		StatusPublished, StatusPublishFailed, StatusRejected, StatusGenerationFailed:
		return s, true
	}
	return "", false
}

var (
	// ErrNotFound is returned when no record exists for an identifier.
	ErrNotFound = errors.New("post not found")
	// ErrConflict is returned when a compare-and-set update assumed a state
	// the record is no longer in. The record is left unchanged.
	ErrConflict = errors.New("post state conflict")
)

// Draft is the structured content returned by the generator.
type Draft struct {
	Hook        string `json:"hook"`
	Caption     string `json:"caption"`
	Hashtags    string `json:"hashtags"`
	AltText     string `json:"alt_text"`
	ImagePrompt string `json:"image_prompt"`
	CTA         string `json:"cta"`
}

// Usage captures token counts and computed cost for one generation call.
// Once stored it is never overwritten.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CostINR      float64 `json:"cost_inr"`
	Model        string  `json:"model"`
}

// Post is one generation-through-publish attempt. Records are never deleted;
// they form the audit trail shown on the dashboard.
type Post struct {
	ID              string
	Theme           string
	Status          Status
	Hook            string
	Caption         string
	Hashtags        string
	AltText         string
	ImagePrompt     string
	CTA             string
	Usage           *Usage
	InstagramPostID string
	ErrorDetail     string
	CreatedAt       time.Time
	DecidedAt       *time.Time
	PublishedAt     *time.Time
}
