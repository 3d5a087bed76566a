package models

import (
	"encoding/json"
	"time"
)

type Post struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	PostType      string          `db:"post_type" json:"post_type"`
	Caption       string          `db:"caption" json:"caption"`
	Title         string          `db:"title" json:"title"`
	Hashtags      []string        `db:"hashtags" json:"hashtags"`
	Mentions      []string        `db:"mentions" json:"mentions"`
	PrivacyLevel  string          `db:"privacy_level" json:"privacy_level"`
	Extensions    json.RawMessage `db:"extensions" json:"extensions,omitempty"`
	ScheduledTime time.Time       `db:"scheduled_time" json:"scheduled_time"`
	Status        string          `db:"status" json:"status"` // posted, partial, scheduled, failed, draft
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	FileURL      string    `db:"file_url" json:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	MediaKind    string    `db:"media_kind" json:"media_kind"`
	Duration     float64   `db:"duration_seconds" json:"duration_seconds"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	AltText      string    `db:"alt_text" json:"alt_text"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusPartial   = "partial"
	PostStatusFailed    = "failed"
	PostStatusDraft     = "draft"
)
