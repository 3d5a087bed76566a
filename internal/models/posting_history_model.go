package models

import "time"

// PostingHistory is one publish attempt of a post on one account.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	AttemptID      string    `db:"attempt_id" json:"attempt_id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Platform       string    `db:"platform" json:"platform"`
	Success        bool      `db:"success" json:"success"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PostURL        string    `db:"post_url" json:"post_url,omitempty"`
	ErrorKind      string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
