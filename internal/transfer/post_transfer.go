package transfer

// PostCreation is the form of a scheduled post before its files are stored.
type PostCreation struct {
	Caption          string
	Title            string
	Hashtags         string
	Mentions         string
	PrivacyLevel     string
	Extensions       string
	ScheduledTime    string
	SelectedAccounts string
}

type PostingHistoryResponse struct {
	AttemptID      string `json:"attempt_id"`
	PostID         int64  `json:"post_id"`
	AccountID      int64  `json:"account_id"`
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	URL            string `json:"url,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	AttemptedAt    string `json:"attempted_at"`
}
