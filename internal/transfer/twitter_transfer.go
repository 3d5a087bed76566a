package transfer

type TweetRequest struct {
	Text  string      `json:"text"`
	Media *TweetMedia `json:"media,omitempty"`
}

type TweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type TweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type TwitterMediaResponse struct {
	MediaID        int64                  `json:"media_id"`
	MediaIDString  string                 `json:"media_id_string"`
	Size           int64                  `json:"size"`
	ExpiresAfter   int64                  `json:"expires_after_secs"`
	ProcessingInfo *TwitterProcessingInfo `json:"processing_info"`
}

type TwitterProcessingInfo struct {
	State           string `json:"state"`
	CheckAfterSecs  int    `json:"check_after_secs"`
	ProgressPercent int    `json:"progress_percent"`
	Error           *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}
