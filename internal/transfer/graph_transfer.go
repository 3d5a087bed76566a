package transfer

type GraphPage struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	AccessToken              string       `json:"access_token"`
	InstagramBusinessAccount *GraphObject `json:"instagram_business_account"`
}

type GraphObject struct {
	ID string `json:"id"`
}

type GraphAccountsResponse struct {
	Data   []GraphPage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type GraphPostResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type GraphContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type GraphMedia struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
}

type InstagramTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
