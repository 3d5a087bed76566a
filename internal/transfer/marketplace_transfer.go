package transfer

type MarketplaceProduct struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	URL         string  `json:"url,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

type MarketplaceBrand struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

type MarketplaceMedia struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	AltText string `json:"alt_text,omitempty"`
}

type MarketplacePostRequest struct {
	Brand    MarketplaceBrand     `json:"brand"`
	Caption  string               `json:"caption"`
	Media    []MarketplaceMedia   `json:"media"`
	Products []MarketplaceProduct `json:"products"`
}

type MarketplacePost struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}
