package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const marketplaceAPIURL = "https://api.marketplace.example.com"

type marketplaceService struct {
	api *apiClient
}

func NewMarketplaceService(opts ClientOptions) publish.Adapter {
	opts = opts.withDefaults(marketplaceAPIURL)
	return &marketplaceService{api: newAPIClient(publish.ProviderMarketplace, opts)}
}

// Publish resolves the catalog references, creates a draft and submits it.
// A reference that cannot be resolved is sent as a placeholder product; a
// failed submit fails the publish.
func (s *marketplaceService) Publish(ctx context.Context, conn *publish.Connection, content publish.PostContent) (publish.PublishResult, error) {
	brand := content.Extensions.Brand
	if brand == nil || strings.TrimSpace(brand.Name) == "" {
		return publish.PublishResult{}, publish.NewError(publish.KindContent, "marketplace posts require brand metadata")
	}
	bearer := withBearer(conn.AccessToken)

	var (
		products []transfer.MarketplaceProduct
		warnings []string
	)
	for _, ref := range content.Extensions.CatalogRefs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		var p transfer.MarketplaceProduct
		if err := s.api.getJSON(ctx, "/v1/products/"+url.PathEscape(ref), nil, &p, bearer); err != nil {
			warnings = append(warnings, fmt.Sprintf("catalog reference %s could not be resolved and was sent as a placeholder: %v", ref, err))
			p = transfer.MarketplaceProduct{ID: ref, Name: ref, Placeholder: true}
		}
		if p.ID == "" {
			p.ID = ref
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return publish.PublishResult{}, publish.NewError(publish.KindContent, "marketplace posts require at least one catalog reference")
	}

	media := make([]transfer.MarketplaceMedia, 0, len(content.Media))
	for _, m := range content.Media {
		media = append(media, transfer.MarketplaceMedia{URL: m.URL, Type: string(m.Kind), AltText: m.AltText})
	}

	var draft transfer.MarketplacePost
	req := transfer.MarketplacePostRequest{
		Brand:    transfer.MarketplaceBrand{ID: brand.ID, Name: brand.Name, Website: brand.Website},
		Caption:  content.ComposeText(),
		Media:    media,
		Products: products,
	}
	if err := s.api.postJSON(ctx, "/v1/posts", req, &draft, bearer); err != nil {
		return publish.PublishResult{}, err
	}
	if draft.ID == "" {
		return publish.PublishResult{}, publish.NewError(publish.KindAPI, "marketplace did not return a draft id")
	}

	var submitted transfer.MarketplacePost
	if err := s.api.postJSON(ctx, "/v1/posts/"+url.PathEscape(draft.ID)+"/submit", nil, &submitted, bearer); err != nil {
		return publish.PublishResult{}, fmt.Errorf("submitting draft %s: %w", draft.ID, err)
	}

	return publish.PublishResult{
		Success:        true,
		PlatformPostID: firstNonEmpty(submitted.ID, draft.ID),
		URL:            firstNonEmpty(submitted.URL, draft.URL),
		Warnings:       warnings,
	}, nil
}
