package providers

import (
	"jobscraper/internal/errkind"
	"jobscraper/internal/model"
)

// Registry holds the three adapter instances and implements the
// provider-selection rule from spec section 4.4.
type Registry struct {
	SpiderCloud *SpiderCloudAdapter
	Firecrawl   *FirecrawlAdapter
	FetchFox    *FetchFoxAdapter
	WebhookBase string
}

func (r *Registry) byProvider(p model.Provider) Adapter {
	switch p {
	case model.ProviderSpiderCloud:
		return r.SpiderCloud
	case model.ProviderFirecrawl:
		return r.Firecrawl
	case model.ProviderFetchFox:
		return r.FetchFox
	default:
		return nil
	}
}

// Select returns the adapter to use for site, applying the declared
// scrapeProvider first, then the type- and configuration-based
// defaults, then the first adapter with credentials configured. Missing
// credentials is a non-retryable configuration error, never a silent
// cross-provider fallback.
func (r *Registry) Select(site model.Site) (Adapter, error) {
	if site.PreferredProvider != "" {
		if a := r.byProvider(site.PreferredProvider); a != nil && a.HasCredentials() {
			return a, nil
		}
	}

	if site.Type == model.SiteTypeGreenhouse && r.SpiderCloud.HasCredentials() {
		return r.SpiderCloud, nil
	}

	if r.WebhookBase != "" && r.Firecrawl.HasCredentials() {
		return r.Firecrawl, nil
	}

	if r.FetchFox.HasCredentials() {
		return r.FetchFox, nil
	}

	for _, a := range []Adapter{r.SpiderCloud, r.Firecrawl, r.FetchFox} {
		if a != nil && a.HasCredentials() {
			return a, nil
		}
	}

	return nil, errkind.Newf(errkind.Configuration, "no scrape-provider credentials configured for site %s", site.Name)
}
