package handlers

import "jobscraper/internal/model"

// Registry resolves a Handler for a given site/URL per spec section 4.1:
// explicit site-type wins, otherwise the first handler whose host/path
// predicate matches, with a generic handler as the tail.
type Registry struct {
	byType   map[model.SiteType]Handler
	ordered  []Handler
	fallback Handler
}

// NewRegistry builds the default registry wired with one handler per
// supported careers-site family.
func NewRegistry() *Registry {
	generic := newGenericHandler()
	ordered := []Handler{
		newGreenhouseHandler(),
		newAshbyHandler(),
		newGithubCareersHandler(),
		newAvatureHandler(),
		newWorkdayHandler(),
		newDocusignHandler(),
		newConfluentHandler(),
		newCiscoHandler(),
		newNetflixHandler(),
		newUberHandler(),
		newOpenAIHandler(),
		newNotionHandler(),
	}
	byType := make(map[model.SiteType]Handler, len(ordered)+1)
	for _, h := range ordered {
		byType[h.Name()] = h
	}
	byType[generic.Name()] = generic
	return &Registry{byType: byType, ordered: ordered, fallback: generic}
}

// Resolve returns the handler for siteType if declared and known,
// otherwise the first handler whose MatchesURL predicate matches url,
// otherwise the generic handler.
func (r *Registry) Resolve(siteType model.SiteType, url string) Handler {
	if siteType != "" {
		if h, ok := r.byType[siteType]; ok {
			return h
		}
	}
	for _, h := range r.ordered {
		if h.MatchesURL(url) {
			return h
		}
	}
	return r.fallback
}

// ForType returns the handler registered for siteType, or the generic
// handler if siteType is unknown.
func (r *Registry) ForType(siteType model.SiteType) Handler {
	if h, ok := r.byType[siteType]; ok {
		return h
	}
	return r.fallback
}
