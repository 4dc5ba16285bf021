package handlers

import "github.com/temoto/robotstxt"

// RobotsPolicy wraps a parsed robots.txt for one host. No handler
// consults it: the generic handler fetches and walks a site's root page
// without checking robots.txt.
type RobotsPolicy struct {
	group *robotstxt.Group
}

// ParseRobotsPolicy parses a robots.txt body for the given user agent.
func ParseRobotsPolicy(body []byte, userAgent string) (*RobotsPolicy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return &RobotsPolicy{group: data.FindGroup(userAgent)}, nil
}

// Allowed reports whether the policy permits fetching u. A nil policy
// (robots.txt absent or unparsable) allows everything.
func (p *RobotsPolicy) Allowed(u string) bool {
	if p == nil || p.group == nil {
		return true
	}
	return p.group.Test(u)
}
