// Package classifier decides which cache domain and delivery policy apply
// to a request.
package classifier

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
)

// Service classifies requests. Classification is pure: no side effects, no
// state beyond the configured API prefix.
type Service struct {
	apiPrefix string
}

// New constructs a classifier for the given API path prefix.
func New(apiPrefix string) *Service {
	if apiPrefix == "" {
		apiPrefix = "/api/"
	}
	if !strings.HasSuffix(apiPrefix, "/") {
		apiPrefix += "/"
	}
	return &Service{apiPrefix: apiPrefix}
}

// Classify maps a request to its cache domain and policy. API-prefixed
// paths are network-first, other GETs cache-first, and mutating requests
// bypass caching entirely.
func (s *Service) Classify(method, rawURL string) resource.Classification {
	if !strings.EqualFold(method, http.MethodGet) {
		return resource.Classification{Domain: resource.DomainNone, Policy: resource.PolicyBypass}
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	if strings.HasPrefix(path, s.apiPrefix) || path+"/" == s.apiPrefix {
		return resource.Classification{Domain: resource.DomainAPI, Policy: resource.PolicyNetworkFirst}
	}
	return resource.Classification{Domain: resource.DomainStatic, Policy: resource.PolicyCacheFirst}
}
