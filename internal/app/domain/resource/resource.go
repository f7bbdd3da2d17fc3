// Package resource defines cache domain identifiers and the per-class
// delivery policies applied by the request mediator.
package resource

import "fmt"

// Domain names a cache domain class.
type Domain string

const (
	// DomainStatic holds assets served cache-first.
	DomainStatic Domain = "static"
	// DomainAPI holds business data served network-first.
	DomainAPI Domain = "api"
	// DomainNone marks requests that bypass caching entirely.
	DomainNone Domain = ""
)

// Policy names the source ordering applied to a request.
type Policy string

const (
	// PolicyCacheFirst attempts the cache before the network.
	PolicyCacheFirst Policy = "cache-first-with-network-fallback"
	// PolicyNetworkFirst attempts the network before the cache.
	PolicyNetworkFirst Policy = "network-first-with-cache-fallback"
	// PolicyBypass routes straight to the network; failures are queued
	// for background replay instead of cached.
	PolicyBypass Policy = "bypass"
)

// Classification is the result of classifying a single request.
type Classification struct {
	Domain Domain
	Policy Policy
}

// Versioned returns the physical, version-stamped domain name, e.g.
// "static-v3". Activation of a new version purges all names that do not
// carry the current stamp.
func (d Domain) Versioned(version int) string {
	return fmt.Sprintf("%s-v%d", string(d), version)
}
