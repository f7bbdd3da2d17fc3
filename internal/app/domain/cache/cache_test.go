package cache

import (
	"net/http"
	"testing"
)

func TestKeyCanonicalizesQueryOrder(t *testing.T) {
	a := Key(http.MethodGet, "/api/items?b=2&a=1")
	b := Key(http.MethodGet, "/api/items?a=1&b=2")
	if a != b {
		t.Fatalf("keys differ for reordered queries: %q vs %q", a, b)
	}
}

func TestKeyDropsFragment(t *testing.T) {
	a := Key(http.MethodGet, "/docs/page#section-2")
	b := Key(http.MethodGet, "/docs/page")
	if a != b {
		t.Fatalf("fragment changed key: %q vs %q", a, b)
	}
}

func TestKeyUppercasesMethod(t *testing.T) {
	if Key("get", "/x") != Key("GET", "/x") {
		t.Fatal("method casing changed key")
	}
}

func TestScopedKeyDistinguishesTenantAndLocale(t *testing.T) {
	base := ScopedKey(http.MethodGet, "/api/profile", "", "")
	tenant := ScopedKey(http.MethodGet, "/api/profile", "acme", "")
	locale := ScopedKey(http.MethodGet, "/api/profile", "acme", "de")

	if base == tenant || tenant == locale {
		t.Fatalf("scoped keys collide: %q %q %q", base, tenant, locale)
	}
	if base != Key(http.MethodGet, "/api/profile") {
		t.Fatalf("unscoped key %q differs from plain key", base)
	}
}
