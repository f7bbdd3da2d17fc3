package cachestore

import (
	"context"
	"testing"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/resource"
	"github.com/R3E-Network/offline_gateway/internal/app/storage/memory"
)

func TestActiveNamesAreVersionStamped(t *testing.T) {
	svc := New(memory.New(), 3, nil)

	names := svc.ActiveNames()
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2", names)
	}
	if names[0] != "static-v3" || names[1] != "api-v3" {
		t.Fatalf("names = %v, want [static-v3 api-v3]", names)
	}
}

func TestVersionUpgradePurgesOldDomains(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	v1 := New(store, 1, nil)
	if err := v1.Open(ctx); err != nil {
		t.Fatalf("open v1: %v", err)
	}
	if err := v1.Put(ctx, resource.DomainStatic, "GET /app.js", cache.Entry{Status: 200}); err != nil {
		t.Fatalf("put v1: %v", err)
	}

	v2 := New(store, 2, nil)
	if err := v2.Open(ctx); err != nil {
		t.Fatalf("open v2: %v", err)
	}
	if err := v2.DeleteDomainsExcept(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}

	names, _ := store.ListDomains(ctx)
	if len(names) != 2 || names[0] != "api-v2" || names[1] != "static-v2" {
		t.Fatalf("domains after purge = %v, want [api-v2 static-v2]", names)
	}

	// v1 entries are gone; the purge is idempotent.
	if _, ok, _ := store.GetEntry(ctx, "static-v1", "GET /app.js"); ok {
		t.Fatal("v1 entry survived purge")
	}
	if err := v2.DeleteDomainsExcept(ctx); err != nil {
		t.Fatalf("repeat purge: %v", err)
	}
}

func TestGetMissesAcrossVersions(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	v1 := New(store, 1, nil)
	_ = v1.Open(ctx)
	_ = v1.Put(ctx, resource.DomainAPI, "GET /api/items", cache.Entry{Status: 200, Body: []byte("old")})

	v2 := New(store, 2, nil)
	_ = v2.Open(ctx)

	if _, ok, _ := v2.Get(ctx, resource.DomainAPI, "GET /api/items"); ok {
		t.Fatal("v2 read hit a v1 entry")
	}
}
