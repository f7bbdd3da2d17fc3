// Package app composes the gateway services into a running application.
//
// The package sits above the domain and storage layers and is responsible
// for wiring, not business logic:
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── cache/          # Cache entries and key canonicalisation
//	│   ├── mutation/       # Pending mutations awaiting replay
//	│   ├── profile/        # Environment profile and delivery policy
//	│   └── resource/       # Resource domains and delivery policies
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # CacheStore and MutationStore
//	│   ├── memory/         # In-memory implementation for tests
//	│   ├── redis/          # Redis-backed durable store
//	│   └── postgres/       # PostgreSQL-backed mutation store
//	├── services/           # Gateway services (mediator, syncqueue, ...)
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Lifecycle management
//	└── metrics/            # Prometheus collectors
//
// Request handling belongs in httpapi, mediation policy in
// services/mediator, and persistence behind the storage interfaces.
package app
