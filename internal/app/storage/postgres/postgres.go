// Package postgres implements the mutation store on PostgreSQL. The queue
// must survive process restarts with enqueue order intact, so ordering is
// carried by an explicit sequence column rather than insertion order.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
)

// Store persists pending mutations in the gateway_mutations table.
type Store struct {
	db *sqlx.DB
}

var _ storage.MutationStore = (*Store)(nil)

// New wraps an open connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres, verifies the connection and applies pending
// migrations.
func Open(dsn string, maxOpen, maxIdle int, connLifetime time.Duration) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if connLifetime > 0 {
		db.SetConnMaxLifetime(connLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type mutationRow struct {
	ID         string    `db:"id"`
	Seq        int64     `db:"seq"`
	OpKey      string    `db:"op_key"`
	Method     string    `db:"method"`
	Endpoint   string    `db:"endpoint"`
	Header     []byte    `db:"header"`
	Body       []byte    `db:"body"`
	EnqueuedAt time.Time `db:"enqueued_at"`
	Retries    int       `db:"retries"`
	State      string    `db:"state"`
}

func (r mutationRow) toDomain() (mutation.Pending, error) {
	m := mutation.Pending{
		ID:         r.ID,
		OpKey:      r.OpKey,
		Method:     r.Method,
		Endpoint:   r.Endpoint,
		Body:       r.Body,
		EnqueuedAt: r.EnqueuedAt,
		Retries:    r.Retries,
		State:      mutation.State(r.State),
	}
	if len(r.Header) > 0 {
		var header http.Header
		if err := json.Unmarshal(r.Header, &header); err != nil {
			return mutation.Pending{}, fmt.Errorf("decode mutation header: %w", err)
		}
		m.Header = header
	}
	return m, nil
}

func (s *Store) EnqueueMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}
	if m.State == "" {
		m.State = mutation.StatePending
	}

	headerJSON, err := json.Marshal(m.Header)
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("encode mutation header: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gateway_mutations (id, op_key, method, endpoint, header, body, enqueued_at, retries, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.OpKey, m.Method, m.Endpoint, headerJSON, m.Body, m.EnqueuedAt, m.Retries, string(m.State))
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("insert mutation: %w", err)
	}
	return m, nil
}

func (s *Store) ListPendingMutations(ctx context.Context) ([]mutation.Pending, error) {
	var rows []mutationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, seq, op_key, method, endpoint, header, body, enqueued_at, retries, state
		FROM gateway_mutations
		WHERE state = $1
		ORDER BY seq ASC
	`, string(mutation.StatePending))
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}

	out := make([]mutation.Pending, 0, len(rows))
	for _, r := range rows {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) UpdateMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	headerJSON, err := json.Marshal(m.Header)
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("encode mutation header: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE gateway_mutations
		SET op_key = $2, method = $3, endpoint = $4, header = $5, body = $6, retries = $7, state = $8
		WHERE id = $1
	`, m.ID, m.OpKey, m.Method, m.Endpoint, headerJSON, m.Body, m.Retries, string(m.State))
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("update mutation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mutation.Pending{}, fmt.Errorf("mutation %s not found", m.ID)
	}
	return m, nil
}

func (s *Store) DeleteMutation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gateway_mutations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete mutation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mutation %s not found", id)
	}
	return nil
}

func (s *Store) FindMutationByOpKey(ctx context.Context, opKey string) (mutation.Pending, bool, error) {
	if opKey == "" {
		return mutation.Pending{}, false, nil
	}

	var row mutationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, seq, op_key, method, endpoint, header, body, enqueued_at, retries, state
		FROM gateway_mutations
		WHERE op_key = $1 AND state = $2
		ORDER BY seq ASC
		LIMIT 1
	`, opKey, string(mutation.StatePending))
	if errors.Is(err, sql.ErrNoRows) {
		return mutation.Pending{}, false, nil
	}
	if err != nil {
		return mutation.Pending{}, false, fmt.Errorf("find mutation: %w", err)
	}

	m, err := row.toDomain()
	if err != nil {
		return mutation.Pending{}, false, err
	}
	return m, true, nil
}
