package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestEnqueueMutationInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO gateway_mutations").
		WithArgs(sqlmock.AnyArg(), "op-1", "POST", "/api/orders", sqlmock.AnyArg(), []byte(`{}`), sqlmock.AnyArg(), 0, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := store.EnqueueMutation(context.Background(), mutation.Pending{
		OpKey:    "op-1",
		Method:   "POST",
		Endpoint: "/api/orders",
		Body:     []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("EnqueueMutation: %v", err)
	}
	if m.ID == "" || m.State != mutation.StatePending || m.EnqueuedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", m)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListPendingMutationsOrdersBySeq(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "seq", "op_key", "method", "endpoint", "header", "body", "enqueued_at", "retries", "state"}
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, seq, op_key, method, endpoint, header, body, enqueued_at, retries, state").
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", 1, "", "POST", "/api/a", []byte(`{"X-K":["v"]}`), []byte(`{}`), now, 0, "pending").
			AddRow("b", 2, "", "POST", "/api/b", nil, []byte(`{}`), now, 1, "pending"))

	pending, err := store.ListPendingMutations(context.Background())
	if err != nil {
		t.Fatalf("ListPendingMutations: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "b" {
		t.Fatalf("pending = %+v, want a then b", pending)
	}
	if pending[0].Header.Get("X-K") != "v" {
		t.Fatalf("header not decoded: %+v", pending[0].Header)
	}
	if pending[1].Retries != 1 {
		t.Fatalf("retries = %d, want 1", pending[1].Retries)
	}
}

func TestUpdateMutationMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE gateway_mutations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := store.UpdateMutation(context.Background(), mutation.Pending{ID: "missing"}); err == nil {
		t.Fatal("update of missing mutation succeeded")
	}
}

func TestDeleteMutation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM gateway_mutations").
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.DeleteMutation(context.Background(), "a"); err != nil {
		t.Fatalf("DeleteMutation: %v", err)
	}

	mock.ExpectExec("DELETE FROM gateway_mutations").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteMutation(context.Background(), "gone"); err == nil {
		t.Fatal("delete of missing mutation succeeded")
	}
}

func TestFindMutationByOpKey(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "seq", "op_key", "method", "endpoint", "header", "body", "enqueued_at", "retries", "state"}
	mock.ExpectQuery("SELECT id, seq, op_key, method, endpoint, header, body, enqueued_at, retries, state").
		WithArgs("op-1", "pending").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a", 1, "op-1", "POST", "/api/a", nil, []byte(`{}`), time.Now(), 0, "pending"))

	m, ok, err := store.FindMutationByOpKey(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("FindMutationByOpKey: %v", err)
	}
	if !ok || m.ID != "a" {
		t.Fatalf("found = %v %+v, want a", ok, m)
	}

	// Empty op keys never touch the database.
	if _, ok, err := store.FindMutationByOpKey(context.Background(), ""); err != nil || ok {
		t.Fatalf("empty op key = (%v, %v), want no match", ok, err)
	}
}

func TestFindMutationByOpKeyNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "seq", "op_key", "method", "endpoint", "header", "body", "enqueued_at", "retries", "state"}
	mock.ExpectQuery("SELECT id, seq, op_key, method, endpoint, header, body, enqueued_at, retries, state").
		WithArgs("op-x", "pending").
		WillReturnRows(sqlmock.NewRows(cols))

	_, ok, err := store.FindMutationByOpKey(context.Background(), "op-x")
	if err != nil {
		t.Fatalf("FindMutationByOpKey: %v", err)
	}
	if ok {
		t.Fatal("no-rows query reported a match")
	}
}
