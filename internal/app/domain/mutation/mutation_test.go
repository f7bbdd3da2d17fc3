package mutation

import (
	"net/http"
	"testing"
)

func TestOperationKeyPrefersHeader(t *testing.T) {
	header := http.Header{}
	header.Set(OperationIDHeader, "op-from-header")

	key := OperationKey(header, []byte(`{"operationId":"op-from-body"}`))
	if key != "op-from-header" {
		t.Fatalf("key = %q, want header value", key)
	}
}

func TestOperationKeyFallsBackToBody(t *testing.T) {
	key := OperationKey(nil, []byte(`{"operationId":"op-9","data":{"x":1}}`))
	if key != "op-9" {
		t.Fatalf("key = %q, want op-9", key)
	}
}

func TestOperationKeyEmptyWithoutIdentity(t *testing.T) {
	if key := OperationKey(nil, []byte(`{"data":1}`)); key != "" {
		t.Fatalf("key = %q, want empty", key)
	}
	if key := OperationKey(http.Header{}, nil); key != "" {
		t.Fatalf("key = %q, want empty", key)
	}
}
