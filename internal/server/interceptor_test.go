package server

import (
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

func TestRequestIDFromHeader(t *testing.T) {
	req := connect.NewRequest(&CheckTextRequest{Text: "x"})
	req.Header().Set(requestIDHeader, "client-supplied-id")

	if got := requestID(req); got != "client-supplied-id" {
		t.Errorf("requestID = %q, want the header value", got)
	}
}

func TestRequestIDMintedWhenMissing(t *testing.T) {
	req := connect.NewRequest(&CheckTextRequest{Text: "x"})

	got := requestID(req)
	if got == "" {
		t.Fatal("requestID must never be empty")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("minted id %q is not a uuid: %v", got, err)
	}
}
