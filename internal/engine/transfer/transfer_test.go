package transfer

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAttachDeliversCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(false, nil, nil)
	h := c.NewHandle()

	httpReq, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	var gotHeaders bool
	var gotChunk []byte
	c.Attach(h, Request{
		SlotIndex: 1,
		HTTPReq:   httpReq,
		Timeout:   2 * time.Second,
		OnHeaders: func(statusCode int, header http.Header) { gotHeaders = statusCode == 200 },
		OnChunk:   func(p []byte) error { gotChunk = append(gotChunk, p...); return nil },
	})

	select {
	case comp := <-c.Completions():
		if comp.SlotIndex != 1 {
			t.Errorf("SlotIndex = %d, want 1", comp.SlotIndex)
		}
		if comp.Result.Err != nil {
			t.Errorf("Result.Err = %v, want nil", comp.Result.Err)
		}
		if comp.Result.StatusCode != 200 {
			t.Errorf("StatusCode = %d, want 200", comp.Result.StatusCode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no completion received")
	}

	if !gotHeaders {
		t.Error("OnHeaders was not invoked with status 200")
	}
	if string(gotChunk) != "ok" {
		t.Errorf("OnChunk assembled %q, want %q", gotChunk, "ok")
	}
}

func TestDetachCancelsInFlightTransfer(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(block)
	}))
	defer srv.Close()

	c := NewClient(false, nil, nil)
	h := c.NewHandle()

	httpReq, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	c.Attach(h, Request{SlotIndex: 2, HTTPReq: httpReq, Timeout: 10 * time.Second})

	if !c.IsPending(2) {
		t.Fatal("expected slot 2 to be pending immediately after Attach")
	}

	c.Detach(2)

	select {
	case comp := <-c.Completions():
		if comp.Result.Err == nil {
			t.Error("expected a non-nil error after Detach")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no completion received after Detach")
	}
}
