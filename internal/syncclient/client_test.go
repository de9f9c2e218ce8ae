package syncclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/netengine/netengine/internal/engine"
)

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	eng := engine.New(engine.Config{MaxRequestsCount: 4})
	defer eng.Deinitialize()

	var beforeCalled, afterCalled bool
	client := NewClient(eng, Config{
		BeforeSend:    func(req *engine.NetworkRequest) error { beforeCalled = true; return nil },
		AfterComplete: func(req *engine.NetworkRequest, resp engine.NetworkResponse) { afterCalled = true },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Do(ctx, engine.NetworkRequest{
		URL:    srv.URL,
		Method: engine.GET,
		Settings: engine.RequestSettings{
			ConnectTimeout:  2 * time.Second,
			TransferTimeout: 2 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result.Response.Status != 200 {
		t.Errorf("Status = %d, want 200", result.Response.Status)
	}
	if !beforeCalled {
		t.Error("BeforeSend hook was not called")
	}
	if !afterCalled {
		t.Error("AfterComplete hook was not called")
	}
}

func TestDoContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	eng := engine.New(engine.Config{MaxRequestsCount: 4})
	defer eng.Deinitialize()

	client := NewClient(eng, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, engine.NetworkRequest{
		URL:    srv.URL,
		Method: engine.GET,
		Settings: engine.RequestSettings{
			ConnectTimeout:  2 * time.Second,
			TransferTimeout: 2 * time.Second,
		},
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
