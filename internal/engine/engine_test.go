package engine

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForResponse(t *testing.T, ch chan NetworkResponse) NetworkResponse {
	t.Helper()
	select {
	case resp := <-ch:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
		return NetworkResponse{}
	}
}

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	e := New(Config{MaxRequestsCount: 4})
	defer e.Deinitialize()

	done := make(chan NetworkResponse, 1)
	var headerSeen int32
	outcome := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  time.Second,
				TransferTimeout: time.Second,
			},
		},
		nil,
		func(resp NetworkResponse) { done <- resp },
		func(key, value string) {
			if key == "Etag" {
				atomic.StoreInt32(&headerSeen, 1)
			}
		},
		nil,
	)
	require.True(t, outcome.OK())

	resp := waitForResponse(t, done)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, outcome.RequestID, resp.RequestID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&headerSeen))
}

func TestSendRetriesServerErrorThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := New(Config{MaxRequestsCount: 4})
	defer e.Deinitialize()

	done := make(chan NetworkResponse, 1)
	outcome := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  time.Second,
				TransferTimeout: time.Second,
				MaxRetries:      3,
			},
		},
		nil,
		func(resp NetworkResponse) { done <- resp },
		nil, nil,
	)
	require.True(t, outcome.OK())

	resp := waitForResponse(t, done)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSendTimeoutIsNotRetried(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	e := New(Config{MaxRequestsCount: 4})
	defer e.Deinitialize()

	done := make(chan NetworkResponse, 1)
	outcome := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  50 * time.Millisecond,
				TransferTimeout: 50 * time.Millisecond,
				MaxRetries:      5,
			},
		},
		nil,
		func(resp NetworkResponse) { done <- resp },
		nil, nil,
	)
	require.True(t, outcome.OK())

	resp := waitForResponse(t, done)
	assert.NotEqual(t, 200, resp.Status)
	assert.Contains(t, resp.Error, "timed out")
}

func TestCancelReportsCancelledStatus(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	defer close(block)

	e := New(Config{MaxRequestsCount: 4})
	defer e.Deinitialize()

	done := make(chan NetworkResponse, 1)
	outcome := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  5 * time.Second,
				TransferTimeout: 5 * time.Second,
			},
		},
		nil,
		func(resp NetworkResponse) { done <- resp },
		nil, nil,
	)
	require.True(t, outcome.OK())

	// Give the worker a moment to attach the transfer before cancelling.
	time.Sleep(50 * time.Millisecond)
	e.Cancel(outcome.RequestID)

	resp := waitForResponse(t, done)
	assert.Equal(t, statusCancelled, resp.Status)
}

func TestSendReportsOverloadWhenPoolExhausted(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()

	e := New(Config{MaxRequestsCount: 1})
	defer e.Deinitialize()

	var wg sync.WaitGroup
	wg.Add(1)
	outcome1 := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  2 * time.Second,
				TransferTimeout: 2 * time.Second,
			},
		},
		nil,
		func(resp NetworkResponse) { wg.Done() },
		nil, nil,
	)
	require.True(t, outcome1.OK())

	outcome2 := e.Send(
		NetworkRequest{URL: srv.URL, Method: GET},
		nil, nil, nil, nil,
	)
	assert.Equal(t, ErrNetworkOverload, outcome2.Err)

	close(block)
	wg.Wait()
}

func TestDeinitializeDeliversOfflineToPendingHandles(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	defer close(block)

	e := New(Config{MaxRequestsCount: 4})

	done := make(chan NetworkResponse, 1)
	outcome := e.Send(
		NetworkRequest{
			URL:    srv.URL,
			Method: GET,
			Settings: RequestSettings{
				ConnectTimeout:  5 * time.Second,
				TransferTimeout: 5 * time.Second,
			},
		},
		nil,
		func(resp NetworkResponse) { done <- resp },
		nil, nil,
	)
	require.True(t, outcome.OK())

	time.Sleep(50 * time.Millisecond)
	e.Deinitialize()

	resp := waitForResponse(t, done)
	assert.Equal(t, offlineMessage, resp.Error)
}
