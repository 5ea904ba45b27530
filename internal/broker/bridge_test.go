package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testCreds() Credentials {
	return Credentials{Server: "demo.broker.com", Login: "12345", Secret: "s3cret"}
}

func TestPingStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"ok", http.StatusOK, nil},
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed},
		{"forbidden", http.StatusForbidden, ErrAuthFailed},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"unavailable", http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/ping/12345" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer s3cret" {
					t.Error("missing bearer secret")
				}
				if r.Header.Get("X-Broker-Server") != "demo.broker.com" {
					t.Error("missing server header")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewBridgeClient(srv.URL, time.Second)
			err := client.Ping(context.Background(), testCreds())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Ping error = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Ping error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPingUnreachableBridge(t *testing.T) {
	client := NewBridgeClient("http://127.0.0.1:1", 200*time.Millisecond)
	if err := client.Ping(context.Background(), testCreds()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping error = %v, want ErrUnavailable", err)
	}
}

func TestGetDeals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/history/12345" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("from") == "" || r.URL.Query().Get("to") == "" {
			t.Error("missing window bounds")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"ticket":101,"symbol":"EURUSD","type":"buy","volume":0.5,"price":1.08,"profit":3.2},
			{"deal_id":"102","symbol":"GBPUSD","side":"sell","lots":1.0,"close":1.27,"pnl":-1.1}
		]`))
	}))
	defer srv.Close()

	client := NewBridgeClient(srv.URL, time.Second)
	to := time.Now()
	deals, err := client.GetDeals(context.Background(), testCreds(), to.Add(-24*time.Hour), to)
	if err != nil {
		t.Fatalf("GetDeals: %v", err)
	}
	if len(deals) != 2 {
		t.Fatalf("got %d deals, want 2", len(deals))
	}
	if deals[0].DealID != "101" || deals[1].DealID != "102" {
		t.Errorf("deal ids = %q, %q", deals[0].DealID, deals[1].DealID)
	}
	if deals[1].Volume != 1.0 || deals[1].Profit != -1.1 {
		t.Errorf("aliased fields not decoded: %+v", deals[1])
	}
}

func TestGetDealsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	client := NewBridgeClient(srv.URL, time.Second)
	if _, err := client.GetDeals(context.Background(), testCreds(), time.Now().Add(-time.Hour), time.Now()); err == nil {
		t.Error("expected a decode error")
	}
}

func TestValidateConnectionRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewBridgeClient(srv.URL, time.Second)
	if err := client.ValidateConnection(context.Background(), testCreds(), 5); err != nil {
		t.Errorf("ValidateConnection: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("bridge calls = %d, want 3", calls)
	}
}

func TestValidateConnectionStopsOnAuthFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewBridgeClient(srv.URL, time.Second)
	if err := client.ValidateConnection(context.Background(), testCreds(), 5); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("ValidateConnection error = %v, want ErrAuthFailed", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("bridge calls = %d, want 1 (no retry on auth failure)", calls)
	}
}
