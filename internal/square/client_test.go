package square

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSetsVersionAndAuthHeaders(t *testing.T) {
	var gotVersion, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("Square-Version")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"locations":[{"id":"L1"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "2023-10-18", nil)
	locations, err := client.Locations(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("Locations: %v", err)
	}
	if gotVersion != "2023-10-18" {
		t.Errorf("Square-Version = %q, want 2023-10-18", gotVersion)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if len(locations) != 1 || locations[0].ID != "L1" {
		t.Errorf("locations = %+v, want one location L1", locations)
	}
}

func TestClientUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "2023-10-18", nil)
	_, err := client.Locations(context.Background(), "expired")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestClientPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "2023-10-18", nil)
	_, err := client.SearchInvoices(context.Background(), "token", SearchInvoicesRequest{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestClientServerErrorIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "2023-10-18", nil)
	_, err := client.Locations(context.Background(), "token")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", statusErr.StatusCode)
	}
}

func TestClientTransportErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := NewClient(srv.URL, "2023-10-18", nil)
	_, err := client.Locations(context.Background(), "token")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}

func TestRefreshKeepsOldRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"new-access","merchant_id":"M1"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "2023-10-18", nil)
	grant, err := client.Refresh(context.Background(), OAuthConfig{ClientID: "app"}, "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if grant.AccessToken != "new-access" {
		t.Errorf("access token = %q", grant.AccessToken)
	}
	if grant.RefreshToken != "old-refresh" {
		t.Errorf("refresh token = %q, want the old one carried forward", grant.RefreshToken)
	}
}
