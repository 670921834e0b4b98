package net

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	body, ct, err := Fetch(srv.URL + "/spec.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "[]" || ct != "application/json" {
		t.Errorf("got %q %q", body, ct)
	}

	if _, _, err := Fetch(srv.URL + "/missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestIsNetworkURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com/a.png", true},
		{"https://example.com/a.png", true},
		{"/tmp/a.png", false},
		{"data:image/png;base64,AA==", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsNetworkURL(tt.in); got != tt.want {
			t.Errorf("IsNetworkURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
