package mqtt

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/vaxcal/auth"
)

func TestOAuthCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"broker-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	opts, err := NewClientOptions(Config{
		Broker:     "tcp://localhost:1883",
		ClientID:   "vaxcal",
		Username:   "svc",
		AuthMethod: "oauth2",
		OAuth:      auth.Conf{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.CredentialsProvider == nil {
		t.Fatal("credentials provider not set")
	}
	user, pass := opts.CredentialsProvider()
	if user != "svc" || pass != "broker-token" {
		t.Fatalf("unexpected credentials %q/%q", user, pass)
	}
}

func TestOAuthRequiresConfig(t *testing.T) {
	_, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", AuthMethod: "oauth2"})
	if err == nil {
		t.Fatal("expected error for missing oauth config")
	}
}
