package security

import (
	"crypto/tls"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestTLSConfig_Build_Disabled(t *testing.T) {
	var nilCfg *TLSConfig
	for name, cfg := range map[string]*TLSConfig{"nil": nilCfg, "zero": {}} {
		got, err := cfg.Build()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got != nil {
			t.Errorf("%s: expected nil tls.Config", name)
		}
	}
}

func TestTLSConfig_Build_SkipVerify(t *testing.T) {
	cfg := &TLSConfig{SkipVerify: true, ServerName: "api.groq.com"}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify")
	}
	if got.ServerName != "api.groq.com" {
		t.Errorf("ServerName = %q", got.ServerName)
	}
	if got.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", got.MinVersion)
	}
}

func TestTLSConfig_SkipVerifyReachesSelfSignedServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	get := func(cfg *TLSConfig) error {
		tlsCfg, err := cfg.Build()
		if err != nil {
			return err
		}
		client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}
		resp, err := client.Get(srv.URL)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}

	if err := get(&TLSConfig{MinVersion: tls.VersionTLS12}); err == nil {
		t.Fatal("expected verification failure without skip_verify")
	}
	if err := get(&TLSConfig{SkipVerify: true}); err != nil {
		t.Fatalf("skip_verify request failed: %v", err)
	}
}

func TestTLSConfig_Build_CAFile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "ca.pem")
	block := &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := (&TLSConfig{CAFile: path}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RootCAs == nil {
		t.Fatal("expected RootCAs to be populated")
	}
}

func TestTLSConfig_Build_BadFiles(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  TLSConfig
	}{
		{"missing ca", TLSConfig{CAFile: filepath.Join(dir, "missing.pem")}},
		{"garbage ca", TLSConfig{CAFile: garbage}},
		{"bad keypair", TLSConfig{CertFile: garbage, KeyFile: garbage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	var nilCfg *TLSConfig
	if err := nilCfg.Validate(); err != nil {
		t.Errorf("nil config: %v", err)
	}
	if err := (&TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}).Validate(); err != nil {
		t.Errorf("paired cert/key: %v", err)
	}
	if err := (&TLSConfig{CertFile: "c.pem"}).Validate(); err == nil {
		t.Error("expected error for cert without key")
	}
}
