package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/testutil"
)

func bundleFor(client testutil.ClientCertificate, uat bool) credentials.Bundle {
	return credentials.Bundle{
		CertificatePEM:     client.CertificatePEM,
		PrivateKeyPEM:      client.PrivateKeyPEM,
		EncryptionKey:      testutil.EncryptionKey(),
		UseTestEnvironment: uat,
	}
}

func TestSendPresentsClientCertificate(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)
	srv := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		if len(r.TLS.PeerCertificates) == 0 || r.TLS.PeerCertificates[0].Subject.CommonName != "training-provider" {
			t.Errorf("Expected client certificate for training-provider")
		}
		if r.Header.Get("Accept") != ContentTypeJSON {
			t.Errorf("Expected Accept %q, got %q", ContentTypeJSON, r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":0,"body":"abc"}`))
	})

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})
	resp, err := c.Send(context.Background(), bundleFor(client, false), Request{Method: http.MethodGet, Path: "/ping"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	code, ok := resp.ResultCode()
	if !ok || code != 0 {
		t.Errorf("Expected result code 0, got %d (ok=%v)", code, ok)
	}
	if string(resp.Body()) != `"abc"` {
		t.Errorf("Unexpected body: %s", resp.Body())
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestSendRoutesByEnvironment(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)

	var prodHits, uatHits atomic.Int32
	prod := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		prodHits.Add(1)
		_, _ = w.Write([]byte(`{"result":0}`))
	})
	uat := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		uatHits.Add(1)
		_, _ = w.Write([]byte(`{"result":0}`))
	})

	c := New(Config{ProductionURL: prod.URL, TestURL: uat.URL, RootCAs: testutil.ServerPool(prod, uat)})

	if _, err := c.Send(context.Background(), bundleFor(client, true), Request{Method: http.MethodPost, Path: "/x"}); err != nil {
		t.Fatalf("Send to UAT failed: %v", err)
	}
	if _, err := c.Send(context.Background(), bundleFor(client, false), Request{Method: http.MethodPost, Path: "/x"}); err != nil {
		t.Fatalf("Send to production failed: %v", err)
	}

	if uatHits.Load() != 1 || prodHits.Load() != 1 {
		t.Errorf("Expected one hit each, got uat=%d production=%d", uatHits.Load(), prodHits.Load())
	}
}

func TestBaseURLDefaults(t *testing.T) {
	c := New(Config{})
	if got := c.BaseURL(true); got != "https://uat-api.ssg-wsg.sg" {
		t.Errorf("Unexpected UAT URL %q", got)
	}
	if got := c.BaseURL(false); got != "https://api.ssg-wsg.sg" {
		t.Errorf("Unexpected production URL %q", got)
	}
}

func TestSendWithoutBodyOmitsIt(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)
	srv := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if len(data) != 0 {
			t.Errorf("Expected empty body, got %q", data)
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("Expected no Content-Type, got %q", ct)
		}
		_, _ = w.Write([]byte(`{"result":0}`))
	})

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})
	if _, err := c.Send(context.Background(), bundleFor(client, false), Request{Method: http.MethodPost, Path: "/x"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestSendBodyAndQuery(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)
	srv := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/skillsFutureCredits/claims/encryptRequests" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("Expected page=2, got %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != ContentTypeText {
			t.Errorf("Expected Content-Type %q, got %q", ContentTypeText, ct)
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != "Y2lwaGVydGV4dA==" {
			t.Errorf("Unexpected body %q", data)
		}
		_, _ = w.Write([]byte(`{"result":0}`))
	})

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})
	_, err := c.Send(context.Background(), bundleFor(client, false), Request{
		Method:      http.MethodPost,
		Path:        "skillsFutureCredits/claims/encryptRequests",
		Query:       map[string]string{"page": "2"},
		Body:        []byte("Y2lwaGVydGV4dA=="),
		ContentType: ContentTypeText,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestSendFailures(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "Forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "Not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "JSON array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[1,2,3]`))
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewMTLSServer(t, client, tt.handler)
			c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})

			_, err := c.Send(context.Background(), bundleFor(client, false), Request{Method: http.MethodPost, Path: "/x"})
			if !errors.Is(err, kerrors.ErrTransport) {
				t.Fatalf("Expected ErrTransport, got %v", err)
			}
			var tErr *kerrors.TransportError
			if !errors.As(err, &tErr) {
				t.Fatalf("Expected *TransportError, got %T", err)
			}
			if tErr.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, tErr.StatusCode)
			}
			if tErr.Timeout {
				t.Errorf("Expected Timeout=false")
			}
		})
	}
}

func TestSendTimeout(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)
	srv := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv), Timeout: 100 * time.Millisecond})
	_, err := c.Send(context.Background(), bundleFor(client, false), Request{Method: http.MethodGet, Path: "/slow"})
	if !errors.Is(err, kerrors.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, kerrors.ErrTransport) {
		t.Errorf("Expected timeout to also be a transport error")
	}
}

func TestSendContextDeadline(t *testing.T) {
	client := testutil.NewClientCertificate(t, "training-provider", time.Hour)
	srv := testutil.NewMTLSServer(t, client, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})
	_, err := c.Send(ctx, bundleFor(client, false), Request{Method: http.MethodGet, Path: "/slow"})
	if !errors.Is(err, kerrors.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
}

func TestSendRejectedClientCertificate(t *testing.T) {
	trusted := testutil.NewClientCertificate(t, "trusted", time.Hour)
	untrusted := testutil.NewClientCertificate(t, "untrusted", time.Hour)
	srv := testutil.NewMTLSServer(t, trusted, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":0}`))
	})

	c := New(Config{ProductionURL: srv.URL, RootCAs: testutil.ServerPool(srv)})
	_, err := c.Send(context.Background(), bundleFor(untrusted, false), Request{Method: http.MethodGet, Path: "/x"})
	if !errors.Is(err, kerrors.ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
}

func TestSendInvalidBundle(t *testing.T) {
	a := testutil.NewClientCertificate(t, "a", time.Hour)
	b := testutil.NewClientCertificate(t, "b", time.Hour)
	bundle := credentials.Bundle{CertificatePEM: a.CertificatePEM, PrivateKeyPEM: b.PrivateKeyPEM}

	_, err := New(Config{}).Send(context.Background(), bundle, Request{Method: http.MethodGet, Path: "/x"})
	if !errors.Is(err, kerrors.ErrCertificateMismatch) {
		t.Fatalf("Expected ErrCertificateMismatch, got %v", err)
	}
	if !errors.Is(err, kerrors.ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestResultCode(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantCode int
		wantOK   bool
	}{
		{"Zero", `{"result":0}`, 0, true},
		{"Domain error", `{"result":4001}`, 4001, true},
		{"Missing", `{"body":"x"}`, 0, false},
		{"Not a number", `{"result":"ok"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Payload: mustPayload(t, tt.payload)}
			code, ok := resp.ResultCode()
			if code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("Expected (%d, %v), got (%d, %v)", tt.wantCode, tt.wantOK, code, ok)
			}
		})
	}
}
