package farcaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"castgate/auth-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIBaseURL:   srv.URL,
		RelayBaseURL: srv.URL,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
	})
}

func TestVerifySignInMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/signin/verify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nonce-1", body["nonce"])

		json.NewEncoder(w).Encode(map[string]any{"success": true, "fid": 42})
	})

	client := testClient(t, mux)

	fid, err := client.VerifySignInMessage(context.Background(), "msg", "0xsig", "nonce-1")
	require.NoError(t, err)
	assert.EqualValues(t, 42, fid)
}

func TestVerifySignInMessageRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/signin/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	})

	client := testClient(t, mux)

	_, err := client.VerifySignInMessage(context.Background(), "msg", "0xforged", "nonce-1")
	assert.Error(t, err)
}

func TestChannelLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/channel", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"channelToken": "chan-1",
			"url":          "https://example.com/siwf/chan-1",
		})
	})
	mux.HandleFunc("GET /v1/channel/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer chan-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"state":     "completed",
			"fid":       7,
			"message":   "m",
			"signature": "s",
		})
	})

	client := testClient(t, mux)

	channel, err := client.CreateChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chan-1", channel.Token)

	status, err := client.ChannelStatus(context.Background(), channel.Token)
	require.NoError(t, err)
	assert.Equal(t, service.ChannelStateCompleted, status.State)
	assert.EqualValues(t, 7, status.FID)
}

func TestSignerEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/signer", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"signer_uuid": "uuid-1",
			"public_key":  "0xabc",
			"status":      "generated",
		})
	})
	mux.HandleFunc("POST /v2/signer/signed_key", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "uuid-1", body["signer_uuid"])
		assert.NotEmpty(t, body["signature"])

		json.NewEncoder(w).Encode(map[string]any{
			"signer_uuid":         "uuid-1",
			"status":              "pending_approval",
			"signer_approval_url": "https://example.com/approve/uuid-1",
		})
	})
	mux.HandleFunc("GET /v2/signer", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "uuid-1", r.URL.Query().Get("signer_uuid"))

		json.NewEncoder(w).Encode(map[string]any{
			"signer_uuid": "uuid-1",
			"status":      "approved",
			"fid":         4242,
		})
	})

	client := testClient(t, mux)
	ctx := context.Background()

	created, err := client.CreateSigner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", created.SignerUUID)

	registered, err := client.RegisterSignedKey(ctx, service.SignedKeyRequest{
		SignerUUID: "uuid-1",
		AppFID:     1000,
		Deadline:   time.Now().Add(24 * time.Hour),
		Signature:  "0xsig",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/approve/uuid-1", registered.ApprovalURL)

	status, err := client.SignerStatus(ctx, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, service.SignerStateApproved, status.Status)
	assert.EqualValues(t, 4242, status.FID)
}

func TestSignerStatusEscapesQuery(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/signer", func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("signer_uuid")
		json.NewEncoder(w).Encode(map[string]any{"signer_uuid": got, "status": "generated"})
	})

	client := testClient(t, mux)

	// A hostile or malformed UUID must stay inside its query parameter
	_, err := client.SignerStatus(context.Background(), "uuid 1&status=approved")
	require.NoError(t, err)
	assert.Equal(t, "uuid 1&status=approved", got)
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})

	client := testClient(t, mux)

	_, err := client.CreateSigner(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
