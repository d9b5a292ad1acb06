package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"castgate/auth-api/internal/service"
)

// Config wires the client to a concrete provider deployment. Values come from
// the application config.
type Config struct {
	// APIBaseURL is the managed-signer and verification API.
	APIBaseURL string
	// RelayBaseURL is the hosted sign-in relay.
	RelayBaseURL string
	APIKey       string
	// Timeout bounds every outbound call.
	Timeout time.Duration
}

// Client talks to the Farcaster provider over HTTP. It implements the
// service.SignatureVerifier, service.ChannelProvider and
// service.SigningProvider collaborator interfaces.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body, %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request, %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed, %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s, %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response from %s, %w", endpoint, err)
		}
	}

	return nil
}

// VerifySignInMessage asks the provider to validate a signed SIWF message
// against its nonce and returns the signing FID.
func (c *Client) VerifySignInMessage(ctx context.Context, message, signature, nonce string) (uint64, error) {
	body := map[string]string{
		"message":   message,
		"signature": signature,
		"nonce":     nonce,
	}

	var res struct {
		Success bool   `json:"success"`
		FID     uint64 `json:"fid"`
	}

	err := c.do(ctx, http.MethodPost, c.cfg.APIBaseURL+"/v1/signin/verify", body, &res, nil)
	if err != nil {
		return 0, err
	}

	if !res.Success || res.FID == 0 {
		return 0, fmt.Errorf("verifier rejected the signed message")
	}

	return res.FID, nil
}

// CreateChannel opens a hosted sign-in channel on the relay.
func (c *Client) CreateChannel(ctx context.Context) (*service.Channel, error) {
	var res struct {
		ChannelToken string `json:"channelToken"`
		URL          string `json:"url"`
	}

	err := c.do(ctx, http.MethodPost, c.cfg.RelayBaseURL+"/v1/channel", map[string]any{}, &res, nil)
	if err != nil {
		return nil, err
	}

	if res.ChannelToken == "" {
		return nil, fmt.Errorf("relay returned an empty channel token")
	}

	return &service.Channel{Token: res.ChannelToken, URL: res.URL}, nil
}

// ChannelStatus polls a channel once. The relay authenticates the poll with
// the channel token itself.
func (c *Client) ChannelStatus(ctx context.Context, token string) (*service.ChannelStatus, error) {
	var res struct {
		State     string `json:"state"`
		FID       uint64 `json:"fid"`
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}

	headers := map[string]string{"Authorization": "Bearer " + token}

	err := c.do(ctx, http.MethodGet, c.cfg.RelayBaseURL+"/v1/channel/status", nil, &res, headers)
	if err != nil {
		return nil, err
	}

	return &service.ChannelStatus{
		State:     res.State,
		FID:       res.FID,
		Message:   res.Message,
		Signature: res.Signature,
	}, nil
}

type rawSignerResponse struct {
	SignerUUID        string `json:"signer_uuid"`
	PublicKey         string `json:"public_key"`
	Status            string `json:"status"`
	FID               uint64 `json:"fid"`
	SignerApprovalURL string `json:"signer_approval_url"`
}

func (r rawSignerResponse) toService() *service.RawSigner {
	return &service.RawSigner{
		SignerUUID:  r.SignerUUID,
		PublicKey:   r.PublicKey,
		Status:      r.Status,
		FID:         r.FID,
		ApprovalURL: r.SignerApprovalURL,
	}
}

// CreateSigner has the provider allocate a fresh delegated keypair.
func (c *Client) CreateSigner(ctx context.Context) (*service.RawSigner, error) {
	var res rawSignerResponse

	err := c.do(ctx, http.MethodPost, c.cfg.APIBaseURL+"/v2/signer", map[string]any{}, &res, nil)
	if err != nil {
		return nil, err
	}

	if res.SignerUUID == "" || res.PublicKey == "" {
		return nil, fmt.Errorf("provider returned an incomplete signer")
	}

	return res.toService(), nil
}

// RegisterSignedKey submits the app's EIP-712 authorization. The registration
// is fee-sponsored, so the end user never pays for the on-chain add.
func (c *Client) RegisterSignedKey(ctx context.Context, req service.SignedKeyRequest) (*service.RawSigner, error) {
	body := map[string]any{
		"signer_uuid": req.SignerUUID,
		"app_fid":     req.AppFID,
		"deadline":    req.Deadline.Unix(),
		"signature":   req.Signature,
		"sponsor": map[string]any{
			"sponsored_by_provider": true,
		},
	}

	var res rawSignerResponse

	err := c.do(ctx, http.MethodPost, c.cfg.APIBaseURL+"/v2/signer/signed_key", body, &res, nil)
	if err != nil {
		return nil, err
	}

	if res.SignerApprovalURL == "" {
		return nil, fmt.Errorf("provider returned no approval url")
	}

	return res.toService(), nil
}

// SignerStatus fetches the provider's live view of a signer.
func (c *Client) SignerStatus(ctx context.Context, signerUUID string) (*service.RawSigner, error) {
	var res rawSignerResponse

	query := url.Values{"signer_uuid": {signerUUID}}
	endpoint := c.cfg.APIBaseURL + "/v2/signer?" + query.Encode()

	if err := c.do(ctx, http.MethodGet, endpoint, nil, &res, nil); err != nil {
		return nil, err
	}

	return res.toService(), nil
}
