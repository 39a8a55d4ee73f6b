// Package syncapi is the HTTP client for the remote sync server. Every call
// is stateless: the endpoint (base URL, credentials, current bearer token)
// is passed in, and all failures are normalized into the *Error taxonomy.
package syncapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phoenixotp/phoenix/internal/models"
)

const defaultTimeout = 30 * time.Second

// tokenSkew re-authenticates slightly before the held token actually
// expires, so a token that is valid now does not die mid-pass.
const tokenSkew = 30 * time.Second

// Options configures the transport.
type Options struct {
	// Timeout bounds each request. Zero means defaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate validation, for
	// self-hosted endpoints with self-signed certificates.
	InsecureSkipVerify bool
}

type Client struct {
	http *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Authenticate returns a bearer token for the endpoint. A token already held
// on the endpoint is reused if its exp claim (inspected without signature
// verification; the server is the verifier) has not passed.
func (c *Client) Authenticate(ctx context.Context, endpoint *models.SyncAccount) (string, error) {
	if endpoint.Token != "" && !tokenExpired(endpoint.Token) {
		return endpoint.Token, nil
	}

	body := map[string]string{
		"username": endpoint.Username,
		"password": endpoint.Password,
	}

	data, err := c.do(ctx, http.MethodPost, endpoint.URL+"/api/login_check", "", body)
	if err != nil {
		return "", err
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil || tr.Token == "" {
		return "", decodeError()
	}
	return tr.Token, nil
}

// FetchManifest returns the full list of record identities and update
// timestamps the remote currently holds.
func (c *Client) FetchManifest(ctx context.Context, endpoint *models.SyncAccount) ([]ManifestEntry, error) {
	data, err := c.do(ctx, http.MethodGet, endpoint.URL+"/api/records/manifest", endpoint.Token, nil)
	if err != nil {
		return nil, err
	}

	var mr manifestResponse
	if err := json.Unmarshal(data, &mr); err != nil || mr.Data == nil {
		return nil, decodeError()
	}
	return mr.Data, nil
}

// PushRecord creates a new remote record and returns its identity triple.
func (c *Client) PushRecord(ctx context.Context, endpoint *models.SyncAccount, payload RecordPayload) (*Record, error) {
	data, err := c.do(ctx, http.MethodPost, endpoint.URL+"/api/records", endpoint.Token, payload)
	if err != nil {
		return nil, err
	}

	var rr recordResponse
	if err := json.Unmarshal(data, &rr); err != nil || rr.Data.ID == 0 {
		return nil, decodeError()
	}
	return &rr.Data, nil
}

// PullRecord fetches the full payload of one remote record.
func (c *Client) PullRecord(ctx context.Context, endpoint *models.SyncAccount, externalID int64) (*VerboseRecord, error) {
	url := fmt.Sprintf("%s/api/records/%d", endpoint.URL, externalID)
	data, err := c.do(ctx, http.MethodGet, url, endpoint.Token, nil)
	if err != nil {
		return nil, err
	}

	var vr verboseRecordResponse
	if err := json.Unmarshal(data, &vr); err != nil || vr.Data.ID == 0 {
		return nil, decodeError()
	}
	return &vr.Data, nil
}

// ReplaceRecord overwrites a remote record in full. externalID comes from
// the local row's remote link; a nil link is a MissingLink error, never a
// network call.
func (c *Client) ReplaceRecord(ctx context.Context, endpoint *models.SyncAccount, externalID *int64, payload RecordPayload) (*Record, error) {
	if externalID == nil {
		return nil, ErrMissingExternalID
	}

	url := fmt.Sprintf("%s/api/records/%d", endpoint.URL, *externalID)
	data, err := c.do(ctx, http.MethodPut, url, endpoint.Token, payload)
	if err != nil {
		return nil, err
	}

	var rr recordResponse
	if err := json.Unmarshal(data, &rr); err != nil || rr.Data.ID == 0 {
		return nil, decodeError()
	}
	return &rr.Data, nil
}

// DeleteRecord asks the remote to delete a record. Any 2xx is success.
func (c *Client) DeleteRecord(ctx context.Context, endpoint *models.SyncAccount, externalID int64) error {
	url := fmt.Sprintf("%s/api/records/%d", endpoint.URL, externalID)
	_, err := c.do(ctx, http.MethodDelete, url, endpoint.Token, nil)
	return err
}

// do performs one request and returns the raw 2xx body. Failures come back
// as *Error: transport problems with status "0", non-2xx responses with the
// HTTP status text.
func (c *Client) do(ctx context.Context, method, url, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, transportError("issue with request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, transportError("could not build request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, transportError("request timed out")
		}
		return nil, transportError("connection could not be made")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("could not read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(resp.Status)
	}

	return data, nil
}

func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		// no exp claim; let the server decide
		return false
	}
	return exp.Before(time.Now().Add(tokenSkew))
}
