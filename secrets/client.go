// Package secrets reads the store authorization key from the secret vault.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/version"
)

var (
	ErrAccessDenied   = errors.New("secret access denied")
	ErrSecretNotFound = errors.New("secret not found")
	ErrInvalidSecret  = errors.New("invalid secret")
)

type secretBundle struct {
	Value string `json:"value"`
	ID    string `json:"id"`
}

type Client struct {
	conf *Conf
	http *retryablehttp.Client
	log  *conf.Log
}

func NewClient(cfg *Conf) *Client {
	log := conf.NewLog().With("type", "vault")
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.retryMax()
	client.HTTPClient.Timeout = cfg.timeout()
	client.Logger = log.Logger
	return &Client{
		conf: cfg,
		http: client,
		log:  log,
	}
}

// Get fetches the current version of the secret at secretURL using a bearer token.
func (c *Client) Get(ctx context.Context, secretURL, token string) (string, error) {
	var u *url.URL
	var err error
	if u, err = url.Parse(secretURL); err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: malformed secret id %q", ErrInvalidSecret, secretURL)
	}
	q := u.Query()
	if q.Get("api-version") == "" {
		q.Set("api-version", VAULT_API_VERSION)
	}
	u.RawQuery = q.Encode()

	var req *retryablehttp.Request
	if req, err = retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil); err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	var resp *http.Response
	if resp, err = c.http.Do(req); err != nil {
		c.log.WithErrorMsg(err, "Error fetching secret", "action", "get", "secret", u.Path)
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, u.Path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: %s: %s", ErrAccessDenied, u.Path, resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("vault returned %s: %s", resp.Status, body)
	}

	var bundle secretBundle
	if err = json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	if bundle.Value == "" {
		return "", fmt.Errorf("%w: %s has no value", ErrInvalidSecret, u.Path)
	}
	c.log.Debug("Fetched secret", "action", "get", "secret", u.Path)
	return bundle.Value, nil
}
