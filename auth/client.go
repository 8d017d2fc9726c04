package auth

import (
	"context"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"

	"github.com/mikeblum/graph-bulk-import/conf"
)

// TokenSource issues bearer tokens for the secret vault.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ConfidentialClient is a service principal authenticating with a client certificate.
type ConfidentialClient struct {
	app    confidential.Client
	scopes []string
	log    *conf.Log
}

func NewConfidentialClient(clientID, authority string, cert *Certificate) (*ConfidentialClient, error) {
	if cert == nil {
		return nil, fmt.Errorf("%w: missing client certificate", ErrAuthentication)
	}
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id should not be empty, set %s", ErrAuthentication, ENV_CLIENT_ID)
	}
	var cred confidential.Credential
	var app confidential.Client
	var err error
	if cred, err = confidential.NewCredFromCert(cert.Chain, cert.Key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if app, err = confidential.New(authority, clientID, cred); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return &ConfidentialClient{
		app:    app,
		scopes: []string{VAULT_SCOPE},
		log:    conf.NewLog().With("client-id", clientID, "authority", authority),
	}, nil
}

// Token acquires a client credentials token, served from the in-memory cache while valid.
func (c *ConfidentialClient) Token(ctx context.Context) (string, error) {
	result, err := c.app.AcquireTokenByCredential(ctx, c.scopes)
	if err != nil {
		c.log.WithErrorMsg(err, "Error acquiring token", "action", "auth")
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	c.log.Debug("Acquired token", "action", "auth", "expires", result.ExpiresOn)
	return result.AccessToken, nil
}

var _ TokenSource = &ConfidentialClient{}
