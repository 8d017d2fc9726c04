package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikeblum/graph-bulk-import/auth"
	"github.com/mikeblum/graph-bulk-import/bulk"
	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/graph/clickhouse"
	"github.com/mikeblum/graph-bulk-import/graph/memory"
	"github.com/mikeblum/graph-bulk-import/graph/neo4j"
	"github.com/mikeblum/graph-bulk-import/graph/postgres"
	"github.com/mikeblum/graph-bulk-import/secrets"
)

var ErrUnknownEngine = errors.New("unknown store engine")

// keyFetcher reads a secret given a bearer token.
type keyFetcher interface {
	Get(ctx context.Context, secretURL, token string) (string, error)
}

// resolveKey returns the store authorization key. An explicit key wins; otherwise the key is
// read from the vault with a token issued for the client certificate.
func resolveKey(ctx context.Context, s *settings, authConf *auth.Conf, secretsConf *secrets.Conf, log *conf.Log) (string, error) {
	if s.AuthorizationKey != "" {
		log.Debug("Using authorization key from settings", "action", "auth")
		return s.AuthorizationKey, nil
	}
	secretID := secretsConf.SecretID()
	if secretID == "" {
		if s.Engine == graph.ENGINE_MEMORY {
			return "", nil
		}
		return "", fmt.Errorf("%w: set %s or %s", auth.ErrAuthentication, ENV_AUTHORIZATION_KEY, secrets.ENV_KEYVAULT_URL_SECRET_ID)
	}

	var cert *auth.Certificate
	var client *auth.ConfidentialClient
	var err error
	if cert, err = auth.NewCertificateStore(authConf.CertificateDir()).Find(authConf.Thumbprint()); err != nil {
		return "", err
	}
	log.Info("Found client certificate", "action", "auth", "path", cert.Path, "thumbprint", cert.Thumbprint)
	if client, err = auth.NewConfidentialClient(authConf.ClientID(), authConf.Authority(), cert); err != nil {
		return "", err
	}
	return fetchKey(ctx, client, secrets.NewClient(secretsConf), secretID)
}

func fetchKey(ctx context.Context, tokens auth.TokenSource, vault keyFetcher, secretID string) (string, error) {
	var token string
	var err error
	if token, err = tokens.Token(ctx); err != nil {
		return "", err
	}
	return vault.Get(ctx, secretID, token)
}

// openEngine connects to the configured store.
func openEngine(ctx context.Context, s *settings) (graph.Engine, error) {
	switch s.Engine {
	case graph.ENGINE_NEO4J:
		return neo4j.NewEngine(ctx, s.Endpoint, s.AuthorizationKey, s.Policy)
	case graph.ENGINE_POSTGRES:
		return postgres.NewEngine(ctx, s.Endpoint, s.AuthorizationKey, s.Policy)
	case graph.ENGINE_CLICKHOUSE:
		return clickhouse.NewEngine(ctx, s.Endpoint, s.AuthorizationKey, s.Policy)
	case graph.ENGINE_MEMORY:
		return memory.NewEngine(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, s.Engine)
}

// setupGovernor applies the initialization retry policy to admin calls.
func setupGovernor(ctx context.Context) (*bulk.Governor, error) {
	return bulk.NewGovernor(ctx, bulk.RetryPolicy{
		MaxRetryWait: SETUP_MAX_RETRY_WAIT,
		MaxAttempts:  SETUP_MAX_RETRY_ATTEMPTS,
	}, 1)
}

func withSetupRetry(ctx context.Context, governor *bulk.Governor, operation func() error) error {
	_, _, err := governor.WithRetry(ctx, SETUP_RANGE, func(attempt int) (float64, error) {
		return 0, operation()
	}, nil)
	return err
}

// prepareCollection recreates the database and collection when cleaning up on start,
// otherwise the collection must already exist.
func prepareCollection(ctx context.Context, admin graph.Admin, governor *bulk.Governor, s *settings, log *conf.Log) (*graph.Collection, error) {
	target := s.collection()
	log = log.With("collection", target.String())
	var coll *graph.Collection
	var err error

	if !s.CleanupOnStart {
		if err = withSetupRetry(ctx, governor, func() error {
			coll, err = admin.GetCollection(ctx, s.Database, s.Collection)
			return err
		}); err != nil {
			log.WithErrorMsg(err, "The data collection does not exist", "action", "setup")
			return nil, err
		}
		return coll, nil
	}

	var exists bool
	if err = withSetupRetry(ctx, governor, func() error {
		exists, err = admin.DatabaseExists(ctx, s.Database)
		return err
	}); err != nil {
		return nil, err
	}
	if exists {
		log.Info("Deleting database", "action", "setup", "database", s.Database)
		if err = withSetupRetry(ctx, governor, func() error {
			return admin.DeleteDatabase(ctx, s.Database)
		}); err != nil {
			return nil, err
		}
	}
	log.Info("Creating database", "action", "setup", "database", s.Database)
	if err = withSetupRetry(ctx, governor, func() error {
		return admin.CreateDatabase(ctx, s.Database)
	}); err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Creating collection %s with %d RU/s", s.Collection, s.Throughput), "action", "setup")
	if err = withSetupRetry(ctx, governor, func() error {
		coll, err = admin.CreateCollection(ctx, target)
		return err
	}); err != nil {
		return nil, err
	}
	return coll, nil
}

// cleanupOnFinish drops the database once the import is done.
func cleanupOnFinish(ctx context.Context, admin graph.Admin, governor *bulk.Governor, s *settings, log *conf.Log) error {
	log.Info("Deleting database", "action", "cleanup", "database", s.Database)
	return withSetupRetry(ctx, governor, func() error {
		return admin.DeleteDatabase(ctx, s.Database)
	})
}
