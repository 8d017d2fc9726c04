package neo4j

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/version"
)

const (
	APP_BULK_IMPORT = "graph-bulk-import:write"

	CODE_DATABASE_NOT_FOUND  = "Neo.ClientError.Database.DatabaseNotFound"
	CLASSIFICATION_TRANSIENT = "TransientError"
)

type Engine struct {
	conf      *Conf
	graphConf *graph.Conf
	driver    neo4j.DriverWithContext
	bolt      *LogBridge
	log       *conf.Log
}

// NewEngine connects with the access key as the password of the configured user. Transaction
// retries are left to the caller.
func NewEngine(ctx context.Context, endpoint, key string, policy graph.ConnectionPolicy) (*Engine, error) {
	var driver neo4j.DriverWithContext
	var uri string
	var err error

	cfg := NewConf()
	log := conf.NewLog().With("engine", graph.ENGINE_NEO4J)
	bridge := neo4jLogBridge(log)

	if uri, err = endpointURI(endpoint, policy); err != nil {
		return nil, err
	}
	if driver, err = neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(cfg.username(), key, ""),
		func(c *neo4j.Config) {
			c.MaxTransactionRetryTime = 0
			c.MaxConnectionPoolSize = cfg.poolSize()
			c.UserAgent = version.UserAgent()
			c.Log = bridge
		},
	); err != nil {
		return nil, err
	}
	log.Info("Connecting", "uri", uri, "mode", policy.Mode.String(), "protocol", policy.Protocol.String())

	engine := &Engine{
		conf:      cfg,
		graphConf: graph.NewConf(),
		driver:    driver,
		bolt:      bridge,
		log:       log,
	}
	if err = driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.Join(err, driver.Close(ctx))
	}
	return engine, nil
}

// endpointURI keeps explicit bolt schemes. Any other endpoint is reduced to its host and given
// a scheme from the connection mode: direct connects to a single server, gateway routes.
func endpointURI(endpoint string, policy graph.ConnectionPolicy) (string, error) {
	if endpoint == "" {
		return NEO4J_URI, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "tcp://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		return u.String(), nil
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	scheme := "neo4j"
	if policy.Mode == graph.ConnectionModeDirect {
		scheme = "bolt"
	}
	// TLS endpoints keep TLS
	if u.Scheme == "https" {
		scheme += "+s"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host), nil
}

// classify maps server errors onto the store error taxonomy.
func (e *Engine) classify(err error) error {
	if err == nil {
		return nil
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case neoErr.Code == CODE_DATABASE_NOT_FOUND:
			return fmt.Errorf("%w: %w", graph.ErrCollectionNotFound, err)
		case neoErr.Classification() == CLASSIFICATION_TRANSIENT:
			return graph.NewThrottleError(e.graphConf.ThrottleBackoff(), err)
		}
		return err
	}
	if neo4j.IsConnectivityError(err) {
		return graph.NewThrottleError(e.graphConf.ThrottleBackoff(), err)
	}
	return err
}

func (e *Engine) session(ctx context.Context, database string, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: database,
		AccessMode:   mode,
		BoltLogger:   e.bolt,
	})
}

func (e *Engine) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// validate graph.Engine interface is implemented
var _ graph.Engine = &Engine{}
