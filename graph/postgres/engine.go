// Package postgres stores graph elements in PostgreSQL. A database is a schema and a collection
// is a pair of vertex and edge tables inside it.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/version"
)

// DBPool is the subset of pgxpool.Pool the engine uses, so tests can mock it.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SQLSTATE codes
const (
	codeTooManyConnections   = "53300"
	codeOutOfMemory          = "53200"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeCannotConnectNow     = "57P03"
	codeLockNotAvailable     = "55P03"
	codeInvalidSchemaName    = "3F000"
	codeUndefinedTable       = "42P01"
)

type Engine struct {
	conf      *Conf
	graphConf *graph.Conf
	pool      DBPool
	log       *conf.Log
}

// NewEngine opens a pool using the access key as the password. Gateway mode disables statement
// caching so connection poolers in front of the server work.
func NewEngine(ctx context.Context, endpoint, key string, policy graph.ConnectionPolicy) (*Engine, error) {
	var poolConf *pgxpool.Config
	var pool *pgxpool.Pool
	var err error

	cfg := NewConf()
	if poolConf, err = pgxpool.ParseConfig(connString(endpoint)); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if poolConf.ConnConfig.User == "" {
		poolConf.ConnConfig.User = cfg.username()
	}
	if key != "" {
		poolConf.ConnConfig.Password = key
	}
	poolConf.MaxConns = cfg.poolSize()
	poolConf.ConnConfig.RuntimeParams["application_name"] = version.UserAgent()
	if policy.Mode == graph.ConnectionModeGateway {
		poolConf.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	}
	if pool, err = pgxpool.NewWithConfig(ctx, poolConf); err != nil {
		return nil, err
	}
	return newEngine(ctx, pool)
}

func newEngine(ctx context.Context, pool DBPool) (*Engine, error) {
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Engine{
		conf:      NewConf(),
		graphConf: graph.NewConf(),
		pool:      pool,
		log:       conf.NewLog().With("engine", graph.ENGINE_POSTGRES),
	}, nil
}

func connString(endpoint string) string {
	switch {
	case endpoint == "":
		return POSTGRES_URI
	case strings.Contains(endpoint, "://"), strings.Contains(endpoint, "="):
		return endpoint
	}
	return "postgres://" + endpoint
}

func ident(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

func vertexTable(coll *graph.Collection) string {
	return ident(coll.Database, coll.Name+"_vertices")
}

func edgeTable(coll *graph.Collection) string {
	return ident(coll.Database, coll.Name+"_edges")
}

// classify maps server errors onto the store error taxonomy.
func (e *Engine) classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeTooManyConnections, codeOutOfMemory, codeSerializationFailure,
			codeDeadlockDetected, codeCannotConnectNow, codeLockNotAvailable:
			return graph.NewThrottleError(e.graphConf.ThrottleBackoff(), err)
		case codeInvalidSchemaName, codeUndefinedTable:
			return fmt.Errorf("%w: %w", graph.ErrCollectionNotFound, err)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return graph.NewThrottleError(e.graphConf.ThrottleBackoff(), err)
	}
	return err
}

func (e *Engine) Close(ctx context.Context) error {
	e.pool.Close()
	return nil
}

// validate graph.Engine interface is implemented
var _ graph.Engine = &Engine{}
