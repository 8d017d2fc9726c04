// Package clickhouse stores graph elements in ClickHouse. Element tables use
// ReplacingMergeTree so an upsert is a newer row version of the same id.
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/version"
)

// server exception codes
const (
	codeTimeoutExceeded            = 159
	codeTooManySimultaneousQueries = 202
	codeNoFreeConnection           = 203
	codeMemoryLimitExceeded        = 241
	codeTooManyParts               = 252
	codeUnknownTable               = 60
	codeUnknownDatabase            = 81
)

type Engine struct {
	conf      *Conf
	graphConf *graph.Conf
	addr      string
	username  string
	password  string
	conn      driver.Conn
	log       *conf.Log
}

// NewEngine opens a clickhouse-go connection for reads and batch writes. DDL goes through
// short-lived ch-go clients.
func NewEngine(ctx context.Context, endpoint, key string, policy graph.ConnectionPolicy) (*Engine, error) {
	var conn driver.Conn
	var addr string
	var err error

	cfg := NewConf()
	if addr, err = address(endpoint); err != nil {
		return nil, err
	}
	if conn, err = clickhouse.Open(options(cfg, addr, key, policy)); err != nil {
		return nil, err
	}
	engine := &Engine{
		conf:      cfg,
		graphConf: graph.NewConf(),
		addr:      addr,
		username:  cfg.username(),
		password:  key,
		conn:      conn,
		log:       conf.NewLog().With("engine", graph.ENGINE_CLICKHOUSE),
	}
	if err = conn.Ping(ctx); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	engine.log.Info("Connected", "addr", addr, "mode", policy.Mode.String(), "protocol", policy.Protocol.String())
	return engine, nil
}

// address reduces an endpoint to host:port.
func address(endpoint string) (string, error) {
	if endpoint == "" {
		return CLICKHOUSE_ADDR, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return u.Host, nil
}

// options maps the connection policy: HTTP selects the HTTP interface, gateway mode spreads
// connections round robin.
func options(cfg *Conf, addr, key string, policy graph.ConnectionPolicy) *clickhouse.Options {
	build, _ := version.BuildVersion()
	opts := &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Username: cfg.username(),
			Password: key,
		},
		Protocol:         clickhouse.Native,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.maxExecutionTime().Seconds()),
		},
		DialTimeout: cfg.dialTimeout(),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: cfg.maxOpenConns(),
		MaxIdleConns: cfg.maxOpenConns() / 2,
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: CLIENT_NAME, Version: build.Version},
			},
		},
	}
	if policy.Protocol == graph.ProtocolHTTP {
		opts.Protocol = clickhouse.HTTP
	}
	if policy.Mode == graph.ConnectionModeGateway {
		opts.ConnOpenStrategy = clickhouse.ConnOpenRoundRobin
	}
	return opts
}

// ddl runs a schema statement on a dedicated native connection.
func (e *Engine) ddl(ctx context.Context, body string) error {
	var conn *ch.Client
	var err error
	if conn, err = ch.Dial(ctx, ch.Options{
		Address:     e.addr,
		User:        e.username,
		Password:    e.password,
		ClientName:  CLIENT_NAME,
		Compression: ch.CompressionLZ4,
		DialTimeout: e.conf.dialTimeout(),
	}); err != nil {
		return e.classify(err)
	}
	defer conn.Close()
	return e.classify(conn.Do(ctx, ch.Query{
		Body: body,
	}))
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func table(database, name string) string {
	return quote(database) + "." + quote(name)
}

func vertexTable(coll *graph.Collection) string {
	return table(coll.Database, coll.Name+"_vertices")
}

func edgeTable(coll *graph.Collection) string {
	return table(coll.Database, coll.Name+"_edges")
}

// classify maps server exceptions from either client onto the store error taxonomy.
func (e *Engine) classify(err error) error {
	if err == nil {
		return nil
	}
	var code int32
	var exc *clickhouse.Exception
	if errors.As(err, &exc) {
		code = exc.Code
	} else if chExc, ok := ch.AsException(err); ok {
		code = int32(chExc.Code)
	} else {
		return err
	}
	switch code {
	case codeTimeoutExceeded, codeTooManySimultaneousQueries, codeNoFreeConnection,
		codeMemoryLimitExceeded, codeTooManyParts:
		return graph.NewThrottleError(e.graphConf.ThrottleBackoff(), err)
	case codeUnknownDatabase, codeUnknownTable:
		return fmt.Errorf("%w: %w", graph.ErrCollectionNotFound, err)
	}
	return err
}

func (e *Engine) Close(ctx context.Context) error {
	return e.conn.Close()
}

// validate graph.Engine interface is implemented
var _ graph.Engine = &Engine{}
