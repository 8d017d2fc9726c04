package main

import (
	"errors"
	"fmt"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
)

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

// settings is the driver configuration, resolved once at startup.
type settings struct {
	Endpoint         string
	AuthorizationKey string
	Engine           string
	Database         string
	Collection       string
	PartitionKeyPath string
	Throughput       int
	Policy           graph.ConnectionPolicy
	Documents        int64
	CleanupOnStart   bool
	CleanupOnFinish  bool
}

func (c *Conf) settings(engine string) (*settings, error) {
	errs := []error{c.Err()}
	mode, err := graph.ParseConnectionMode(c.GetEnv(ENV_CONNECTION_MODE, ""))
	errs = append(errs, err)
	protocol, err := graph.ParseProtocol(c.GetEnv(ENV_CONNECTION_PROTOCOL, ""))
	errs = append(errs, err)
	// cleanup flags delete the database: unparsable values are errors
	cleanupOnStart, err := c.ParseBool(ENV_SHOULD_CLEANUP_ON_START, SHOULD_CLEANUP_ON_START)
	errs = append(errs, err)
	cleanupOnFinish, err := c.ParseBool(ENV_SHOULD_CLEANUP_ON_FINISH, SHOULD_CLEANUP_ON_FINISH)
	errs = append(errs, err)

	s := &settings{
		Endpoint:         c.GetEnv(ENV_ENDPOINT_URL, ""),
		AuthorizationKey: c.GetEnv(ENV_AUTHORIZATION_KEY, ""),
		Engine:           engine,
		Database:         c.GetEnv(ENV_DATABASE_NAME, DATABASE_NAME),
		Collection:       c.GetEnv(ENV_COLLECTION_NAME, COLLECTION_NAME),
		PartitionKeyPath: c.GetEnv(ENV_COLLECTION_PARTITION_KEY, COLLECTION_PARTITION_KEY),
		Throughput:       c.GetInt(ENV_COLLECTION_THROUGHPUT, COLLECTION_THROUGHPUT),
		Policy:           graph.ConnectionPolicy{Mode: mode, Protocol: protocol},
		Documents:        c.GetInt64(ENV_NUMBER_OF_DOCUMENTS_TO_IMPORT, NUMBER_OF_DOCUMENTS_TO_IMPORT),
		CleanupOnStart:   cleanupOnStart,
		CleanupOnFinish:  cleanupOnFinish,
	}
	if s.Endpoint == "" && engine != graph.ENGINE_MEMORY {
		errs = append(errs, fmt.Errorf("endpoint should not be empty, set %s", ENV_ENDPOINT_URL))
	}
	if s.Documents < 0 {
		errs = append(errs, fmt.Errorf("%s should not be negative: %d", ENV_NUMBER_OF_DOCUMENTS_TO_IMPORT, s.Documents))
	}
	return s, errors.Join(errs...)
}

func (s *settings) collection() *graph.Collection {
	return &graph.Collection{
		Database:         s.Database,
		Name:             s.Collection,
		PartitionKeyPath: s.PartitionKeyPath,
		Throughput:       s.Throughput,
	}
}
