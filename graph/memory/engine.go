// Package memory is an in-process graph.Engine. It backs dry runs and tests, and lets
// callers inject throttling or failures into writes.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	DEFAULT_UNITS_PER_ELEMENT = 10.0
)

// WriteHook runs before every write. A non-nil error is returned to the caller as is.
type WriteHook func(ctx context.Context, req *graph.WriteRequest) error

type Option func(*Engine)

func WithPartitionCount(n int) Option {
	return func(e *Engine) {
		e.partitions = n
	}
}

func WithWriteHook(hook WriteHook) Option {
	return func(e *Engine) {
		e.hook = hook
	}
}

func WithUnitsPerElement(units float64) Option {
	return func(e *Engine) {
		e.unitsPerElement = units
	}
}

type collection struct {
	meta     graph.Collection
	vertices map[string]graph.Element
	edges    map[string]graph.Element
}

type Engine struct {
	log             *conf.Log
	partitions      int
	unitsPerElement float64
	hook            WriteHook

	mu        sync.RWMutex
	databases map[string]map[string]*collection
	writes    int
}

func NewEngine(opts ...Option) *Engine {
	cfg := graph.NewConf()
	e := &Engine{
		log:             conf.NewLog().With("engine", graph.ENGINE_MEMORY),
		partitions:      cfg.PartitionCount(),
		unitsPerElement: DEFAULT_UNITS_PER_ELEMENT,
		databases:       map[string]map[string]*collection{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.partitions < 1 {
		e.partitions = 1
	}
	return e
}

func (e *Engine) DatabaseExists(ctx context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.databases[name]
	return ok, nil
}

func (e *Engine) CreateDatabase(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.databases[name]; !ok {
		e.databases[name] = map[string]*collection{}
	}
	return nil
}

func (e *Engine) DeleteDatabase(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.databases, name)
	return nil
}

func (e *Engine) CreateCollection(ctx context.Context, coll *graph.Collection) (*graph.Collection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	db, ok := e.databases[coll.Database]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrDatabaseNotFound, coll.Database)
	}
	if existing, ok := db[coll.Name]; ok {
		meta := existing.meta
		return &meta, nil
	}
	db[coll.Name] = &collection{
		meta:     *coll,
		vertices: map[string]graph.Element{},
		edges:    map[string]graph.Element{},
	}
	meta := *coll
	return &meta, nil
}

func (e *Engine) GetCollection(ctx context.Context, database, name string) (*graph.Collection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.collection(database, name)
	if err != nil {
		return nil, err
	}
	meta := c.meta
	return &meta, nil
}

// collection must be called with e.mu held.
func (e *Engine) collection(database, name string) (*collection, error) {
	db, ok := e.databases[database]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", graph.ErrCollectionNotFound, database, name)
	}
	c, ok := db[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", graph.ErrCollectionNotFound, database, name)
	}
	return c, nil
}

func (e *Engine) PartitionRanges(ctx context.Context, coll *graph.Collection) ([]graph.KeyRange, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.collection(coll.Database, coll.Name); err != nil {
		return nil, err
	}
	return graph.SplitKeySpace(e.partitions), nil
}

func (e *Engine) BulkWrite(ctx context.Context, req *graph.WriteRequest) (*graph.WriteResponse, error) {
	if e.hook != nil {
		if err := e.hook(ctx, req); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes++
	c, err := e.collection(req.Collection.Database, req.Collection.Name)
	if err != nil {
		return nil, err
	}
	resp := &graph.WriteResponse{}
	var written int
	for i, el := range req.Elements {
		if verr := el.Validate(); verr != nil {
			resp.Failures = append(resp.Failures, graph.ElementFailure{Index: i, Err: verr})
			continue
		}
		target := c.vertices
		if el.IsEdge() {
			target = c.edges
		}
		if _, exists := target[el.ID]; exists && !req.Upsert {
			resp.Failures = append(resp.Failures, graph.ElementFailure{
				Index: i,
				Err:   graph.NewValidationError(el.ID, "conflict: id already exists"),
			})
			continue
		}
		target[el.ID] = el
		written++
	}
	resp.CapacityUnits = float64(written) * e.unitsPerElement
	e.log.Debug("Wrote batch", "action", "write", "range", req.Range.ID, "count", written, "failures", len(resp.Failures))
	return resp, nil
}

func (e *Engine) Close(ctx context.Context) error {
	return nil
}

// Count returns the number of stored elements of a kind.
func (e *Engine) Count(database, name string, kind graph.Kind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, err := e.collection(database, name)
	if err != nil {
		return 0
	}
	if kind == graph.KindEdge {
		return len(c.edges)
	}
	return len(c.vertices)
}

// Writes is the number of BulkWrite calls that reached the store after the hook.
func (e *Engine) Writes() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.writes
}

// validate graph.Engine interface is implemented
var _ graph.Engine = &Engine{}
