package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyRange is a contiguous, inclusive segment [Min, Max] of the hashed partition key space.
type KeyRange struct {
	ID  string
	Min uint64
	Max uint64
}

func (r KeyRange) Contains(key uint64) bool {
	return key >= r.Min && key <= r.Max
}

func (r KeyRange) String() string {
	return fmt.Sprintf("%s[%016x-%016x]", r.ID, r.Min, r.Max)
}

// SplitKeySpace divides the full key space into n equal ranges with ids "0".."n-1".
func SplitKeySpace(n int) []KeyRange {
	if n < 1 {
		n = 1
	}
	span := math.MaxUint64 / uint64(n)
	ranges := make([]KeyRange, n)
	for i := 0; i < n; i++ {
		ranges[i] = KeyRange{
			ID:  strconv.Itoa(i),
			Min: uint64(i) * span,
			Max: uint64(i+1)*span - 1,
		}
	}
	ranges[n-1].Max = math.MaxUint64
	return ranges
}

// EffectivePartitionKey hashes a partition key value. Numbers hash the same regardless of
// their Go type as long as they are numerically equal integers.
func EffectivePartitionKey(value any) (uint64, error) {
	var encoded string
	switch v := value.(type) {
	case string:
		encoded = "s:" + v
	case bool:
		encoded = "b:" + strconv.FormatBool(v)
	case int:
		encoded = "n:" + strconv.FormatInt(int64(v), 10)
	case int8:
		encoded = "n:" + strconv.FormatInt(int64(v), 10)
	case int16:
		encoded = "n:" + strconv.FormatInt(int64(v), 10)
	case int32:
		encoded = "n:" + strconv.FormatInt(int64(v), 10)
	case int64:
		encoded = "n:" + strconv.FormatInt(v, 10)
	case uint:
		encoded = "n:" + strconv.FormatUint(uint64(v), 10)
	case uint8:
		encoded = "n:" + strconv.FormatUint(uint64(v), 10)
	case uint16:
		encoded = "n:" + strconv.FormatUint(uint64(v), 10)
	case uint32:
		encoded = "n:" + strconv.FormatUint(uint64(v), 10)
	case uint64:
		encoded = "n:" + strconv.FormatUint(v, 10)
	case float32:
		encoded = encodeFloat(float64(v))
	case float64:
		encoded = encodeFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			encoded = "n:" + strconv.FormatInt(n, 10)
		} else if f, err := v.Float64(); err == nil {
			encoded = encodeFloat(f)
		} else {
			return 0, fmt.Errorf("%w: malformed number %q", ErrInvalidPartitionKey, v.String())
		}
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidPartitionKey, value)
	}
	return xxhash.Sum64String(encoded), nil
}

func encodeFloat(f float64) string {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return "n:" + strconv.FormatInt(int64(f), 10)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// Router maps elements onto the partition ranges of a collection.
type Router struct {
	property string
	ranges   []KeyRange
}

func NewRouter(property string, ranges []KeyRange) (*Router, error) {
	if property == "" {
		return nil, fmt.Errorf("router: missing partition key property")
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("router: no partition ranges")
	}
	sorted := make([]KeyRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	if sorted[0].Min != 0 || sorted[len(sorted)-1].Max != math.MaxUint64 {
		return nil, fmt.Errorf("router: partition ranges do not cover the key space")
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min != sorted[i-1].Max+1 {
			return nil, fmt.Errorf("router: partition ranges %s and %s are not contiguous", sorted[i-1], sorted[i])
		}
	}
	return &Router{
		property: property,
		ranges:   sorted,
	}, nil
}

func (r *Router) Property() string {
	return r.property
}

func (r *Router) Ranges() []KeyRange {
	return r.ranges
}

// Route returns the index into Ranges() and the range the element belongs to.
func (r *Router) Route(el Element) (int, KeyRange, error) {
	value, ok := el.Property(r.property)
	if !ok {
		return -1, KeyRange{}, fmt.Errorf("%w: %s %q missing property %q", ErrInvalidPartitionKey, el.Kind, el.ID, r.property)
	}
	key, err := EffectivePartitionKey(value)
	if err != nil {
		return -1, KeyRange{}, fmt.Errorf("%s %q: %w", el.Kind, el.ID, err)
	}
	idx := sort.Search(len(r.ranges), func(i int) bool { return r.ranges[i].Max >= key })
	return idx, r.ranges[idx], nil
}
