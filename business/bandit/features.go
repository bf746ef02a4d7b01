package bandit

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"maps"
	"math"
	"slices"
)

var ErrUnsupportedFeature = errors.New("unsupported feature value")

// featureVector hashes a mixed context map into dim slots.
//
//	numeric k=v  -> x[h(k) % dim]   += v
//	string  k=s  -> x[h(k=s) % dim] += 1
//	bool    k    -> x[h(k) % dim]   += 1 when true
//
// Keys are visited in sorted order so collisions sum the same way every time.
func featureVector(features map[string]any, dim int) ([]float64, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimension must be positive, got %d", dim)
	}

	x := make([]float64, dim)
	for _, key := range slices.Sorted(maps.Keys(features)) {
		switch v := features[key].(type) {
		case nil:
			continue
		case string:
			x[slotFor(key+"="+v, dim)] += 1
		case bool:
			if v {
				x[slotFor(key, dim)] += 1
			}
		default:
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: %q has type %T", ErrUnsupportedFeature, key, v)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: %q is not finite", ErrUnsupportedFeature, key)
			}
			x[slotFor(key, dim)] += f
		}
	}
	return x, nil
}

func slotFor(s string, dim int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dim))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
