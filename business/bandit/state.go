package bandit

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"

	"adaptiveRouter/pkg/logger"
)

// Serialized state versions. A state without a version field is read as
// OldestStateVersion.
const (
	StateVersion       = 2
	OldestStateVersion = 1
)

const (
	fieldClass   = "policyClassName"
	fieldVersion = "version"
)

var (
	ErrClassMismatch      = errors.New("policy class mismatch")
	ErrUnsupportedVersion = errors.New("unsupported state version")
)

// migration upgrades a state from version v to v+1.
type migration func(state map[string]any) (map[string]any, error)

var migrations = map[int]migration{
	1: migrateV1ToV2,
}

// v1 states were written before totalPulls was persisted.
func migrateV1ToV2(state map[string]any) (map[string]any, error) {
	if _, ok := state["totalPulls"]; ok {
		return state, nil
	}

	var counts map[string]int
	if raw, ok := state["counts"]; ok && raw != nil {
		if err := remarshal(raw, &counts); err != nil {
			return nil, fmt.Errorf("failed to read counts: %w", err)
		}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	state["totalPulls"] = total
	return state, nil
}

// StateClass returns the policyClassName recorded in a serialized state.
func StateClass(state map[string]any) string {
	s, _ := state[fieldClass].(string)
	return s
}

// StateVersionOf returns the schema version recorded in state.
func StateVersionOf(state map[string]any) (int, error) {
	raw, ok := state[fieldVersion]
	if !ok || raw == nil {
		return OldestStateVersion, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedVersion, raw)
	}
}

// CheckState reports whether state can be imported into a policy of the
// given class. It never modifies state.
func CheckState(state map[string]any, className string) error {
	if got := StateClass(state); got != className {
		return fmt.Errorf("%w: have %s, snapshot has %q", ErrClassMismatch, className, got)
	}
	v, err := StateVersionOf(state)
	if err != nil {
		return err
	}
	if v < OldestStateVersion || v > StateVersion {
		return fmt.Errorf("%w: %d (supported %d..%d)", ErrUnsupportedVersion, v, OldestStateVersion, StateVersion)
	}
	return nil
}

func upgradeState(state map[string]any) (map[string]any, error) {
	v, err := StateVersionOf(state)
	if err != nil {
		return nil, err
	}

	out := maps.Clone(state)
	for ; v < StateVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from %d", ErrUnsupportedVersion, v)
		}
		if out, err = m(out); err != nil {
			return nil, fmt.Errorf("migrate v%d: %w", v, err)
		}
	}
	out[fieldVersion] = StateVersion
	return out, nil
}

// decodeState validates, migrates and decodes a serialized state into out.
// out is only written on success.
func decodeState(state map[string]any, className string, out any) error {
	if err := CheckState(state, className); err != nil {
		return err
	}
	upgraded, err := upgradeState(state)
	if err != nil {
		return err
	}
	if err := remarshal(upgraded, out); err != nil {
		return fmt.Errorf("failed to decode %s state: %w", className, err)
	}
	return nil
}

// encodeState flattens v into JSON-compatible maps and stamps the header.
func encodeState(className string, v any) (map[string]any, error) {
	out := map[string]any{}
	if err := remarshal(v, &out); err != nil {
		return nil, fmt.Errorf("failed to encode %s state: %w", className, err)
	}
	out[fieldClass] = className
	out[fieldVersion] = StateVersion
	return out, nil
}

func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// exportOrHeader is used by ExportState, which has no error return. On an
// encoding failure it returns just the header so a restore of it is a
// harmless no-op rather than a crash.
func exportOrHeader(className string, v any) map[string]any {
	out, err := encodeState(className, v)
	if err != nil {
		logger.Error("policy_export_failed", "policy", className, "error", err)
		return map[string]any{fieldClass: className, fieldVersion: StateVersion}
	}
	return out
}
