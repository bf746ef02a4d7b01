package experiment

import (
	"fmt"
	"hash/fnv"
)

// assignmentUnit hashes (experiment, tenant, workspace) into [0, 1). The
// same triple always lands in the same bucket, which makes allocations
// auditable without storing them.
func assignmentUnit(experimentID, tenant, workspace string) float64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s", experimentID, tenant, workspace)
	return float64(h.Sum64()>>11) / float64(uint64(1)<<53)
}

// assignmentKey extracts tenant and workspace from the request features.
// ok is false when neither is present.
func assignmentKey(features map[string]any) (tenant, workspace string, ok bool) {
	if v, found := features["tenant"]; found && v != nil {
		tenant = fmt.Sprint(v)
		ok = true
	}
	if v, found := features["workspace"]; found && v != nil {
		workspace = fmt.Sprint(v)
		ok = true
	}
	return tenant, workspace, ok
}

// pickWeighted maps u in [0,1) onto labels proportionally to weights.
// Zero-weight labels are never picked. ok is false when all weights are 0.
func pickWeighted(labels []string, weights []float64, u float64) (string, bool) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return "", false
	}

	target := u * total
	cum := 0.0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cum += w
		if target < cum {
			return labels[i], true
		}
	}
	// u*total can round up to total; give it to the last positive weight.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return labels[i], true
		}
	}
	return "", false
}
