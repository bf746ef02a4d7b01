package bandit

import (
	"fmt"

	"adaptiveRouter/pkg/logger"
)

const (
	ClassLinUCBDiag = "LinUCBDiagBandit"

	defaultLinUCBAlpha = 1.0
)

// LinUCBDiag is a contextual UCB over a diagonal ridge model. Contexts are
// feature-hashed into dim slots.
type LinUCBDiag struct {
	linearModel
	alpha float64
}

func NewLinUCBDiag(alpha float64, dim int, opts ...LinearOption) *LinUCBDiag {
	if alpha < 0 {
		alpha = defaultLinUCBAlpha
	}
	return &LinUCBDiag{
		linearModel: newLinearModel(dim, opts...),
		alpha:       alpha,
	}
}

func (p *LinUCBDiag) ClassName() string { return ClassLinUCBDiag }

func (p *LinUCBDiag) Recommend(features map[string]any, candidates []string) (choice string) {
	if len(candidates) == 0 {
		return ""
	}
	defer recoverRecommend(p.ClassName(), candidates, &choice)

	x, err := featureVector(features, p.dim)
	if err != nil {
		logger.Debug("linucb_feature_error", "error", err, "fallback", candidates[0])
		return candidates[0]
	}
	return argmaxFirst(candidates, func(arm string) float64 {
		return ucbScore(p.lookup(arm), x, p.alpha)
	})
}

func (p *LinUCBDiag) Update(arm string, reward float64, features map[string]any) error {
	return p.update(arm, reward, features)
}

type linUCBState struct {
	linearState
	Alpha float64 `json:"alpha"`
}

func (p *LinUCBDiag) ExportState() map[string]any {
	return exportOrHeader(p.ClassName(), linUCBState{
		linearState: p.exportLinear(),
		Alpha:       p.alpha,
	})
}

func (p *LinUCBDiag) ImportState(state map[string]any) error {
	var st linUCBState
	if err := decodeState(state, p.ClassName(), &st); err != nil {
		return err
	}
	m, err := buildLinear(st.linearState)
	if err != nil {
		return fmt.Errorf("invalid %s state: %w", p.ClassName(), err)
	}
	if st.Alpha < 0 {
		return fmt.Errorf("invalid %s state: alpha must be non-negative", p.ClassName())
	}

	p.linearModel = m
	p.alpha = st.Alpha
	return nil
}
