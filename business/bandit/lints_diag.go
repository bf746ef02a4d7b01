package bandit

import (
	"fmt"
	"math/rand/v2"

	"adaptiveRouter/pkg/logger"
)

const (
	ClassLinTSDiag = "LinTSDiagBandit"

	defaultLinTSSigma = 1.0
)

// LinTSDiag is linear Thompson sampling over the same diagonal model as
// LinUCBDiag: theta_j ~ N(b_j/A_j, sigma^2/A_j), pick argmax theta·x.
type LinTSDiag struct {
	linearModel
	sigma float64
	src   rand.Source
}

func NewLinTSDiag(sigma float64, dim int, seed uint64, opts ...LinearOption) *LinTSDiag {
	if sigma < 0 {
		sigma = defaultLinTSSigma
	}
	return &LinTSDiag{
		linearModel: newLinearModel(dim, opts...),
		sigma:       sigma,
		src:         newLockedSource(seed),
	}
}

func (p *LinTSDiag) ClassName() string { return ClassLinTSDiag }

func (p *LinTSDiag) Recommend(features map[string]any, candidates []string) (choice string) {
	if len(candidates) == 0 {
		return ""
	}
	defer recoverRecommend(p.ClassName(), candidates, &choice)

	x, err := featureVector(features, p.dim)
	if err != nil {
		logger.Debug("lints_feature_error", "error", err, "fallback", candidates[0])
		return candidates[0]
	}
	return argmaxFirst(candidates, func(arm string) float64 {
		return thompsonScore(p.lookup(arm), x, p.sigma, p.src)
	})
}

func (p *LinTSDiag) Update(arm string, reward float64, features map[string]any) error {
	return p.update(arm, reward, features)
}

type linTSState struct {
	linearState
	Sigma float64 `json:"sigma"`
}

func (p *LinTSDiag) ExportState() map[string]any {
	return exportOrHeader(p.ClassName(), linTSState{
		linearState: p.exportLinear(),
		Sigma:       p.sigma,
	})
}

func (p *LinTSDiag) ImportState(state map[string]any) error {
	var st linTSState
	if err := decodeState(state, p.ClassName(), &st); err != nil {
		return err
	}
	m, err := buildLinear(st.linearState)
	if err != nil {
		return fmt.Errorf("invalid %s state: %w", p.ClassName(), err)
	}
	if st.Sigma < 0 {
		return fmt.Errorf("invalid %s state: sigma must be non-negative", p.ClassName())
	}

	p.linearModel = m
	p.sigma = st.Sigma
	return nil
}
