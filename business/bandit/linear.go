package bandit

import (
	"fmt"
	"slices"
)

const (
	defaultLinearDim      = 16
	defaultRegularization = 0.0
)

type linearArm struct {
	A []float64
	B []float64
}

func (a *linearArm) clone() *linearArm {
	return &linearArm{A: slices.Clone(a.A), B: slices.Clone(a.B)}
}

// linearModel is the diagonal ridge regression shared by LinUCBDiag and
// LinTSDiag. Each arm keeps its own A and b of length dim.
type linearModel struct {
	armStats
	dim            int
	regularization float64
	arms           map[string]*linearArm
}

type LinearOption func(*linearModel)

// WithRegularization sets the ridge term added to the initial diagonal.
func WithRegularization(r float64) LinearOption {
	return func(m *linearModel) {
		if r >= 0 {
			m.regularization = r
		}
	}
}

func newLinearModel(dim int, opts ...LinearOption) linearModel {
	if dim <= 0 {
		dim = defaultLinearDim
	}
	m := linearModel{
		armStats:       newArmStats(),
		dim:            dim,
		regularization: defaultRegularization,
		arms:           make(map[string]*linearArm),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m *linearModel) priorArm() *linearArm {
	a := make([]float64, m.dim)
	for j := range a {
		a[j] = 1.0 + m.regularization
	}
	return &linearArm{A: a, B: make([]float64, m.dim)}
}

// lookup returns the arm's parameters, or a detached prior for unseen arms.
// It never inserts, so it is safe under a read lock.
func (m *linearModel) lookup(arm string) *linearArm {
	if a, ok := m.arms[arm]; ok {
		return a
	}
	return m.priorArm()
}

func (m *linearModel) update(arm string, reward float64, features map[string]any) error {
	if err := ValidateObservation(arm, reward); err != nil {
		return err
	}
	x, err := featureVector(features, m.dim)
	if err != nil {
		return err
	}

	a, ok := m.arms[arm]
	if !ok {
		a = m.priorArm()
		m.arms[arm] = a
	}
	diagUpdate(a.A, a.B, x, reward)
	m.observe(arm, reward)
	return nil
}

type linearArmState struct {
	A []float64 `json:"A"`
	B []float64 `json:"b"`
}

type linearState struct {
	armStatsState
	Dim            int                       `json:"dim"`
	Regularization float64                   `json:"regularization"`
	Arms           map[string]linearArmState `json:"arms"`
}

func (m *linearModel) exportLinear() linearState {
	arms := make(map[string]linearArmState, len(m.arms))
	for name, a := range m.arms {
		c := a.clone()
		arms[name] = linearArmState{A: c.A, B: c.B}
	}
	return linearState{
		armStatsState:  m.export(),
		Dim:            m.dim,
		Regularization: m.regularization,
		Arms:           arms,
	}
}

// buildLinear validates st and returns a replacement model. The receiver is
// not touched.
func buildLinear(st linearState) (linearModel, error) {
	if err := st.validate(); err != nil {
		return linearModel{}, err
	}
	if st.Dim <= 0 {
		return linearModel{}, fmt.Errorf("dim must be positive, got %d", st.Dim)
	}
	if st.Regularization < 0 {
		return linearModel{}, fmt.Errorf("regularization must be non-negative")
	}

	m := linearModel{
		armStats:       st.toStats(),
		dim:            st.Dim,
		regularization: st.Regularization,
		arms:           make(map[string]*linearArm, len(st.Arms)),
	}
	for name, a := range st.Arms {
		if len(a.A) != st.Dim || len(a.B) != st.Dim {
			return linearModel{}, fmt.Errorf("arm %q: expected %d dims, got A=%d b=%d", name, st.Dim, len(a.A), len(a.B))
		}
		if !finiteAll(a.A) || !finiteAll(a.B) {
			return linearModel{}, fmt.Errorf("arm %q: non-finite parameters", name)
		}
		for _, v := range a.A {
			if v <= 0 {
				return linearModel{}, fmt.Errorf("arm %q: A must be positive", name)
			}
		}
		m.arms[name] = &linearArm{A: slices.Clone(a.A), B: slices.Clone(a.B)}
	}
	return m, nil
}
