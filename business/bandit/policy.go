package bandit

import (
	"errors"
	"fmt"
	"math"

	"adaptiveRouter/pkg/logger"
)

// Policy is a bandit algorithm that picks one arm among candidates and
// learns from the reward observed for the arm that was served.
//
// Recommend must not mutate learned state: callers hold only a read lock
// while it runs. It never fails; any internal error degrades to the first
// candidate.
type Policy interface {
	ClassName() string
	Recommend(features map[string]any, candidates []string) string
	Update(arm string, reward float64, features map[string]any) error
	ExportState() map[string]any
	ImportState(state map[string]any) error
}

var (
	ErrEmptyArm      = errors.New("arm must not be empty")
	ErrInvalidReward = errors.New("reward must be a finite number")
)

// ValidateObservation rejects an empty arm and non-finite rewards.
func ValidateObservation(arm string, reward float64) error {
	if arm == "" {
		return ErrEmptyArm
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidReward, reward)
	}
	return nil
}

// recoverRecommend turns a panic inside Recommend into the first-candidate
// fallback. It must be deferred directly.
func recoverRecommend(class string, candidates []string, choice *string) {
	if r := recover(); r != nil {
		logger.Warn("policy_recommend_panic",
			"policy", class,
			"panic", r,
			"fallback", candidates[0],
		)
		*choice = candidates[0]
	}
}

// argmaxFirst returns the first candidate with the highest score. NaN scores
// never win.
func argmaxFirst(candidates []string, score func(arm string) float64) string {
	best := candidates[0]
	bestScore := score(best)
	if math.IsNaN(bestScore) {
		bestScore = math.Inf(-1)
	}
	for _, arm := range candidates[1:] {
		s := score(arm)
		if s > bestScore {
			best, bestScore = arm, s
		}
	}
	return best
}
