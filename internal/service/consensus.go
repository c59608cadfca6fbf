package service

import (
	"sort"

	"github.com/KattaManasa0402/Marine-life/internal/model"
)

// DefaultConsensusThreshold is the tally a label needs to win.
const DefaultConsensusThreshold = 3

// Evaluator recomputes an item's consensus from its complete vote set. It
// holds no state besides its threshold and may be shared freely.
//
// The algorithm, per aspect (species and health independently):
//
//	confirm:              score += 1, confirms += 1
//	dispute + correction: score -= 1, corrections[correction] += 1
//	abstain:              no effect
//
//	consensus = aiGuess          if aiGuess is set and confirms >= T
//	          = best correction  if its count >= T
//	          = nil              otherwise
//
// Only confirms count toward the AI guess. A dispute whose correction
// repeats the AI guess text is still a dispute and lands in corrections.
// The best correction is the one with the highest count; equal counts go to
// the label that appeared first. Votes are visited in (CreatedAt, ID) order,
// so "first" means first cast and the result does not depend on the order of
// the input slice.
type Evaluator struct {
	threshold int
}

func NewEvaluator(threshold int) *Evaluator {
	if threshold < 1 {
		threshold = DefaultConsensusThreshold
	}
	return &Evaluator{threshold: threshold}
}

// Threshold returns the tally a label needs to reach consensus.
func (e *Evaluator) Threshold() int {
	return e.threshold
}

// Evaluate computes the consensus result for an item.
func (e *Evaluator) Evaluate(aiSpecies, aiHealth *string, votes []model.Vote) model.ConsensusResult {
	ordered := make([]model.Vote, len(votes))
	copy(ordered, votes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var res model.ConsensusResult
	species := newTally(aiSpecies)
	health := newTally(aiHealth)

	for _, v := range ordered {
		res.Score += species.add(v.SpeciesVerdict, v.CorrectedSpecies)
		res.Score += health.add(v.HealthVerdict, v.CorrectedHealth)
	}

	res.ConsensusSpecies = species.winner(e.threshold)
	res.ConsensusHealth = health.winner(e.threshold)
	res.IsValidated = res.ConsensusSpecies != nil || res.ConsensusHealth != nil
	return res
}

// tally counts support on one aspect of a media item. Confirms of the AI
// guess and dispute corrections are kept apart.
type tally struct {
	aiGuess     *string
	confirms    int
	corrections map[string]int
	order       []string
}

func newTally(aiGuess *string) *tally {
	return &tally{aiGuess: aiGuess, corrections: make(map[string]int)}
}

// add records one vote and returns its contribution to the score.
func (t *tally) add(v model.Verdict, correction *string) int {
	switch v {
	case model.VerdictConfirm:
		t.confirms++
		return 1
	case model.VerdictDispute:
		if correction == nil || *correction == "" {
			return 0
		}
		if _, seen := t.corrections[*correction]; !seen {
			t.order = append(t.order, *correction)
		}
		t.corrections[*correction]++
		return -1
	}
	return 0
}

func (t *tally) winner(threshold int) *string {
	if t.aiGuess != nil && t.confirms >= threshold {
		label := *t.aiGuess
		return &label
	}

	best, bestCount := "", 0
	for _, label := range t.order {
		if n := t.corrections[label]; n > bestCount {
			best, bestCount = label, n
		}
	}
	if bestCount < threshold {
		return nil
	}
	return &best
}
