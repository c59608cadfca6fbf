package model

import (
	"errors"
	"strings"
	"time"
)

// Verdict is a voter's stance on one aspect of the AI classification.
type Verdict string

const (
	VerdictConfirm Verdict = "confirm"
	VerdictDispute Verdict = "dispute"
	VerdictAbstain Verdict = "abstain"
)

var (
	ErrEmptyVote      = errors.New("vote must assert a species verdict, a health verdict, or a comment")
	ErrInvalidVerdict = errors.New("invalid verdict")
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictConfirm, VerdictDispute, VerdictAbstain:
		return true
	}
	return false
}

// Vote is one user's validation of one media item.
type Vote struct {
	ID               int64     `json:"id"`
	MediaItemID      int64     `json:"mediaItemId"`
	UserID           int64     `json:"userId"`
	SpeciesVerdict   Verdict   `json:"speciesVerdict"`
	CorrectedSpecies *string   `json:"correctedSpecies,omitempty"`
	HealthVerdict    Verdict   `json:"healthVerdict"`
	CorrectedHealth  *string   `json:"correctedHealth,omitempty"`
	Comment          *string   `json:"comment,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// VotePayload is the body of a vote submission. Nil fields are "not
// provided": on resubmission they leave the stored value untouched.
type VotePayload struct {
	SpeciesVerdict   *Verdict `json:"speciesVerdict"`
	CorrectedSpecies *string  `json:"correctedSpecies"`
	HealthVerdict    *Verdict `json:"healthVerdict"`
	CorrectedHealth  *string  `json:"correctedHealth"`
	Comment          *string  `json:"comment"`
}

// Normalize trims free-text fields and turns blank strings into nil.
func (p *VotePayload) Normalize() {
	p.CorrectedSpecies = trimOrNil(p.CorrectedSpecies)
	p.CorrectedHealth = trimOrNil(p.CorrectedHealth)
	p.Comment = trimOrNil(p.Comment)
}

// Validate rejects payloads that assert nothing and verdict/correction
// combinations that cannot be tallied. Call Normalize first.
func (p *VotePayload) Validate() error {
	if err := checkAspect(p.SpeciesVerdict, p.CorrectedSpecies); err != nil {
		return err
	}
	if err := checkAspect(p.HealthVerdict, p.CorrectedHealth); err != nil {
		return err
	}
	if !asserts(p.SpeciesVerdict) && !asserts(p.HealthVerdict) && p.Comment == nil {
		return ErrEmptyVote
	}
	return nil
}

func checkAspect(v *Verdict, correction *string) error {
	if v == nil {
		if correction != nil {
			return ErrInvalidVerdict
		}
		return nil
	}
	if !v.Valid() {
		return ErrInvalidVerdict
	}
	if *v == VerdictDispute && correction == nil {
		return ErrInvalidVerdict
	}
	if *v != VerdictDispute && correction != nil {
		return ErrInvalidVerdict
	}
	return nil
}

func asserts(v *Verdict) bool {
	return v != nil && *v != VerdictAbstain
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// VoteResponse is returned after a successful submission.
type VoteResponse struct {
	Vote    *Vote `json:"vote"`
	Created bool  `json:"created"`
}
