package proposer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ProposalRequest describes the trip a proposer should suggest places for.
type ProposalRequest struct {
	Destination string
	CityID      string
	DateRange   types.DateRange
	Profile     types.PreferenceProfile
	// Attempt is the trip's generation attempt, starting at 1.
	Attempt int
}

// Proposal is a proposer's raw output. Rejected holds entries that could not
// be decoded at all; they are reported as invalid_candidate.
type Proposal struct {
	Candidates []types.CandidateActivity
	Rejected   []types.UnscheduledActivity
}

// Proposer suggests raw candidate activities for a destination. Its output is
// untrusted and must go through Validate before scheduling.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (Proposal, error)
}

// DecodeActivities decodes each entry on its own so one malformed entry does
// not discard the rest of the list.
func DecodeActivities(entries []json.RawMessage) Proposal {
	var out Proposal
	for _, raw := range entries {
		var c types.CandidateActivity
		if err := json.Unmarshal(raw, &c); err != nil {
			// Keep whatever identifies the entry for the rejection report.
			var partial struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Category string `json:"category"`
			}
			_ = json.Unmarshal(raw, &partial)
			out.Rejected = append(out.Rejected, types.UnscheduledActivity{
				Candidate: types.CandidateActivity{ID: partial.ID, Name: partial.Name, Category: partial.Category},
				Reason:    types.ReasonInvalidCandidate,
				Detail:    err.Error(),
			})
			continue
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out
}

// Validate fills in candidate defaults and splits the proposal into usable
// candidates and invalid_candidate entries. Repeated ids keep the first occurrence.
func Validate(raw []types.CandidateActivity) ([]types.CandidateActivity, []types.UnscheduledActivity) {
	valid := make([]types.CandidateActivity, 0, len(raw))
	var invalid []types.UnscheduledActivity
	seen := make(map[string]bool, len(raw))

	for _, r := range raw {
		c := r.WithDefaults()
		if err := c.Validate(); err != nil {
			invalid = append(invalid, types.UnscheduledActivity{
				Candidate: c,
				Reason:    types.ReasonInvalidCandidate,
				Detail:    err.Error(),
			})
			continue
		}
		if seen[c.ID] {
			invalid = append(invalid, types.UnscheduledActivity{
				Candidate: c,
				Reason:    types.ReasonInvalidCandidate,
				Detail:    fmt.Sprintf("duplicate candidate id %s", c.ID),
			})
			continue
		}
		seen[c.ID] = true
		valid = append(valid, c)
	}
	return valid, invalid
}

func limit(cs []types.CandidateActivity, n int) []types.CandidateActivity {
	if n > 0 && len(cs) > n {
		return cs[:n]
	}
	return cs
}
