package domain

import "time"

// RebaseSession is the in-flight state of a rebase for one branch. It lives
// in the session store (memory or Redis), not the database, and does not
// survive a process restart in the in-memory case. Exactly one session may
// be active per branch.
type RebaseSession struct {
	BranchID          uint64     `json:"branch_id"`
	TrunkBranchID     uint64     `json:"trunk_branch_id"`
	Conflicts         []Conflict `json:"conflicts"`
	ResolvedConflicts []uint64   `json:"resolved_conflicts"`
	StartedBy         string     `json:"started_by"`
	StartedAt         time.Time  `json:"started_at"`
}

// IsResolved reports whether the given content item's conflict was resolved
func (s *RebaseSession) IsResolved(contentID uint64) bool {
	for _, id := range s.ResolvedConflicts {
		if id == contentID {
			return true
		}
	}
	return false
}

// AllResolved reports whether every conflict in the session is resolved
func (s *RebaseSession) AllResolved() bool {
	for _, c := range s.Conflicts {
		if !s.IsResolved(c.ContentID) {
			return false
		}
	}
	return true
}

// RebaseState is the externally visible snapshot of a rebase session
type RebaseState struct {
	InProgress    bool       `json:"in_progress"`
	Conflicts     []Conflict `json:"conflicts,omitempty"`
	ResolvedCount int        `json:"resolved_count"`
	TotalCount    int        `json:"total_count"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
}

// RebaseResult is the outcome of starting or continuing a rebase
type RebaseResult struct {
	Completed     bool       `json:"completed"`
	AppliedCount  int        `json:"applied_count"`
	ConflictCount int        `json:"conflict_count"`
	Conflicts     []Conflict `json:"conflicts,omitempty"`
}
