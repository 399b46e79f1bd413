package models

// ReimbursementStatus is the lifecycle state of a reimbursement.
type ReimbursementStatus string

// Reimbursement states.
const (
	StatusSubmitted ReimbursementStatus = "submitted"
	StatusApproved  ReimbursementStatus = "approved"
	StatusPaid      ReimbursementStatus = "paid"
	StatusRejected  ReimbursementStatus = "rejected"
)

var transitions = map[ReimbursementStatus][]ReimbursementStatus{
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPaid},
}

// Valid reports whether s is a known status.
func (s ReimbursementStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusPaid, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a reimbursement may move from s to next.
func (s ReimbursementStatus) CanTransition(next ReimbursementStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s ReimbursementStatus) Terminal() bool {
	return len(transitions[s]) == 0
}
