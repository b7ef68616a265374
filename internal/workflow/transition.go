package workflow

// Transition names a state-machine edge a caller may request.
type Transition string

// TransitionCreate is the lifecycle-opening event type recorded when a
// draft is first saved. It is not a requestable edge and never appears in
// the transition table.
const TransitionCreate Transition = "create"

// Requestable transitions.
const (
	TransitionSubmit         Transition = "submit"
	TransitionClaim          Transition = "claim"
	TransitionRequestChanges Transition = "request_changes"
	TransitionApprove        Transition = "approve"
	TransitionReject         Transition = "reject"
	TransitionResubmit       Transition = "resubmit"
	TransitionReclaim        Transition = "reclaim"
)

// Edge describes a legal transition: the state pair it moves between and
// the role that may trigger it.
type Edge struct {
	From Status
	To   Status
	Role Role
}

// transitionTable is the single source of truth for legal transitions.
// Anything absent here fails with ErrInvalidTransition.
var transitionTable = map[Transition]Edge{
	TransitionSubmit:         {From: StatusDraft, To: StatusSubmitted, Role: RoleStudent},
	TransitionClaim:          {From: StatusSubmitted, To: StatusUnderReview, Role: RoleTeacher},
	TransitionRequestChanges: {From: StatusUnderReview, To: StatusNeedsRevision, Role: RoleTeacher},
	TransitionApprove:        {From: StatusUnderReview, To: StatusApproved, Role: RoleTeacher},
	TransitionReject:         {From: StatusUnderReview, To: StatusRejected, Role: RoleTeacher},
	TransitionResubmit:       {From: StatusNeedsRevision, To: StatusResubmitted, Role: RoleStudent},
	TransitionReclaim:        {From: StatusResubmitted, To: StatusUnderReview, Role: RoleTeacher},
}

// Valid reports whether t names a known transition.
func (t Transition) Valid() bool {
	_, ok := transitionTable[t]
	return ok
}

// EdgeFor returns the edge for a transition, or ok=false when the
// transition name is unknown.
func EdgeFor(t Transition) (Edge, bool) {
	edge, ok := transitionTable[t]
	return edge, ok
}

// CanTransition reports whether transition t legally applies to a
// submission currently in status from.
func CanTransition(from Status, t Transition) bool {
	edge, ok := transitionTable[t]
	return ok && edge.From == from
}

// TransitionsFrom returns the transitions legally available from a status.
func TransitionsFrom(from Status) []Transition {
	var out []Transition
	for _, t := range orderedTransitions {
		if transitionTable[t].From == from {
			out = append(out, t)
		}
	}
	return out
}

// orderedTransitions keeps TransitionsFrom deterministic for API responses.
var orderedTransitions = []Transition{
	TransitionSubmit,
	TransitionClaim,
	TransitionRequestChanges,
	TransitionApprove,
	TransitionReject,
	TransitionResubmit,
	TransitionReclaim,
}
