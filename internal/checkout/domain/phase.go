package domain

// Phase is the discriminant of a checkout session.
type Phase string

const (
	PhaseSelectBrand   Phase = "SELECT_BRAND"
	PhaseEnterCard     Phase = "ENTER_CARD"
	PhaseAwaitingEmail Phase = "AWAITING_EMAIL"
	PhaseAwaitingCode  Phase = "AWAITING_CODE"
	PhaseVerified      Phase = "VERIFIED"
	PhaseCharging      Phase = "CHARGING"
	PhaseSucceeded     Phase = "SUCCEEDED"
	PhaseFailed        Phase = "FAILED"
)

var phaseRank = map[Phase]int{
	PhaseSelectBrand:   0,
	PhaseEnterCard:     1,
	PhaseAwaitingEmail: 2,
	PhaseAwaitingCode:  3,
	PhaseVerified:      4,
	PhaseCharging:      5,
	PhaseSucceeded:     6,
	PhaseFailed:        6,
}

// Rank orders phases along the flow. SUCCEEDED and FAILED share the final rank.
func (p Phase) Rank() int {
	return phaseRank[p]
}

// IsTerminal reports whether no further event can move the session.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// String returns the string representation of Phase.
func (p Phase) String() string {
	return string(p)
}
