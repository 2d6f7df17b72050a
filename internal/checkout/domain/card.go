package domain

// CardStatus is the completeness of the card field.
type CardStatus string

const (
	CardIncomplete CardStatus = "incomplete"
	CardComplete   CardStatus = "complete"
	CardInvalid    CardStatus = "invalid"
)

// CardState is the card field state as last reported by the card field adapter.
// Token is only kept for a complete card.
type CardState struct {
	Status CardStatus
	Reason string
	Token  CardToken
}

// NewCardState builds a CardState from the adapter's (complete, error, token) triple.
// A validity error always wins over completeness.
func NewCardState(complete bool, validityError string, token CardToken) CardState {
	switch {
	case validityError != "":
		return CardState{Status: CardInvalid, Reason: validityError}
	case complete:
		return CardState{Status: CardComplete, Token: token}
	default:
		return CardState{Status: CardIncomplete}
	}
}

// IsSubmittable reports whether the card can move the session past ENTER_CARD.
func (c CardState) IsSubmittable() bool {
	return c.Status == CardComplete && c.Reason == "" && c.Token != ""
}
