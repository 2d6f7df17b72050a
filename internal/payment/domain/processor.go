package domain

import "strings"

// Decision is the simulated processor's answer for a payment method.
type Decision struct {
	Status         Status
	DeclineCode    string
	DeclineMessage string
}

// DefaultDeclines maps test payment method tokens to processor declines.
var DefaultDeclines = map[string]Decision{
	"tok_chargeDeclined": {
		Status:         StatusFailed,
		DeclineCode:    "card_declined",
		DeclineMessage: "Your card was declined.",
	},
	"tok_chargeDeclinedInsufficientFunds": {
		Status:         StatusFailed,
		DeclineCode:    "insufficient_funds",
		DeclineMessage: "Your card has insufficient funds.",
	},
	"tok_chargeDeclinedExpiredCard": {
		Status:         StatusFailed,
		DeclineCode:    "expired_card",
		DeclineMessage: "Your card has expired.",
	},
	"tok_threeDSecureRequired": {
		Status: StatusRequiresAction,
	},
}

// Processor decides charges from the payment method token.
type Processor struct {
	declines map[string]Decision
}

// NewProcessor creates a processor. A nil declines map uses DefaultDeclines.
func NewProcessor(declines map[string]Decision) *Processor {
	if declines == nil {
		declines = DefaultDeclines
	}
	return &Processor{declines: declines}
}

// Decide returns the outcome of charging paymentMethod for an intent declared as brand.
// Tokens that name a network must match the declared brand.
func (p *Processor) Decide(paymentMethod, brand string) Decision {
	if d, ok := p.declines[paymentMethod]; ok {
		return d
	}
	for _, network := range []string{"visa", "mastercard"} {
		if strings.HasPrefix(paymentMethod, "tok_"+network) && network != brand {
			return Decision{
				Status:         StatusFailed,
				DeclineCode:    "brand_mismatch",
				DeclineMessage: "Your card does not match the selected card type.",
			}
		}
	}
	return Decision{Status: StatusSucceeded}
}
