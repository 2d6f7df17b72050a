package domain

// Event is a payer intent dispatched to a checkout session.
type Event interface {
	// Name is the event name used in logs and metrics.
	Name() string
}

// BrandChosen declares the card network for the session.
type BrandChosen struct {
	Brand Brand
}

// CardFieldChanged carries a card field adapter change.
type CardFieldChanged struct {
	Detected DetectedBrand
	State    CardState
}

// ContinuePressed asks to leave card entry.
type ContinuePressed struct{}

// EmailSubmitted asks for a verification code to be sent to Email.
type EmailSubmitted struct {
	Email string
}

// CodeSubmitted redeems a verification code.
type CodeSubmitted struct {
	Code string
}

// ResendRequested abandons the current code and returns to email entry.
type ResendRequested struct{}

func (BrandChosen) Name() string      { return "brandChosen" }
func (CardFieldChanged) Name() string { return "cardFieldChanged" }
func (ContinuePressed) Name() string  { return "continuePressed" }
func (EmailSubmitted) Name() string   { return "emailSubmitted" }
func (CodeSubmitted) Name() string    { return "codeSubmitted" }
func (ResendRequested) Name() string  { return "resendRequested" }
