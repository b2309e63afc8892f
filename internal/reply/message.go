package reply

import "time"

// Role identifies who wrote a conversation message.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Style is one of the three generation variants.
type Style string

const (
	StyleAggressive   Style = "aggressive"
	StyleConservative Style = "conservative"
	StyleProfessional Style = "professional"
)

// Styles lists all variants in their canonical order.
var Styles = []Style{StyleAggressive, StyleConservative, StyleProfessional}

// Temperature returns the sampling temperature tuned for a style.
func (s Style) Temperature() float32 {
	switch s {
	case StyleAggressive:
		return 0.8
	case StyleConservative:
		return 0.3
	default:
		return 0.5
	}
}
