/**
 * @description
 * This package wraps the outbound email transport. The service only ever
 * needs "deliver this HTML message to this recipient, succeed or fail as a
 * unit", so the interface stays that small and the SendGrid implementation
 * lives behind it.
 */
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Mailer delivers a single message, succeeding or failing as a unit.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
