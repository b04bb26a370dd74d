package mail

import "context"

// Attachment is an inline file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message describes a single outbound email.
type Message struct {
	ToName      string
	ToAddress   string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Mailer delivers a single message. Send is synchronous so callers can
// attribute a delivery outcome to the record that produced the message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
