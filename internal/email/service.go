package email

import (
	"context"
)

// Message is one outbound mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Server is the SMTP endpoint to deliver through. It is passed per send
// because the central dispatch settings can change between requests.
type Server struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Sender performs the actual network send. It may fail independently of
// quota and template logic; a failure is terminal for the dispatch.
type Sender interface {
	Send(ctx context.Context, srv Server, msg *Message) error
}
