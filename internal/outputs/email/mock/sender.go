package mock

import (
	"context"

	"github.com/feedsift/feedsift/internal/outputs/email"
)

type Sender struct {
	Sent []email.Message
	Err  error
}

func (s *Sender) Send(ctx context.Context, message email.Message) error {
	_ = ctx
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, message)
	return nil
}
