package operator

import "context"

// Scripted replays a fixed sequence of replies. Test use only; once the
// script runs out it cancels.
type Scripted struct {
	Replies []string
	Seen    []string
	next    int
}

func (s *Scripted) Prompt(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Seen = append(s.Seen, message)
	if s.next >= len(s.Replies) {
		return "", ErrCancelled
	}
	reply := s.Replies[s.next]
	s.next++
	return reply, nil
}
