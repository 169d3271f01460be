package auth

import "time"

// SetClock overrides the time source used for signing and validation.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}
