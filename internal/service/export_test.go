package service

// SetClock replaces the time source of s.
func (s *ServiceRequestService) SetClock(c Clock) {
	s.now = c
}
