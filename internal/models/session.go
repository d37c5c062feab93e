package models

import "time"

// Session holds the bearer token for the current user session.
// A zero-value Session means "not authenticated".
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
// A session without an expiry is treated as expired.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().After(s.ExpiresAt)
}

// Active returns true if the session carries a token that has not expired.
func (s *Session) Active() bool {
	return s.Token != "" && !s.IsExpired()
}
