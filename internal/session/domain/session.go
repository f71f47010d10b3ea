package domain

import "time"

// Session represents one exercise of an invitation's auto-login.
// It belongs to exactly one invitation; LoggedOutAt moves from nil to a
// timestamp exactly once.
type Session struct {
	ID             string
	InvitationID   string
	UserID         string
	UserEmail      string
	SessionToken   string // opaque, single use per login
	DeviceInfo     string
	AutoLogout     bool
	LoggedInAt     time.Time
	LastActivityAt time.Time
	LoggedOutAt    *time.Time // nil while the session is open
	LogoutReason   string
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.LoggedOutAt == nil
}
