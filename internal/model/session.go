package model

import "fmt"

// Session identifies the user a request acts on behalf of. It is passed
// explicitly to every operation that reads or writes user data.
type Session struct {
	RequestID string
	UserID    int64
}

// Validate ensures the session carries an authenticated user.
func (s Session) Validate() error {
	if s.UserID <= 0 {
		return fmt.Errorf("session has no user (got id %d)", s.UserID)
	}
	return nil
}
