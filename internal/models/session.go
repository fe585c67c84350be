package models

import "time"

// SessionState groups the mutable fields of one interactive session.
type SessionState struct {
	ID           string    `json:"id"`
	Files        FileSet   `json:"files"`
	Description  string    `json:"description"`
	Output       string    `json:"output"`
	ResetCounter int64     `json:"reset_counter"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSessionState returns the default state for a fresh session.
func NewSessionState(id string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Generated reports whether a successful generation has completed.
func (s *SessionState) Generated() bool {
	return s.Output != ""
}

// Reset clears every field except the identity and bumps the reset counter.
func (s *SessionState) Reset() {
	s.Files = FileSet{}
	s.Description = ""
	s.Output = ""
	s.LastError = ""
	s.ResetCounter++
}

// Clear drops the output and uploaded files but keeps the reset counter.
func (s *SessionState) Clear() {
	s.Files = FileSet{}
	s.Output = ""
	s.LastError = ""
}

// Clone returns a deep copy safe to hand to renderers.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Files = s.Files.Clone()
	return &c
}
