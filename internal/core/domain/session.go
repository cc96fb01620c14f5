package domain

import "time"

// Identity is the actor derived from a token's claims.
type Identity struct {
	SubjectID string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Role      Role      `json:"role" yaml:"role"`
	FirstName string    `json:"firstName" yaml:"firstName"`
	LastName  string    `json:"lastName" yaml:"lastName"`
	ExpiresAt time.Time `json:"exp" yaml:"exp"`
}

// FullName joins first and last name.
func (i Identity) FullName() string {
	switch {
	case i.FirstName == "":
		return i.LastName
	case i.LastName == "":
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}

// Session pairs the raw bearer token with the identity derived from it.
type Session struct {
	Token    string
	Identity Identity
}

// Expired reports whether now is at or past the session expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Identity.ExpiresAt)
}

// Active reports whether s is non-nil and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && !s.Expired(now)
}

// Owns reports whether the session's subject authored a.
func (s *Session) Owns(a *Article) bool {
	return s != nil && a != nil && a.AuthorID != "" && a.AuthorID == s.Identity.SubjectID
}
