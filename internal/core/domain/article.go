package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ArticleStatus is the workflow state of an article.
type ArticleStatus string

const (
	StatusPending   ArticleStatus = "PENDING"
	StatusPublished ArticleStatus = "PUBLISHED"
	StatusRejected  ArticleStatus = "REJECTED"
)

// Statuses lists every status in workflow order.
var Statuses = []ArticleStatus{StatusPending, StatusPublished, StatusRejected}

var statusAliases = map[string]ArticleStatus{
	"PENDING":               StatusPending,
	"EN_ATTENTE_VALIDATION": StatusPending,
	"PUBLISHED":             StatusPublished,
	"VALIDE":                StatusPublished,
	"REJECTED":              StatusRejected,
	"REJETE":                StatusRejected,
}

// ParseStatus accepts canonical names and the upstream aliases.
func ParseStatus(s string) (ArticleStatus, error) {
	if st, ok := statusAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown article status %q", s)
}

func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPublished, StatusRejected:
		return true
	}
	return false
}

func (s ArticleStatus) String() string { return string(s) }

// UnmarshalJSON normalises upstream aliases into the canonical status.
func (s *ArticleStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Article is the moderated content entity.
type Article struct {
	ID              string        `json:"id" bson:"_id,omitempty"`
	Title           string        `json:"title" bson:"title"`
	Content         string        `json:"content" bson:"content"`
	CategoryID      string        `json:"categoryId" bson:"category_id"`
	CategoryName    string        `json:"categoryName,omitempty" bson:"category_name,omitempty"`
	CoverImage      string        `json:"coverImage,omitempty" bson:"cover_image,omitempty"`
	AuthorID        string        `json:"authorId" bson:"author_id"`
	AuthorFirstName string        `json:"authorFirstName,omitempty" bson:"author_first_name,omitempty"`
	AuthorLastName  string        `json:"authorLastName,omitempty" bson:"author_last_name,omitempty"`
	Status          ArticleStatus `json:"status" bson:"status"`
	CreatedAt       time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updated_at"`
	RejectionReason string        `json:"rejectionReason,omitempty" bson:"rejection_reason,omitempty"`
}

// Check verifies the entity invariants that hold in every state.
func (a *Article) Check() error {
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, a.Status)
	}
	if a.Status == StatusRejected && strings.TrimSpace(a.RejectionReason) == "" {
		return fmt.Errorf("%w: rejected article without reason", ErrValidation)
	}
	if !a.CreatedAt.IsZero() && a.UpdatedAt.Before(a.CreatedAt) {
		return fmt.Errorf("%w: updated before created", ErrValidation)
	}
	return nil
}

// Editable reports whether content edits are allowed in the current state.
func (a *Article) Editable() bool {
	switch a.Status {
	case StatusPending, StatusRejected:
		return true
	case StatusPublished:
		return false
	}
	return false
}

// Draft is the author-supplied content of an article.
type Draft struct {
	Title      string        `json:"title" yaml:"title" validate:"required,notblank,min=5"`
	Content    string        `json:"content" yaml:"content" validate:"required,notblank,min=50"`
	CategoryID string        `json:"categoryId" yaml:"categoryId" validate:"required"`
	CoverImage string        `json:"coverImage,omitempty" yaml:"coverImage,omitempty"`
	Status     ArticleStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// Category is an opaque referenced taxonomy entry.
type Category struct {
	ID   string `json:"id" bson:"_id,omitempty"`
	Name string `json:"name" bson:"name"`
}

// Page is one page of a listing.
type Page struct {
	Content       []Article `json:"content"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
}

// Last reports whether no further page exists after p.
func (p *Page) Last() bool {
	return p.Number+1 >= p.TotalPages
}

// Stats counts articles per status.
type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Published int64 `json:"published"`
	Rejected  int64 `json:"rejected"`
}
