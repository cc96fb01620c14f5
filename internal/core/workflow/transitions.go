package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// nextFunc computes the status a mutation leads to from the current status
// for an actor of the given role.
type nextFunc func(role domain.Role, current domain.ArticleStatus) domain.ArticleStatus

type rule struct {
	from []domain.ArticleStatus // empty means any status
	next nextFunc
}

func fixed(s domain.ArticleStatus) nextFunc {
	return func(domain.Role, domain.ArticleStatus) domain.ArticleStatus { return s }
}

// editNext keeps an editor's status and sends an author's edit back to review.
func editNext(role domain.Role, current domain.ArticleStatus) domain.ArticleStatus {
	switch role {
	case domain.RoleAuthor:
		return domain.StatusPending
	case domain.RoleEditor:
		return current
	}
	return current
}

// transitions is the workflow table. Delete leads to no status.
var transitions = map[domain.MutationKind]rule{
	domain.MutationCreate:  {next: fixed(domain.StatusPending)},
	domain.MutationEdit:    {from: []domain.ArticleStatus{domain.StatusPending, domain.StatusRejected}, next: editNext},
	domain.MutationPublish: {next: fixed(domain.StatusPublished)},
	domain.MutationReject:  {next: fixed(domain.StatusRejected)},
	domain.MutationDelete:  {next: fixed("")},
}

// Next returns the status mutation m leads to from current, or
// domain.ErrInvalidTransition when m is not allowed from current.
func Next(m domain.MutationKind, role domain.Role, current domain.ArticleStatus) (domain.ArticleStatus, error) {
	r, ok := transitions[m]
	if !ok {
		return "", fmt.Errorf("%w: unknown mutation %s", domain.ErrInvalidTransition, m)
	}
	if len(r.from) > 0 && !contains(r.from, current) {
		return "", fmt.Errorf("%w: cannot %s a %s article", domain.ErrInvalidTransition, m, current)
	}
	return r.next(role, current), nil
}

// Apply writes the side effects of a committed transition onto a.
func Apply(m domain.MutationKind, a *domain.Article, next domain.ArticleStatus, reason string, now time.Time) {
	switch m {
	case domain.MutationPublish:
		a.RejectionReason = ""
	case domain.MutationReject:
		a.RejectionReason = strings.TrimSpace(reason)
	case domain.MutationEdit, domain.MutationCreate:
		if next != domain.StatusRejected {
			a.RejectionReason = ""
		}
	case domain.MutationDelete:
		return
	}
	a.Status = next
	if now.After(a.UpdatedAt) {
		a.UpdatedAt = now
	}
}

func contains(set []domain.ArticleStatus, s domain.ArticleStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
