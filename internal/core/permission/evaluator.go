// Package permission decides whether a session may perform an action on a
// resource. Evaluation is pure: it reads nothing but its arguments.
package permission

import (
	"time"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// Decision is the outcome of one evaluation. It is never persisted.
type Decision struct {
	Action  domain.Action
	Allowed bool
	Reason  string
}

func allow(a domain.Action) Decision { return Decision{Action: a, Allowed: true} }

func deny(a domain.Action, reason string) Decision {
	return Decision{Action: a, Reason: reason}
}

// CanPerform reports whether sess may perform action on resource at now.
func CanPerform(sess *domain.Session, now time.Time, action domain.Action, resource *domain.Article) bool {
	return Evaluate(sess, now, action, resource).Allowed
}

// Evaluate applies the role × action × ownership × status rules. An absent
// or expired session is denied every action.
func Evaluate(sess *domain.Session, now time.Time, action domain.Action, resource *domain.Article) Decision {
	if sess == nil {
		return deny(action, "no session")
	}
	if sess.Expired(now) {
		return deny(action, "session expired")
	}

	switch sess.Identity.Role {
	case domain.RoleAuthor:
		return evaluateAuthor(sess, action, resource)
	case domain.RoleEditor:
		return evaluateEditor(sess, action, resource)
	}
	return deny(action, "unknown role")
}

func evaluateAuthor(sess *domain.Session, action domain.Action, res *domain.Article) Decision {
	switch action {
	case domain.ActionCreateArticle:
		return allow(action)
	case domain.ActionEditArticle, domain.ActionDeleteArticle:
		return ownership(sess, action, res)
	case domain.ActionPublishArticle, domain.ActionRejectArticle:
		return deny(action, "authors cannot change article status")
	case domain.ActionViewUnpublished:
		if res == nil {
			return deny(action, "authors may only view their own unpublished articles")
		}
		return ownership(sess, action, res)
	}
	return deny(action, "unknown action")
}

func evaluateEditor(sess *domain.Session, action domain.Action, res *domain.Article) Decision {
	switch action {
	case domain.ActionCreateArticle:
		return deny(action, "editors do not author articles")
	case domain.ActionEditArticle, domain.ActionDeleteArticle:
		return ownership(sess, action, res)
	case domain.ActionPublishArticle:
		if res == nil {
			return deny(action, "no article")
		}
		if res.Status == domain.StatusPublished {
			return deny(action, "article already published")
		}
		return allow(action)
	case domain.ActionRejectArticle:
		if res == nil {
			return deny(action, "no article")
		}
		if res.Status == domain.StatusRejected {
			return deny(action, "article already rejected")
		}
		return allow(action)
	case domain.ActionViewUnpublished:
		return allow(action)
	}
	return deny(action, "unknown action")
}

func ownership(sess *domain.Session, action domain.Action, res *domain.Article) Decision {
	if res == nil {
		return deny(action, "no article")
	}
	if !sess.Owns(res) {
		return deny(action, "not the article's author")
	}
	return allow(action)
}
