package domain

import "fmt"

// EntityKind names the kind of entity an invalidation tag refers to.
type EntityKind string

const (
	EntityArticle  EntityKind = "Article"
	EntityCategory EntityKind = "Category"
	EntitySession  EntityKind = "Session"
)

// Tag labels cached data. A zero ID is the generic tag for the kind.
type Tag struct {
	Kind EntityKind
	ID   string
}

// ArticleTag returns the generic listing tag.
func ArticleTag() Tag { return Tag{Kind: EntityArticle} }

// ArticleIDTag returns the identity-scoped tag of one article.
func ArticleIDTag(id string) Tag { return Tag{Kind: EntityArticle, ID: id} }

func CategoryTag() Tag { return Tag{Kind: EntityCategory} }

// SessionTag scopes cached data to one authenticated subject.
func SessionTag(subject string) Tag { return Tag{Kind: EntitySession, ID: subject} }

func (t Tag) Generic() bool { return t.ID == "" }

func (t Tag) String() string {
	if t.ID == "" {
		return string(t.Kind)
	}
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

type invalidation struct {
	entity  bool
	generic bool
}

// invalidations maps each mutation to the tags it fires.
var invalidations = map[MutationKind]invalidation{
	MutationCreate:  {generic: true},
	MutationEdit:    {entity: true, generic: true},
	MutationDelete:  {entity: true, generic: true},
	MutationPublish: {entity: true, generic: true},
	MutationReject:  {entity: true, generic: true},
}

// InvalidatedBy returns the tags a successful mutation on article id must fire.
func InvalidatedBy(m MutationKind, id string) []Tag {
	rule, ok := invalidations[m]
	if !ok {
		return nil
	}
	tags := make([]Tag, 0, 2)
	if rule.entity && id != "" {
		tags = append(tags, ArticleIDTag(id))
	}
	if rule.generic {
		tags = append(tags, ArticleTag())
	}
	return tags
}
