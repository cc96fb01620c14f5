package domain

// Action is a permission-checked operation.
type Action int

const (
	ActionCreateArticle Action = iota + 1
	ActionEditArticle
	ActionDeleteArticle
	ActionPublishArticle
	ActionRejectArticle
	ActionViewUnpublished
)

// Actions lists every action.
var Actions = []Action{
	ActionCreateArticle,
	ActionEditArticle,
	ActionDeleteArticle,
	ActionPublishArticle,
	ActionRejectArticle,
	ActionViewUnpublished,
}

func (a Action) String() string {
	switch a {
	case ActionCreateArticle:
		return "CREATE_ARTICLE"
	case ActionEditArticle:
		return "EDIT_ARTICLE"
	case ActionDeleteArticle:
		return "DELETE_ARTICLE"
	case ActionPublishArticle:
		return "PUBLISH_ARTICLE"
	case ActionRejectArticle:
		return "REJECT_ARTICLE"
	case ActionViewUnpublished:
		return "VIEW_UNPUBLISHED"
	}
	return "UNKNOWN"
}

// ParseAction resolves the upper-case action name.
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}

// MutationKind is a workflow mutation dispatched to the remote authority.
type MutationKind int

const (
	MutationCreate MutationKind = iota + 1
	MutationEdit
	MutationDelete
	MutationPublish
	MutationReject
)

var Mutations = []MutationKind{MutationCreate, MutationEdit, MutationDelete, MutationPublish, MutationReject}

func (m MutationKind) String() string {
	switch m {
	case MutationCreate:
		return "create"
	case MutationEdit:
		return "edit"
	case MutationDelete:
		return "delete"
	case MutationPublish:
		return "publish"
	case MutationReject:
		return "reject"
	}
	return "unknown"
}

// Action returns the permission a mutation requires.
func (m MutationKind) Action() Action {
	switch m {
	case MutationCreate:
		return ActionCreateArticle
	case MutationEdit:
		return ActionEditArticle
	case MutationDelete:
		return ActionDeleteArticle
	case MutationPublish:
		return ActionPublishArticle
	case MutationReject:
		return ActionRejectArticle
	}
	return 0
}
