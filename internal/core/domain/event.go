package domain

import "time"

// ArticleEvent records one committed workflow transition.
type ArticleEvent struct {
	ArticleID string        `json:"articleId" bson:"article_id"`
	Mutation  string        `json:"mutation" bson:"mutation"`
	Status    ArticleStatus `json:"status,omitempty" bson:"status,omitempty"`
	ActorID   string        `json:"actorId" bson:"actor_id"`
	Reason    string        `json:"reason,omitempty" bson:"reason,omitempty"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
}
