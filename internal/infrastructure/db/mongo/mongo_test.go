package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

func TestListFilter(t *testing.T) {
	if got := listFilter(ports.ListArticlesFilter{}); len(got) != 0 {
		t.Fatalf("expected empty filter, got %v", got)
	}
	got := listFilter(ports.ListArticlesFilter{Status: domain.StatusPublished, AuthorID: "u1"})
	if got["status"] != "PUBLISHED" || got["author_id"] != "u1" {
		t.Fatalf("unexpected filter %v", got)
	}
}

func TestArticleBSONRoundTrip(t *testing.T) {
	in := domain.Article{
		ID: "a1", Title: "T", Content: "C", CategoryID: "c1", AuthorID: "u1",
		Status: domain.StatusRejected, RejectionReason: "sources",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	}
	raw, err := bson.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	if doc["_id"] != "a1" || doc["author_id"] != "u1" || doc["status"] != "REJECTED" {
		t.Fatalf("unexpected document %v", doc)
	}

	var out domain.Article
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal article: %v", err)
	}
	if out.RejectionReason != "sources" || !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}

func TestMongoUserToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	u := mongoUser{ID: oid, Email: "a@b.c", Role: "REDACTEUR", CreatedAt: 1700000000}.toDomain()
	if u.ID != oid.Hex() || u.Role != domain.RoleAuthor {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.UpdatedAt != (time.Time{}) || u.CreatedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected timestamps %+v", u)
	}
}
