package library

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/internal/shared"
	"penx/pkg/models"
)

func ids(nodes []*models.CommentNode) []int64 {
	out := []int64{}
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuildCommentTree(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }
	parent := func(id int64) *int64 { return &id }
	deleted := at(100)

	rows := []models.Comment{
		{ID: 5, Comment: "orphan", ParentID: parent(99), CreatedAt: at(5)},
		{ID: 4, Comment: "reply to deleted", ParentID: parent(3), CreatedAt: at(4)},
		{ID: 2, Comment: "reply", ParentID: parent(1), CreatedAt: at(3)},
		{ID: 3, Comment: "gone", CreatedAt: at(2), DeletedAt: &deleted},
		{ID: 6, Comment: "same second", CreatedAt: at(1)},
		{ID: 1, Comment: "first", CreatedAt: at(1)},
	}

	tree := BuildCommentTree(rows)
	require.Equal(t, []int64{1, 6, 5}, ids(tree))
	assert.Equal(t, "comment", tree[0].Type)
	require.Equal(t, []int64{2}, ids(tree[0].Replies))
	assert.Equal(t, "reply", tree[0].Replies[0].Type)
	assert.Empty(t, tree[1].Replies)
	assert.NotNil(t, tree[1].Replies)
	assert.Equal(t, "comment", tree[2].Type)
}

func TestBuildCommentTreeEmpty(t *testing.T) {
	tree := BuildCommentTree(nil)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestAddCommentAndReplies(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	top, err := f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A", Comment: "hello"})
	require.NoError(t, err)
	reply, err := f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "b@x.io", UserName: "B", Comment: "hi", ParentID: &top.ID})
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "c@x.io", UserName: "C", Comment: "deep", ParentID: &reply.ID})
	assertCode(t, http.StatusBadRequest, err)

	missing := int64(404)
	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "c@x.io", UserName: "C", Comment: "?", ParentID: &missing})
	assertCode(t, http.StatusBadRequest, err)

	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: " ", UserName: "C", Comment: "x"})
	assertCode(t, http.StatusBadRequest, err)

	// replies may point at a comment of another book
	cross, err := f.svc.AddComment(ctx, models.CommentRequest{BookID: "2", UserEmail: "c@x.io", UserName: "C", Comment: "cross", ParentID: &top.ID})
	require.NoError(t, err)
	assert.Equal(t, "2", cross.BookID)

	tree, err := f.svc.CommentTree(ctx, "1")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, []int64{reply.ID}, ids(tree[0].Replies))

	other, err := f.svc.CommentTree(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []int64{cross.ID}, ids(other))

	events := f.feed.all()
	require.Len(t, events, 3)
	assert.Equal(t, shared.CommentAdded, events[0].Type)
	assert.Equal(t, "1", events[0].BookID)
	assert.Equal(t, "2", events[2].BookID)
}

func TestAddCommentZeroParentIsTopLevel(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	zero := int64(0)
	c, err := f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A", Comment: "hello", ParentID: &zero})
	require.NoError(t, err)
	assert.Nil(t, c.ParentID)

	tree, err := f.svc.CommentTree(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(tree))
	assert.Equal(t, "comment", tree[0].Type)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	top, err := f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A", Comment: "hello"})
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "b@x.io", UserName: "B", Comment: "hi", ParentID: &top.ID})
	require.NoError(t, err)

	err = f.svc.DeleteComment(ctx, top.ID, "b@x.io")
	assertCode(t, http.StatusNotFound, err)
	err = f.svc.DeleteComment(ctx, 999, "a@x.io")
	assertCode(t, http.StatusNotFound, err)
	err = f.svc.DeleteComment(ctx, top.ID, "")
	assertCode(t, http.StatusBadRequest, err)

	require.NoError(t, f.svc.DeleteComment(ctx, top.ID, "a@x.io"))
	require.NoError(t, f.svc.DeleteComment(ctx, top.ID, "a@x.io"))

	tree, err := f.svc.CommentTree(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, tree)

	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "1", UserEmail: "c@x.io", UserName: "C", Comment: "late", ParentID: &top.ID})
	assertCode(t, http.StatusBadRequest, err)

	events := f.feed.all()
	last := events[len(events)-1]
	assert.Equal(t, shared.CommentDeleted, last.Type)
	assert.Equal(t, top.ID, last.CommentID)
	assert.Equal(t, "1", last.BookID)
}
