package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/folio_comments/internal/model"
	"github.com/qs3c/folio_comments/internal/model/dto"
)

var threadBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func row(id string, parent string, minute int) model.Comment {
	c := model.Comment{
		ID:        id,
		PostSlug:  "hello-world",
		Content:   "comment " + id,
		CreatedAt: threadBase.Add(time.Duration(minute) * time.Minute),
		UpdatedAt: threadBase.Add(time.Duration(minute) * time.Minute),
	}
	if parent != "" {
		p := parent
		c.ParentID = &p
	}
	return c
}

func ids(items []*dto.CommentItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestBuildThread_NestedReplies(t *testing.T) {
	rows := []model.Comment{
		row("1", "", 1),
		row("2", "1", 2),
		row("3", "1", 3),
		row("4", "2", 4),
	}

	tree := BuildThread(rows, ThreadOptions{})

	require.Len(t, tree, 1)
	assert.Equal(t, "1", tree[0].ID)
	assert.Equal(t, []string{"2", "3"}, ids(tree[0].Replies))
	assert.Equal(t, []string{"4"}, ids(tree[0].Replies[0].Replies))
	assert.Empty(t, tree[0].Replies[1].Replies)
}

func TestBuildThread_OrphanBecomesTopLevel(t *testing.T) {
	rows := []model.Comment{
		row("1", "", 1),
		row("2", "missing", 2),
		row("3", "2", 3),
	}

	tree := BuildThread(rows, ThreadOptions{})

	assert.Equal(t, []string{"1", "2"}, ids(tree))
	assert.Equal(t, []string{"3"}, ids(tree[1].Replies))
}

func TestBuildThread_SortsByCreatedAt(t *testing.T) {
	// Input order differs from creation order
	rows := []model.Comment{
		row("3", "1", 5),
		row("2", "", 3),
		row("1", "", 1),
		row("4", "1", 4),
	}

	tree := BuildThread(rows, ThreadOptions{})

	assert.Equal(t, []string{"1", "2"}, ids(tree))
	assert.Equal(t, []string{"4", "3"}, ids(tree[0].Replies))
}

func TestBuildThread_SameTimestampOrdersByID(t *testing.T) {
	rows := []model.Comment{
		row("p", "", 0),
		row("c", "p", 2),
		row("a", "p", 2),
		row("b", "p", 2),
	}

	tree := BuildThread(rows, ThreadOptions{})

	require.Len(t, tree, 1)
	assert.Equal(t, []string{"a", "b", "c"}, ids(tree[0].Replies))
}

func TestBuildThread_NewestFirstKeepsRepliesAscending(t *testing.T) {
	rows := []model.Comment{
		row("1", "", 1),
		row("2", "", 2),
		row("3", "1", 3),
		row("4", "1", 4),
	}

	tree := BuildThread(rows, ThreadOptions{Order: OrderNewest})

	assert.Equal(t, []string{"2", "1"}, ids(tree))
	assert.Equal(t, []string{"3", "4"}, ids(tree[1].Replies))
}

func TestBuildThread_CycleDoesNotDropComments(t *testing.T) {
	rows := []model.Comment{
		row("a", "b", 1),
		row("b", "a", 2),
		row("c", "a", 3),
		row("self", "self", 4),
	}

	tree := BuildThread(rows, ThreadOptions{})

	assert.Equal(t, []string{"a", "b", "self"}, ids(tree))
	assert.Equal(t, []string{"c"}, ids(tree[0].Replies))
	assert.Empty(t, tree[1].Replies)
}

func TestBuildThread_ViewerReactions(t *testing.T) {
	rows := []model.Comment{
		row("1", "", 1),
		row("2", "1", 2),
	}
	rows[0].ReactionsCount = 3

	tree := BuildThread(rows, ThreadOptions{Reacted: map[string]struct{}{"2": {}}})

	require.Len(t, tree, 1)
	assert.False(t, tree[0].ViewerHasReacted)
	assert.Equal(t, int64(3), tree[0].ReactionsCount)
	assert.True(t, tree[0].Replies[0].ViewerHasReacted)
}

func TestBuildThread_ItemFields(t *testing.T) {
	c := row("1", "", 0)
	c.Content = "**bold** <script>alert(1)</script>"
	c.AuthorID = "u1"
	c.AuthorName = "Ada"
	c.AuthorEmail = "ada@example.com"
	c.AuthorImage = "https://img.example.com/ada.png"

	tree := BuildThread([]model.Comment{c}, ThreadOptions{})

	require.Len(t, tree, 1)
	item := tree[0]
	assert.Nil(t, item.ParentID)
	assert.Equal(t, "hello-world", item.PostSlug)
	assert.Equal(t, &dto.CommentAuthor{ID: "u1", Name: "Ada", Image: "https://img.example.com/ada.png"}, item.Author)
	assert.Contains(t, item.ContentHTML, "<strong>bold</strong>")
	assert.NotContains(t, item.ContentHTML, "<script>")
	assert.False(t, item.IsDeleted)
	assert.Equal(t, "2026-03-01T12:00:00Z", item.CreatedAt)
	assert.NotNil(t, item.Replies)
}

func TestBuildThread_Empty(t *testing.T) {
	tree := BuildThread(nil, ThreadOptions{})
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestParseTopLevelOrder(t *testing.T) {
	assert.Equal(t, OrderNewest, ParseTopLevelOrder("newest"))
	assert.Equal(t, OrderOldest, ParseTopLevelOrder("oldest"))
	assert.Equal(t, OrderOldest, ParseTopLevelOrder(""))
	assert.Equal(t, OrderOldest, ParseTopLevelOrder("random"))
}
