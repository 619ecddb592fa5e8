package controller

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/testutil"
)

func newRecords(t *testing.T) (*platform.RecordsClient, *testutil.FakePlatform) {
	t.Helper()
	backend := testutil.NewFakePlatform()
	t.Cleanup(backend.Close)
	return platform.NewRecordsClient(backend.URL(), "anon-key", &http.Client{}), backend
}

func TestTimelineLoadAndCreate(t *testing.T) {
	records, backend := newRecords(t)
	backend.Seed("posts", testutil.RandomPost("author-1"))
	backend.Seed("posts", testutil.RandomPost("author-2"))

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), nil))
	require.Len(t, tl.Posts.Values(), 2)

	author := &models.Identity{ID: "author-1", Role: models.RoleUser}
	created, err := tl.CreatePost(context.Background(), author, "hello team", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// Confirmed creations land at the head of the timeline.
	values := tl.Posts.Values()
	require.Len(t, values, 3)
	assert.Equal(t, created.ID, values[0].ID)
}

func TestTimelineCreateRequiresContent(t *testing.T) {
	records, _ := newRecords(t)
	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), nil))

	author := &models.Identity{ID: "author-1"}
	_, err := tl.CreatePost(context.Background(), author, "   ", nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	// An image-only post is fine.
	_, err = tl.CreatePost(context.Background(), author, "", []string{"https://img.test/a.jpg"}, nil)
	assert.NoError(t, err)
}

func TestTimelineEditPostAuthorOnly(t *testing.T) {
	records, backend := newRecords(t)
	post := testutil.RandomPost("author-1")
	backend.Seed("posts", post)

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), nil))

	stranger := &models.Identity{ID: "someone-else"}
	_, err := tl.EditPost(context.Background(), stranger, post.ID, "hijacked")
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))

	// Admins may delete but not rewrite someone else's post.
	admin := &models.Identity{ID: "admin-1", Role: models.RoleAdmin}
	_, err = tl.EditPost(context.Background(), admin, post.ID, "still not yours")
	require.Error(t, err)

	author := &models.Identity{ID: "author-1"}
	updated, err := tl.EditPost(context.Background(), author, post.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
}

func TestTimelineDeletePostAdminOverride(t *testing.T) {
	records, backend := newRecords(t)
	post := testutil.RandomPost("author-1")
	backend.Seed("posts", post)

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), nil))

	stranger := &models.Identity{ID: "someone-else", Role: models.RoleUser}
	err := tl.DeletePost(context.Background(), stranger, post.ID)
	require.Error(t, err)

	admin := &models.Identity{ID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, tl.DeletePost(context.Background(), admin, post.ID))
	assert.Empty(t, tl.Posts.Values())
	assert.Empty(t, backend.Rows("posts"))
}

func TestTimelineToggleLikeWritesMembershipAndCounter(t *testing.T) {
	records, backend := newRecords(t)
	post := testutil.RandomPost("author-1")
	backend.Seed("posts", post)

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), nil))

	_, err := tl.ToggleLikePost(context.Background(), "alice", post.ID)
	require.NoError(t, err)

	likes := backend.Rows("post_likes")
	require.Len(t, likes, 1)
	assert.Equal(t, post.ID, likes[0]["post_id"])
	assert.Equal(t, "alice", likes[0]["user_id"])

	posts := backend.Rows("posts")
	require.Len(t, posts, 1)
	assert.Equal(t, float64(1), posts[0]["like_count"])
}

func TestTimelineCommentsThread(t *testing.T) {
	records, backend := newRecords(t)
	post := testutil.RandomPost("author-1")
	backend.Seed("posts", post)

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadComments(context.Background(), post.ID))
	assert.Empty(t, tl.Comments.Values())

	top, err := tl.AddComment(context.Background(), "alice", post.ID, nil, "first!")
	require.NoError(t, err)

	reply, err := tl.AddComment(context.Background(), "bob", post.ID, &top.ID, "welcome")
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)
	assert.Equal(t, top.ID, *reply.ParentCommentID)

	// Comments append in chronological order.
	values := tl.Comments.Values()
	require.Len(t, values, 2)
	assert.Equal(t, top.ID, values[0].ID)
}

func TestTimelineGroupFilter(t *testing.T) {
	records, backend := newRecords(t)
	group := "g1"
	p1 := testutil.RandomPost("author-1")
	p1.GroupID = &group
	backend.Seed("posts", p1)
	backend.Seed("posts", testutil.RandomPost("author-2"))

	tl := NewTimeline(records)
	defer tl.Close()
	require.NoError(t, tl.LoadFeed(context.Background(), &group))

	values := tl.Posts.Values()
	require.Len(t, values, 1)
	assert.Equal(t, p1.ID, values[0].ID)
}
