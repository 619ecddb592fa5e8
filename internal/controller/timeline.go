package controller

import (
	"context"
	"strings"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/realtime"
	"worklink/internal/sync"
)

// Timeline owns the feed screen: the post list plus the comment thread of
// whichever post is open. Posts and comments are separate controllers
// because they load, subscribe and reconcile independently.
type Timeline struct {
	Posts    *sync.Controller[models.Post]
	Comments *sync.Controller[models.Comment]
}

// NewTimeline wires the timeline controllers over the records client.
func NewTimeline(records *platform.RecordsClient) *Timeline {
	posts := sync.New[models.Post](
		&tableStore[models.Post]{
			records: records,
			table:   "posts",
			orderBy: "created_at",
			buildFilters: func(f sync.Filter) []platform.Filter {
				if group, ok := f["group"]; ok && group != "" {
					return []platform.Filter{platform.Eq("group_id", group)}
				}
				return nil
			},
		},
		sync.Options[models.Post]{
			Table:    "posts",
			Prepend:  true,
			Validate: validatePost,
			Likes: &likeStore{
				records:         records,
				membershipTable: "post_likes",
				ownerColumn:     "post_id",
				entityTable:     "posts",
			},
			ToggleLocal: func(p models.Post, actorID string) (models.Post, bool) {
				ids, liked := toggleMembership(p.LikeUserIDs, actorID)
				p.LikeUserIDs = ids
				if liked {
					p.LikeCount++
				} else if p.LikeCount > 0 {
					p.LikeCount--
				}
				return p, liked
			},
		},
	)

	comments := sync.New[models.Comment](
		&tableStore[models.Comment]{
			records:   records,
			table:     "comments",
			orderBy:   "created_at",
			ascending: true,
			buildFilters: func(f sync.Filter) []platform.Filter {
				if post, ok := f["post"]; ok {
					return []platform.Filter{platform.Eq("post_id", post)}
				}
				return nil
			},
		},
		sync.Options[models.Comment]{
			Table: "comments",
			Validate: func(c models.Comment) error {
				if strings.TrimSpace(c.Content) == "" {
					return models.NewValidationError("Comment text is required")
				}
				return nil
			},
			Likes: &likeStore{
				records:         records,
				membershipTable: "comment_likes",
				ownerColumn:     "comment_id",
				entityTable:     "comments",
			},
			ToggleLocal: func(c models.Comment, actorID string) (models.Comment, bool) {
				ids, liked := toggleMembership(c.LikeUserIDs, actorID)
				c.LikeUserIDs = ids
				return c, liked
			},
		},
	)

	return &Timeline{Posts: posts, Comments: comments}
}

func validatePost(p models.Post) error {
	if strings.TrimSpace(p.Content) == "" && len(p.ImageURLs) == 0 {
		return models.NewValidationError("A post needs text or at least one image")
	}
	return nil
}

// LoadFeed fetches the timeline, optionally scoped to one group.
func (t *Timeline) LoadFeed(ctx context.Context, groupID *string) error {
	filter := sync.Filter{}
	if groupID != nil {
		filter["group"] = *groupID
	}
	return t.Posts.Load(ctx, filter)
}

// CreatePost publishes a new post for author. The confirmed server row,
// not the input, lands at the head of the list.
func (t *Timeline) CreatePost(ctx context.Context, author *models.Identity, content string, imageURLs []string, groupID *string) (models.Post, error) {
	return t.Posts.Create(ctx, models.Post{
		AuthorID:  author.ID,
		Content:   content,
		ImageURLs: imageURLs,
		GroupID:   groupID,
	})
}

// EditPost updates a post's text. Only the author may edit; admins may
// delete but not rewrite someone else's words.
func (t *Timeline) EditPost(ctx context.Context, actor *models.Identity, postID, content string) (models.Post, error) {
	var zero models.Post
	post, ok := t.findPost(postID)
	if !ok {
		return zero, models.NewNotFoundError("posts", postID)
	}
	if post.AuthorID != actor.ID {
		return zero, models.NewUnauthorizedError("Only the author can edit a post")
	}
	if strings.TrimSpace(content) == "" {
		return zero, models.NewValidationError("A post needs text or at least one image")
	}
	return t.Posts.Update(ctx, postID, map[string]any{"content": content}, func(p models.Post) models.Post {
		p.Content = content
		return p
	})
}

// DeletePost removes a post. Authors delete their own; admins delete any.
func (t *Timeline) DeletePost(ctx context.Context, actor *models.Identity, postID string) error {
	post, ok := t.findPost(postID)
	if !ok {
		return models.NewNotFoundError("posts", postID)
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return models.NewUnauthorizedError("Only the author or an admin can delete a post")
	}
	return t.Posts.Delete(ctx, postID)
}

// ToggleLikePost flips actor's like on a post.
func (t *Timeline) ToggleLikePost(ctx context.Context, actorID, postID string) (models.Post, error) {
	return t.Posts.ToggleLike(ctx, postID, actorID)
}

// LoadComments fetches the thread for one post, oldest first.
func (t *Timeline) LoadComments(ctx context.Context, postID string) error {
	return t.Comments.Load(ctx, sync.Filter{"post": postID})
}

// AddComment replies to a post, or to another comment when parentID is
// set. Depth is unbounded in the data; rendering collapses beyond two
// levels.
func (t *Timeline) AddComment(ctx context.Context, authorID, postID string, parentID *string, content string) (models.Comment, error) {
	return t.Comments.Create(ctx, models.Comment{
		PostID:          postID,
		ParentCommentID: parentID,
		AuthorID:        authorID,
		Content:         content,
	})
}

// ToggleLikeComment flips actor's like on a comment.
func (t *Timeline) ToggleLikeComment(ctx context.Context, actorID, commentID string) (models.Comment, error) {
	return t.Comments.ToggleLike(ctx, commentID, actorID)
}

// Close releases both controllers.
func (t *Timeline) Close() {
	t.Posts.Close()
	t.Comments.Close()
}

// PostsListener binds the post list to the change feed. The timeline is
// shared, so the subscription carries no identity filter.
func (t *Timeline) PostsListener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "posts", nil, t.Posts)
}

// CommentsListener binds the open thread to the change feed.
func (t *Timeline) CommentsListener(feed *platform.Feed) *realtime.Listener {
	return realtime.NewListener(feed, "comments", nil, t.Comments)
}

func (t *Timeline) findPost(id string) (models.Post, bool) {
	for _, p := range t.Posts.Values() {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}
