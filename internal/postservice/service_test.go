package postservice

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/search"
)

// fakeSource serves a fixed set of posts.
type fakeSource struct {
	posts map[string]*models.Post
	order []*models.Post
	block bool
}

func newFake(posts ...*models.Post) *fakeSource {
	f := &fakeSource{posts: map[string]*models.Post{}}
	for _, p := range posts {
		f.posts[p.Key] = p
		f.order = append(f.order, p)
	}
	return f
}

func (f *fakeSource) Get(ctx context.Context, key string) (*models.Post, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p, ok := f.posts[key]; ok {
		return p, nil
	}
	return nil, content.ErrNotFound
}

func (f *fakeSource) List(ctx context.Context) (*content.Index, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ix := &content.Index{Version: 9}
	for _, p := range f.order {
		ix.Entries = append(ix.Entries, content.Summarize(p))
	}
	return ix, nil
}

func mkPost(key, title string, day int, tags ...string) *models.Post {
	return &models.Post{
		Key:   key,
		Title: title,
		Tags:  tags,
		Front: models.Front{Date: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)},
	}
}

func testDB(t *testing.T) *search.DB {
	t.Helper()
	db, err := search.Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestListPosts_FiltersAndPages(t *testing.T) {
	draft := mkPost("draft.md", "Draft", 5, "go")
	draft.Front.Draft = true
	src := newFake(
		mkPost("c.md", "Gamma", 4, "go"),
		draft,
		mkPost("b.md", "Beta", 3, "Life"),
		mkPost("a.md", "Alpha", 2, "go"),
	)
	svc := NewService(src, testDB(t), time.Second)
	ctx := context.Background()

	res, err := svc.ListPosts(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, uint64(9), res.Version)

	res, err = svc.ListPosts(ctx, ListOptions{Drafts: true, Tag: "GO"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	res, err = svc.ListPosts(ctx, ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "b.md", res.Posts[0].Key)
	assert.Equal(t, 3, res.Total)

	res, err = svc.ListPosts(ctx, ListOptions{Offset: 99})
	require.NoError(t, err)
	assert.Empty(t, res.Posts)

	res, err = svc.ListPosts(ctx, ListOptions{Match: "alp"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Posts)
	assert.Equal(t, "a.md", res.Posts[0].Key)
}

func TestFind(t *testing.T) {
	svc := NewService(newFake(
		mkPost("posts/rust-actors.md", "Actors in Rust", 1),
		mkPost("posts/go-channels.md", "Channels in Go", 2),
	), testDB(t), time.Second)

	got, err := svc.Find(context.Background(), "chan", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "posts/go-channels.md", got[0].Key)

	got, err = svc.Find(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPost_Backlinks(t *testing.T) {
	target := mkPost("posts/hello.md", "Hello World", 1)
	target.Links = []string{"hello"}
	db := testDB(t)
	now := time.Now()
	require.NoError(t, db.UpsertPost(search.PostRow{Key: "a.md", Date: now}, "", []string{"hello"}))
	require.NoError(t, db.UpsertPost(search.PostRow{Key: "b.md", Date: now}, "", []string{"Hello World"}))
	require.NoError(t, db.UpsertPost(search.PostRow{Key: "c.md", Date: now}, "", []string{"posts/hello.md"}))
	require.NoError(t, db.UpsertPost(search.PostRow{Key: "posts/hello.md", Date: now}, "", []string{"hello"}))

	svc := NewService(newFake(target), db, time.Second)
	got, err := svc.GetPost(context.Background(), "posts/hello.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, got.Backlinks)
	assert.Equal(t, "/blog/posts/hello.md", got.Link)
	assert.Equal(t, []string{}, got.Tags)
}

func TestGetPost_NotFound(t *testing.T) {
	svc := NewService(newFake(), testDB(t), time.Second)
	_, err := svc.GetPost(context.Background(), "nope.md")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTimeoutAbandonsRequest(t *testing.T) {
	src := newFake()
	src.block = true
	svc := NewService(src, testDB(t), 20*time.Millisecond)

	_, err := svc.Post(context.Background(), "a.md")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = svc.ListPosts(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch_EmptyIsNotNil(t *testing.T) {
	svc := NewService(newFake(), testDB(t), time.Second)
	res, err := svc.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, res)
}
