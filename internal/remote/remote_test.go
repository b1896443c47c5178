package remote_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileynet/postdeck/internal/post"
	"github.com/smileynet/postdeck/internal/remote"
	"github.com/smileynet/postdeck/internal/remote/remotetest"
)

func seed() []post.Post {
	return []post.Post{
		{ID: 1, Title: "first", Body: "one", OwnerID: 1},
		{ID: 2, Title: "second", Body: "two", OwnerID: 2},
	}
}

func TestClient_List(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	c := remote.NewClient(srv.URL)

	posts, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed(), posts)
	assert.Equal(t, 1, srv.Hits(http.MethodGet, remotetest.Collection))
}

func TestClient_List_EmptyCollectionIsNotNil(t *testing.T) {
	srv := remotetest.New(t)
	posts, err := remote.NewClient(srv.URL).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestClient_List_StatusError(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	srv.Fail(http.MethodGet, remotetest.Collection, http.StatusInternalServerError)

	_, err := remote.NewClient(srv.URL).List(context.Background())
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "/posts", se.Path)
}

func TestClient_Get(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	c := remote.NewClient(srv.URL)

	p, err := c.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "second", p.Title)

	_, err = c.Get(context.Background(), 99)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestClient_Create(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	c := remote.NewClient(srv.URL)

	p, err := c.Create(context.Background(), post.Draft{Title: "T", Body: "B", OwnerID: 4})
	require.NoError(t, err)
	assert.Equal(t, post.Post{ID: 3, Title: "T", Body: "B", OwnerID: 4}, p)
	assert.Len(t, srv.Posts(), 3)
}

func TestClient_Delete(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	c := remote.NewClient(srv.URL)

	require.NoError(t, c.Delete(context.Background(), 1))
	assert.Equal(t, []post.Post{seed()[1]}, srv.Posts())

	srv.Fail(http.MethodDelete, remotetest.Item, http.StatusForbidden)
	err := c.Delete(context.Background(), 2)
	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := remotetest.New(t)
	url := srv.URL
	srv.Close()

	_, err := remote.NewClient(url).List(context.Background())
	require.Error(t, err)
	var se *remote.StatusError
	assert.False(t, errors.As(err, &se), "transport failures are not status errors")
}

func TestClient_Timeout(t *testing.T) {
	srv := remotetest.New(t, seed()...)
	_, release := srv.Hold(http.MethodGet, remotetest.Collection)
	defer release()

	c := remote.NewClient(srv.URL, remote.WithTimeout(50*time.Millisecond))
	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_Defaults(t *testing.T) {
	assert.Equal(t, remote.DefaultBaseURL, remote.NewClient("").BaseURL())
	assert.Equal(t, "http://x", remote.NewClient("http://x/").BaseURL())
}
