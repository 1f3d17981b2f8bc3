package userapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/usercrud/internal/recordstore"
	"github.com/dusk-indust/usercrud/internal/user"
)

func newTestClient(t *testing.T, store recordstore.Store) *HTTPClient {
	t.Helper()
	base, _ := newTestServer(t, store)
	return NewHTTPClient(base + "/")
}

func TestHTTPClient_CRUDRoundTrip(t *testing.T) {
	c := newTestClient(t, recordstore.NewMemStore())
	ctx := context.Background()

	created, err := c.Create(ctx, user.CreateInput{Name: "Ana", Email: "ana@x.com", Age: user.NewAge(user.IntPtr(30))})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, user.IntPtr(30), created.Age)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.Update(ctx, created.ID, map[string]any{"name": "Ana María", "age": nil})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, "ana@x.com", updated.Email)
	assert.Nil(t, updated.Age)

	users, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []user.User{*updated}, users)

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestHTTPClient_APIErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, recordstore.NewMemStore())

	err := c.Delete(context.Background(), 42)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, MsgNotFound, apiErr.Message)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestHTTPClient_NonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).List(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.NotErrorIs(t, err, user.ErrNotFound)
}

func TestHTTPClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, WithTimeout(50*time.Millisecond))
	_, err := c.List(context.Background())
	assert.Error(t, err)
}

func TestHTTPClient_WithHTTPClient(t *testing.T) {
	hc := &http.Client{}
	c := NewHTTPClient("http://example.invalid", WithHTTPClient(hc))
	assert.Same(t, hc, c.http)
}

func TestHTTPClient_Subscribe(t *testing.T) {
	c := newTestClient(t, recordstore.NewMemStore())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := NewHTTPClient(c.baseURL, WithTimeout(0)).Subscribe(ctx)
	require.NoError(t, err)

	created, err := c.Create(ctx, user.CreateInput{Name: "Ana"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		assert.Equal(t, EventCreated, ev.Type)
		assert.Equal(t, created.ID, ev.User.ID)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}
