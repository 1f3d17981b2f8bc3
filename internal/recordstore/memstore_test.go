package recordstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/usercrud/internal/user"
)

func TestMemStore_LoadReturnsCopy(t *testing.T) {
	s := NewMemStore(sampleUsers()...)
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	got[0].Name = "mutated"
	*got[1].Age = 99

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleUsers(), again)
}

func TestMemStore_SaveStoresCopy(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	users := sampleUsers()
	require.NoError(t, s.Save(ctx, users))
	users[0].Name = "mutated"

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, 1, s.Saves())
}

func TestMemStore_SaveErr(t *testing.T) {
	s := NewMemStore(sampleUsers()...)
	s.SaveErr = errors.New("disk full")

	err := s.Save(context.Background(), nil)
	require.EqualError(t, err, "disk full")

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 0, s.Saves())
}

func TestMemStore_EmptyLoadIsNonNil(t *testing.T) {
	got, err := NewMemStore().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []user.User{}, got)
}
