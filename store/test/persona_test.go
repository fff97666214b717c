package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/store"
)

func TestPersonaStore(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ts *store.Store) {
		ctx := context.Background()

		pair, err := ts.GetPersonas(ctx)
		require.NoError(t, err)
		require.Nil(t, pair.A)
		require.Nil(t, pair.B)
		require.False(t, pair.Complete())

		kevin := newTestingPersona("Kevin")
		jason := newTestingPersona("Jason")
		jason.Education.StudyAbroad = "伦敦政经"
		require.NoError(t, ts.SetPersonas(ctx, &store.PersonaPair{A: kevin, B: jason}))

		pair, err = ts.GetPersonas(ctx)
		require.NoError(t, err)
		require.True(t, pair.Complete())
		require.Equal(t, kevin, pair.A)
		require.Equal(t, jason, pair.B)

		b, err := ts.GetPersona(ctx, store.PersonaSlotB)
		require.NoError(t, err)
		require.Equal(t, "伦敦政经", b.Education.StudyAbroad)
	})
}

func TestPersonaStoreRequiresBoth(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ts *store.Store) {
		ctx := context.Background()

		err := ts.SetPersonas(ctx, &store.PersonaPair{A: newTestingPersona("Kevin")})
		require.Error(t, err)

		pair, err := ts.GetPersonas(ctx)
		require.NoError(t, err)
		require.Nil(t, pair.A)
	})
}

func TestPersonaStoreUnknownSlot(t *testing.T) {
	ts := NewTestingStore(context.Background(), t, "memory")
	_, err := ts.GetPersona(context.Background(), store.PersonaSlot("C"))
	require.Error(t, err)
}
