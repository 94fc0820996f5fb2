package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogService_FindByIDThenTitle(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	shows := testCatalog()
	shows[1].Title = "Beta Alpha Saga"
	svc := NewCatalogService(newMemCatalog(shows))

	sh, err := svc.Find(context.Background(), " ALPHA ")
	require.NoError(err)
	require.Equal("alpha", sh.ID)

	sh, err = svc.Find(context.Background(), "saga")
	require.NoError(err)
	require.Equal("beta", sh.ID)

	_, err = svc.Find(context.Background(), "gamma")
	require.ErrorIs(err, ErrNotFound)
}

func TestCatalogService_ListOngoingOnly(t *testing.T) {
	t.Parallel()

	svc := NewCatalogService(newMemCatalog(testCatalog()))
	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	ongoing, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, ongoing, 2)
}

func TestCatalogService_Overview(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	svc := NewCatalogService(newMemCatalog(testCatalog()))
	ov, err := svc.Overview(context.Background(), "beta")
	require.NoError(err)
	require.Len(ov.Seasons, 1)
	s := ov.Seasons[0]
	require.Equal("S1", s.Label)
	require.Equal(12, s.Max)
	require.NotNil(s.Sub)
	require.NotNil(s.Dub)
	require.Equal(5, *s.Sub)
	require.Equal(5, *s.Dub)

	ov, err = svc.Overview(context.Background(), "alpha")
	require.NoError(err)
	require.Nil(ov.Seasons[0].Dub)
}
