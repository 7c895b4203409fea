package singlemodel

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestRegistrySingletonPerTable(t *testing.T) {
	reg := NewRegistry(NewMemoryBackend())
	ctx := context.Background()

	first, err := reg.Instance(ctx, "foo")
	require.NoError(t, err)
	second, err := reg.Instance(ctx, "foo")
	require.NoError(t, err)
	require.Same(t, first, second)

	first.SetString("title", "Hello")
	require.Equal(t, null.StringFrom("Hello"), second.Get("title"))
	require.True(t, second.IsDirty("title"))

	other, err := reg.Instance(ctx, "bar")
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.False(t, other.Get("title").Valid)
}

func TestRegistryConcurrentFirstAccessLoadsOnce(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend)

	var wg sync.WaitGroup
	records := make([]*Record, 32)
	errs := make([]error, len(records))
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = reg.Instance(context.Background(), "settings")
		}(i)
	}
	wg.Wait()

	for i, rec := range records {
		require.NoError(t, errs[i])
		require.Same(t, records[0], rec)
	}

	loads, _ := backend.Calls()
	require.Equal(t, 1, loads)
}

func TestRegistryFailedLoadIsNotCached(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend)
	backend.FailLoad(classified(ErrStoreUnavailable, errors.New("connection refused")))

	_, err := reg.Instance(context.Background(), "settings")
	require.True(t, errors.Is(err, ErrStoreUnavailable))
	require.False(t, reg.Cached("settings"))

	backend.FailLoad(nil)
	rec, err := reg.Instance(context.Background(), "settings")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, reg.Cached("settings"))
}

func TestRegistryRejectsInvalidTableName(t *testing.T) {
	backend := NewMemoryBackend()
	reg := NewRegistry(backend)

	for _, name := range []string{"", "settings; DROP TABLE users", "1table", "a.b.c", "sch ema.t"} {
		_, err := reg.Instance(context.Background(), name)
		require.True(t, errors.Is(err, ErrInvalidIdentifier), name)
	}

	loads, _ := backend.Calls()
	require.Zero(t, loads)
}

func TestRegistryOptionsShapeTableDef(t *testing.T) {
	reg := NewRegistry(NewMemoryBackend(), WithSchema("app"), WithColumns("k", "v"))

	rec, err := reg.Instance(context.Background(), "settings")
	require.NoError(t, err)
	require.Equal(t, TableDef{Schema: "app", Name: "settings", KeyField: "k", ValueField: "v"}, rec.Table())

	rec, err = reg.Instance(context.Background(), "other.settings")
	require.NoError(t, err)
	require.Equal(t, "other.settings", rec.Table().FullTableName())
}

func TestRegistryDropsNullRowsOnLoad(t *testing.T) {
	backend := NewMemoryBackend()
	td := NewTableDef("settings")
	require.NoError(t, backend.Upsert(context.Background(), td, "gone", null.String{}))
	require.NoError(t, backend.Upsert(context.Background(), td, "kept", null.StringFrom("x")))

	rec, err := NewRegistry(backend).Instance(context.Background(), "settings")
	require.NoError(t, err)
	require.Equal(t, 1, rec.Len())

	// A loaded null is still equal to writing null.
	rec.Set("gone", null.String{})
	require.Empty(t, rec.Dirty())
}

func TestDefaultRegistry(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	SetDefault(nil)
	_, err := Instance(context.Background(), "settings")
	require.True(t, errors.Is(err, ErrNoDefaultRegistry))

	reg := NewRegistry(NewMemoryBackend())
	SetDefault(reg)

	rec, err := Instance(context.Background(), "settings")
	require.NoError(t, err)

	again, err := reg.Instance(context.Background(), "settings")
	require.NoError(t, err)
	require.Same(t, rec, again)
}
