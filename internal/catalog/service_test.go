package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	products map[string]Product
	queries  int
}

func (f *fakeStore) GetByHandle(_ context.Context, handle string) (Product, error) {
	f.queries++
	p, ok := f.products[handle]
	if !ok {
		return Product{}, errNoRows{}
	}
	return p, nil
}

func (f *fakeStore) ListByHandles(_ context.Context, handles []string) ([]Product, error) {
	f.queries++
	var out []Product
	for _, h := range handles {
		if p, ok := f.products[h]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context, limit, offset int) ([]Product, error) {
	f.queries++
	return nil, nil
}

type errNoRows struct{}

func (errNoRows) Error() string { return "no rows in result set" }

func testCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestSnapshotsJoinsAndCaches(t *testing.T) {
	store := &fakeStore{products: map[string]Product{
		"mario-kart": {Handle: "mario-kart", Price: 59.90, Collections: []string{"games"}, Tags: []string{"racing"}, Enabled: true},
		"joycon":     {Handle: "joycon", Price: 79, Collections: []string{"accessories"}, Enabled: true},
	}}
	svc := NewService(ServiceConfig{Store: store, Cache: testCache(t)})
	ctx := context.Background()

	snaps, err := svc.Snapshots(ctx, []string{"mario-kart", "joycon", "mario-kart"})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, 59.90, snaps["mario-kart"].Price)
	require.Equal(t, []string{"games"}, snaps["mario-kart"].Collections)
	require.Equal(t, 1, store.queries)

	// Second resolve is served from cache without touching the store.
	again, err := svc.Snapshots(ctx, []string{"mario-kart", "joycon"})
	require.NoError(t, err)
	require.Len(t, again, 2)
	require.Equal(t, 1, store.queries)
}

func TestSnapshotsOmitsDisabledAndUnknown(t *testing.T) {
	store := &fakeStore{products: map[string]Product{
		"retired": {Handle: "retired", Price: 10, Enabled: false},
	}}
	svc := NewService(ServiceConfig{Store: store, Cache: testCache(t)})

	snaps, err := svc.Snapshots(context.Background(), []string{"retired", "missing"})
	require.NoError(t, err)
	require.Empty(t, snaps)
}

func TestSnapshotsWorksWithoutCache(t *testing.T) {
	store := &fakeStore{products: map[string]Product{
		"mario-kart": {Handle: "mario-kart", Price: 59.90, Enabled: true},
	}}
	svc := NewService(ServiceConfig{Store: store})

	snaps, err := svc.Snapshots(context.Background(), []string{"mario-kart"})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}
