package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanImageCleanupDeletesOnlyOldUnreferencedImages(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-72 * time.Hour)
	store := &fakeObjectStore{
		objects: []*gcs.Object{
			{Name: "reports/kept.jpg", Created: old},
			{Name: "reports/orphan.jpg", Created: old},
			{Name: "reports/fresh.jpg", Created: now.Add(-time.Hour)},
			{Name: "reports/gone.jpg", Created: old},
		},
		missing: map[string]bool{"reports/gone.jpg": true},
	}
	refs := &fakeReferences{referenced: map[string]struct{}{"reports/kept.jpg": {}}}
	job := newOrphanJob(t, store, refs)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "reports/", store.listedPrefix)
	assert.ElementsMatch(t, []string{"reports/kept.jpg", "reports/orphan.jpg", "reports/gone.jpg"}, refs.asked)
	assert.Equal(t, []string{"reports/orphan.jpg"}, store.deleted)
}

func TestOrphanImageCleanupReachesOrphansBehindReferencedImages(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-72 * time.Hour)
	store := &fakeObjectStore{}
	refs := &fakeReferences{referenced: map[string]struct{}{}}
	for i := range 5000 {
		name := fmt.Sprintf("reports/%05d.jpg", i)
		store.objects = append(store.objects, &gcs.Object{Name: name, Created: old})
		refs.referenced[name] = struct{}{}
	}
	store.objects = append(store.objects, &gcs.Object{Name: "reports/zzz-orphan.jpg", Created: old})
	job := newOrphanJob(t, store, refs)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"reports/zzz-orphan.jpg"}, store.deleted)
	assert.Len(t, refs.asked, 5001)
}

func TestOrphanImageCleanupCapsDeletesPerRun(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeObjectStore{}
	for i := range orphanMaxDeletes + 5 {
		store.objects = append(store.objects, &gcs.Object{Name: fmt.Sprintf("reports/%05d.jpg", i), Created: now.Add(-72 * time.Hour)})
	}
	job := newOrphanJob(t, store, &fakeReferences{})
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, store.deleted, orphanMaxDeletes)

	// The fake does not forget deleted objects; drop them before the next run.
	store.objects = store.objects[orphanMaxDeletes:]
	store.deleted = nil
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, store.deleted, 5)
}

func TestOrphanImageCleanupStopsOnLookupError(t *testing.T) {
	store := &fakeObjectStore{objects: []*gcs.Object{{Name: "reports/a.jpg", Created: time.Now().Add(-96 * time.Hour)}}}
	job := newOrphanJob(t, store, &fakeReferences{err: errors.New("db down")})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestOrphanImageCleanupPropagatesListError(t *testing.T) {
	store := &fakeObjectStore{listErr: errors.New("permission denied")}
	job := newOrphanJob(t, store, &fakeReferences{})
	assert.Error(t, job.Run(context.Background()))
}

func TestNewOrphanImageCleanupJobRequiresPrefix(t *testing.T) {
	_, err := NewOrphanImageCleanupJob(OrphanImageCleanupJobParams{
		Logger:     testLogger(),
		Store:      &fakeObjectStore{},
		References: &fakeReferences{},
		Prefix:     "/",
	})
	assert.Error(t, err)
}

func newOrphanJob(t *testing.T, store *fakeObjectStore, refs *fakeReferences) *orphanImageCleanupJob {
	t.Helper()
	jobIface, err := NewOrphanImageCleanupJob(OrphanImageCleanupJobParams{
		Logger:     testLogger(),
		Store:      store,
		References: refs,
		Prefix:     "/reports/",
	})
	require.NoError(t, err)
	return jobIface.(*orphanImageCleanupJob)
}

type fakeObjectStore struct {
	objects      []*gcs.Object
	missing      map[string]bool
	listErr      error
	listedPrefix string
	deleted      []string
}

func (f *fakeObjectStore) List(_ context.Context, prefix string, fn func(*gcs.Object) error) error {
	f.listedPrefix = prefix
	if f.listErr != nil {
		return f.listErr
	}
	for _, obj := range f.objects {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, name string) error {
	if f.missing[name] {
		return gcs.ErrObjectNotFound
	}
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeReferences struct {
	referenced map[string]struct{}
	asked      []string
	err        error
}

func (f *fakeReferences) ReferencedImages(_ context.Context, ids []string) (map[string]struct{}, error) {
	f.asked = append(f.asked, ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := f.referenced[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}
