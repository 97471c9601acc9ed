package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
)

const (
	orphanImageMinAge = 48 * time.Hour
	orphanLookupBatch = 200
	orphanMaxDeletes  = 1000
)

type OrphanImageCleanupJobParams struct {
	Logger     *logger.Logger
	Store      objectStore
	References imageReferences
	Prefix     string
	MinAge     time.Duration
}

type objectStore interface {
	List(ctx context.Context, prefix string, fn func(*gcs.Object) error) error
	Delete(ctx context.Context, name string) error
}

type imageReferences interface {
	ReferencedImages(ctx context.Context, publicIDs []string) (map[string]struct{}, error)
}

var errDeleteLimit = errors.New("delete limit reached")

// NewOrphanImageCleanupJob deletes uploaded images that no report references
// once they are older than MinAge. Uploads happen before the report that uses
// them is created, so young objects are always kept.
func NewOrphanImageCleanupJob(params OrphanImageCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.References == nil {
		return nil, fmt.Errorf("image reference lookup required")
	}
	prefix := strings.Trim(params.Prefix, "/")
	if prefix == "" {
		return nil, fmt.Errorf("object prefix required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = orphanImageMinAge
	}
	return &orphanImageCleanupJob{
		logg:   params.Logger,
		store:  params.Store,
		refs:   params.References,
		prefix: prefix + "/",
		minAge: minAge,
		now:    time.Now,
	}, nil
}

type orphanImageCleanupJob struct {
	logg   *logger.Logger
	store  objectStore
	refs   imageReferences
	prefix string
	minAge time.Duration
	now    func() time.Time
}

func (j *orphanImageCleanupJob) Name() string { return "orphan-image-cleanup" }

// Run walks the whole prefix, resolving references a batch at a time as
// the listing streams in. Only deletions are capped per run, so referenced
// images never hide orphans that sort after them.
func (j *orphanImageCleanupJob) Run(ctx context.Context) error {
	sw := &orphanSweep{job: j, cutoff: j.now().UTC().Add(-j.minAge)}

	err := j.store.List(ctx, j.prefix, func(obj *gcs.Object) error {
		if obj == nil || obj.Created.IsZero() || !obj.Created.Before(sw.cutoff) {
			return nil
		}
		sw.pending = append(sw.pending, obj.Name)
		sw.candidates++
		if len(sw.pending) < orphanLookupBatch {
			return nil
		}
		sw.err = sw.flush(ctx)
		return sw.err
	})
	switch {
	case sw.err != nil:
	case err != nil:
		return fmt.Errorf("list images: %w", err)
	default:
		sw.err = sw.flush(ctx)
	}
	if sw.err != nil && !errors.Is(sw.err, errDeleteLimit) {
		return sw.err
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     sw.cutoff,
		"prefix":     j.prefix,
		"candidates": sw.candidates,
		"deleted":    sw.deleted,
		"missing":    sw.missing,
		"capped":     sw.deleted >= orphanMaxDeletes,
	})
	j.logg.Info(logCtx, "orphan image cleanup complete")
	return nil
}

type orphanSweep struct {
	job     *orphanImageCleanupJob
	cutoff  time.Time
	pending []string
	err     error

	candidates, deleted, missing int
}

func (sw *orphanSweep) flush(ctx context.Context) error {
	batch := sw.pending
	sw.pending = nil
	if len(batch) == 0 {
		return nil
	}
	refs, err := sw.job.refs.ReferencedImages(ctx, batch)
	if err != nil {
		return fmt.Errorf("lookup image references: %w", err)
	}
	for _, name := range batch {
		if _, ok := refs[name]; ok {
			continue
		}
		if sw.deleted >= orphanMaxDeletes {
			return errDeleteLimit
		}
		if err := sw.job.store.Delete(ctx, name); err != nil {
			if errors.Is(err, gcs.ErrObjectNotFound) {
				sw.missing++
				continue
			}
			return fmt.Errorf("delete %s: %w", name, err)
		}
		sw.deleted++
	}
	return nil
}
