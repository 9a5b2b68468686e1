package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"log/slog"
	"time"

	"parcelone/internal/cache/keys"
	"parcelone/internal/core/model"
	"parcelone/internal/core/observability"
)

// Backend is the slice of the fetcher the cache decorates.
type Backend interface {
	FetchGML(ctx context.Context, q model.Query) model.FetchResult
	FetchGeoJSON(ctx context.Context, q model.Query, pageSize int) model.FetchResult
	PreviewAutoFallback(ctx context.Context, q model.Query, pageSize int) model.FetchResult
	ZoneBBox(ctx context.Context, register model.Register, zone string) (model.BBox, bool)
}

// TTLPolicy maps a cache class ("fetch", "preview", "bbox") to its TTL.
type TTLPolicy func(class string) time.Duration

// CachedFetcher puts a read-through TTL cache in front of a Backend.
// Cache failures degrade to the backend; they are logged, never returned.
type CachedFetcher struct {
	backend   Backend
	store     Interface
	ttl       TTLPolicy
	log       *slog.Logger
	opTimeout time.Duration
	pageSize  int
	preview   int
}

func NewCachedFetcher(backend Backend, store Interface, ttl TTLPolicy, log *slog.Logger, opTimeout time.Duration, pageSize, previewSize int) *CachedFetcher {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &CachedFetcher{
		backend:   backend,
		store:     store,
		ttl:       ttl,
		log:       log,
		opTimeout: opTimeout,
		pageSize:  pageSize,
		preview:   previewSize,
	}
}

// cachedResult is the gob envelope; Pages is excluded from the JSON form
// of FetchResult, so the envelope carries everything explicitly.
type cachedResult struct {
	OK          bool
	Note        string
	Pages       [][]byte
	FirstURL    string
	DetectedCRS string
}

func (cf *CachedFetcher) FetchGML(ctx context.Context, q model.Query) model.FetchResult {
	key := keys.Query("fetch", string(q.Register), q.ZoneCode, q.Parcels, q.SRS, cf.pageSize)
	if res, ok := cf.getResult(ctx, key); ok {
		return res
	}
	res := cf.backend.FetchGML(ctx, q)
	if res.OK {
		cf.putResult(ctx, key, "fetch", res)
	}
	return res
}

func (cf *CachedFetcher) FetchGeoJSON(ctx context.Context, q model.Query, pageSize int) model.FetchResult {
	key := keys.Query("fetchjson", string(q.Register), q.ZoneCode, q.Parcels, q.SRS, pageSize)
	if res, ok := cf.getResult(ctx, key); ok {
		return res
	}
	res := cf.backend.FetchGeoJSON(ctx, q, pageSize)
	if res.OK {
		cf.putResult(ctx, key, "fetch", res)
	}
	return res
}

func (cf *CachedFetcher) PreviewAutoFallback(ctx context.Context, q model.Query, pageSize int) model.FetchResult {
	key := keys.Query("preview", string(q.Register), q.ZoneCode, q.Parcels, q.SRS, pageSize)
	if res, ok := cf.getResult(ctx, key); ok {
		return res
	}
	res := cf.backend.PreviewAutoFallback(ctx, q, pageSize)
	if res.OK {
		cf.putResult(ctx, key, "preview", res)
	}
	return res
}

func (cf *CachedFetcher) ZoneBBox(ctx context.Context, register model.Register, zone string) (model.BBox, bool) {
	key := keys.Query("bbox", string(register), zone, nil, "", 1)

	opCtx, cancel := context.WithTimeout(ctx, cf.opTimeout)
	raw, ok, err := cf.store.Get(opCtx, key)
	cancel()
	if err != nil {
		cf.log.Warn("cache get failed", "key", key, "error", err)
	} else if ok {
		var bb model.BBox
		if derr := gob.NewDecoder(bytes.NewReader(raw)).Decode(&bb); derr == nil {
			observability.IncCacheHit()
			return bb, true
		}
	}
	observability.IncCacheMiss()

	bb, found := cf.backend.ZoneBBox(ctx, register, zone)
	if found {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(bb); err == nil {
			opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cf.opTimeout)
			if serr := cf.store.Set(opCtx, key, buf.Bytes(), cf.ttl("bbox")); serr != nil {
				cf.log.Warn("cache set failed", "key", key, "error", serr)
			}
			cancel()
		}
	}
	return bb, found
}

// InvalidateZone evicts every cached query touching a zone, across all
// cache classes.
func (cf *CachedFetcher) InvalidateZone(ctx context.Context, register model.Register, zone string) (int, error) {
	total := 0
	for _, class := range []string{"fetch", "fetchjson", "preview", "bbox"} {
		n, err := cf.store.DelPrefix(ctx, keys.ZonePrefix(class, string(register), zone))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (cf *CachedFetcher) getResult(ctx context.Context, key string) (model.FetchResult, bool) {
	opCtx, cancel := context.WithTimeout(ctx, cf.opTimeout)
	defer cancel()

	raw, ok, err := cf.store.Get(opCtx, key)
	if err != nil {
		cf.log.Warn("cache get failed", "key", key, "error", err)
		observability.IncCacheMiss()
		return model.FetchResult{}, false
	}
	if !ok {
		observability.IncCacheMiss()
		return model.FetchResult{}, false
	}
	var env cachedResult
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		cf.log.Warn("cache entry undecodable", "key", key, "error", err)
		observability.IncCacheMiss()
		return model.FetchResult{}, false
	}
	observability.IncCacheHit()
	return model.FetchResult{
		OK:          env.OK,
		Note:        env.Note,
		Pages:       env.Pages,
		FirstURL:    env.FirstURL,
		DetectedCRS: env.DetectedCRS,
	}, true
}

func (cf *CachedFetcher) putResult(ctx context.Context, key, class string, res model.FetchResult) {
	env := cachedResult{
		OK:          res.OK,
		Note:        res.Note,
		Pages:       res.Pages,
		FirstURL:    res.FirstURL,
		DetectedCRS: res.DetectedCRS,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		cf.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cf.opTimeout)
	defer cancel()
	if err := cf.store.Set(opCtx, key, buf.Bytes(), cf.ttl(class)); err != nil {
		cf.log.Warn("cache set failed", "key", key, "error", err)
	}
}
