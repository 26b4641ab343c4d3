package store

import (
	"context"

	"barbershop/backend/internal/metrics"
)

// Instrumented counts every operation of the wrapped Store by collection.
type Instrumented struct {
	Store
}

func WithMetrics(s Store) *Instrumented { return &Instrumented{Store: s} }

func collectionOf(path string) string {
	if segs := Split(path); len(segs) > 0 {
		return segs[0]
	}
	return "/"
}

func (i *Instrumented) Get(ctx context.Context, path string) (Snapshot, error) {
	s, err := i.Store.Get(ctx, path)
	metrics.RecordStoreOperation("get", collectionOf(path), err)
	return s, err
}

func (i *Instrumented) Set(ctx context.Context, path string, v any) error {
	err := i.Store.Set(ctx, path, v)
	metrics.RecordStoreOperation("set", collectionOf(path), err)
	return err
}

func (i *Instrumented) Delete(ctx context.Context, path string) error {
	err := i.Store.Delete(ctx, path)
	metrics.RecordStoreOperation("delete", collectionOf(path), err)
	return err
}

func (i *Instrumented) Push(ctx context.Context, path string, v any) (string, error) {
	key, err := i.Store.Push(ctx, path, v)
	metrics.RecordStoreOperation("push", collectionOf(path), err)
	return key, err
}

func (i *Instrumented) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	s, err := i.Store.Query(ctx, path, q)
	metrics.RecordStoreOperation("query", collectionOf(path), err)
	return s, err
}
