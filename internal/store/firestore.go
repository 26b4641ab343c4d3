package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// scalarField holds non-object values written at a document path.
const scalarField = "_v"

// Firestore maps key paths onto Cloud Firestore: the first segment is a
// collection, the second a document and the third a top-level field of that
// document. Subscribe uses native snapshot listeners.
type Firestore struct {
	client *firestore.Client
	log    *zap.Logger

	wg sync.WaitGroup
}

func NewFirestore(client *firestore.Client, log *zap.Logger) *Firestore {
	if log == nil {
		log = zap.NewNop()
	}
	return &Firestore{client: client, log: log}
}

type fsPath struct {
	col, doc, field string
}

func parseFSPath(path string) (fsPath, error) {
	segs := Split(path)
	var p fsPath
	switch len(segs) {
	case 3:
		p.field = segs[2]
		fallthrough
	case 2:
		p.doc = segs[1]
		fallthrough
	case 1:
		p.col = segs[0]
		return p, nil
	}
	return p, fmt.Errorf("%w: %q has %d segments", ErrBadPath, path, len(segs))
}

func (s *Firestore) Get(ctx context.Context, path string) (Snapshot, error) {
	p, err := parseFSPath(path)
	if err != nil {
		return Snapshot{}, err
	}
	var v any
	if p.doc == "" {
		v, err = s.readCollection(ctx, s.client.Collection(p.col).Query)
	} else {
		v, err = s.readDoc(ctx, p)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return encodeSnapshot(path, v)
}

func (s *Firestore) Set(ctx context.Context, path string, v any) error {
	p, err := parseFSPath(path)
	if err != nil {
		return err
	}
	if p.doc == "" {
		return fmt.Errorf("%w: cannot overwrite collection %s", ErrBadPath, p.col)
	}
	g, err := toGeneric(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	g = resolveServerValues(g, func() any { return firestore.ServerTimestamp })
	ref := s.client.Collection(p.col).Doc(p.doc)
	if p.field != "" {
		_, err = ref.Set(ctx, map[string]any{p.field: g}, firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, asDocument(g))
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) Delete(ctx context.Context, path string) error {
	p, err := parseFSPath(path)
	if err != nil {
		return err
	}
	ref := s.client.Collection(p.col).Doc(p.doc)
	switch {
	case p.doc == "":
		return fmt.Errorf("%w: cannot delete collection %s", ErrBadPath, p.col)
	case p.field == "":
		_, err = ref.Delete(ctx)
	default:
		_, err = ref.Update(ctx, []firestore.Update{{FieldPath: firestore.FieldPath{p.field}, Value: firestore.Delete}})
		if status.Code(err) == codes.NotFound {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) Push(ctx context.Context, path string, v any) (string, error) {
	p, err := parseFSPath(path)
	if err != nil {
		return "", err
	}
	if p.doc != "" {
		return "", fmt.Errorf("%w: push target %s is not a collection", ErrBadPath, path)
	}
	g, err := toGeneric(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	g = resolveServerValues(g, func() any { return firestore.ServerTimestamp })
	ref := s.client.Collection(p.col).NewDoc()
	if _, err := ref.Set(ctx, asDocument(g)); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return ref.ID, nil
}

func (s *Firestore) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	fq, err := s.buildQuery(path, q)
	if err != nil {
		return Snapshot{}, err
	}
	v, err := s.readCollection(ctx, fq)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to query %s (%s): %w", path, q, err)
	}
	return encodeSnapshot(path, v)
}

func (s *Firestore) buildQuery(path string, q Query) (firestore.Query, error) {
	p, err := parseFSPath(path)
	if err != nil {
		return firestore.Query{}, err
	}
	if p.doc != "" {
		return firestore.Query{}, fmt.Errorf("%w: query target %s is not a collection", ErrBadPath, path)
	}
	fq := s.client.Collection(p.col).Query
	if q.EqualTo != nil {
		fq = fq.Where(q.OrderBy, "==", *q.EqualTo)
	}
	if q.LimitToLast > 0 {
		fq = fq.OrderBy(q.OrderBy, firestore.Desc).Limit(q.LimitToLast)
	}
	return fq, nil
}

func (s *Firestore) Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error) {
	p, err := parseFSPath(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)

	var next func() (any, error)
	var stop func()
	if p.doc == "" {
		fq, err := s.buildQuery(path, q)
		if err != nil {
			cancel()
			return nil, err
		}
		it := fq.Snapshots(ctx)
		stop = it.Stop
		next = func() (any, error) {
			qs, err := it.Next()
			if err != nil {
				return nil, err
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				return nil, err
			}
			return collectionValue(docs), nil
		}
	} else {
		it := s.client.Collection(p.col).Doc(p.doc).Snapshots(ctx)
		stop = it.Stop
		next = func() (any, error) {
			ds, err := it.Next()
			if err != nil {
				return nil, err
			}
			return docValue(ds, p.field), nil
		}
	}

	v, err := next()
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	first, err := encodeSnapshot(path, v)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	fn(first)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		last := first.Raw
		for {
			v, err := next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				s.log.Warn("listener failed", zap.String("path", path), zap.Stringer("query", q), zap.Error(err))
				return
			}
			snap, err := encodeSnapshot(path, v)
			if err != nil {
				s.log.Warn("listener encode failed", zap.String("path", path), zap.Error(err))
				continue
			}
			if bytes.Equal(snap.Raw, last) {
				continue
			}
			last = snap.Raw
			fn(snap)
		}
	}()
	return cancel, nil
}

// Close waits for listeners whose contexts have ended. The Firestore client
// itself is owned and closed by the caller.
func (s *Firestore) Close() error {
	s.wg.Wait()
	return nil
}

func (s *Firestore) readCollection(ctx context.Context, q firestore.Query) (any, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return collectionValue(docs), nil
}

func (s *Firestore) readDoc(ctx context.Context, p fsPath) (any, error) {
	ds, err := s.client.Collection(p.col).Doc(p.doc).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return docValue(ds, p.field), nil
}

func collectionValue(docs []*firestore.DocumentSnapshot) any {
	if len(docs) == 0 {
		return nil
	}
	out := make(map[string]any, len(docs))
	for _, d := range docs {
		if v := docValue(d, ""); v != nil {
			out[d.Ref.ID] = v
		}
	}
	return out
}

func docValue(ds *firestore.DocumentSnapshot, field string) any {
	if ds == nil || !ds.Exists() {
		return nil
	}
	data := ds.Data()
	if field != "" {
		return fromFirestore(data[field])
	}
	if v, ok := data[scalarField]; ok && len(data) == 1 {
		return fromFirestore(v)
	}
	if len(data) == 0 {
		return nil
	}
	return fromFirestore(data)
}

// fromFirestore turns stored timestamps back into epoch milliseconds.
func fromFirestore(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = fromFirestore(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = fromFirestore(c)
		}
		return out
	default:
		return v
	}
}

func asDocument(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{scalarField: v}
}

func encodeSnapshot(path string, v any) (Snapshot, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return Snapshot{Path: path, Raw: raw}, nil
}
