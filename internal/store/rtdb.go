package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
)

// RTDB is a Store over the Firebase Realtime Database. The Admin SDK has no
// listener API, so Subscribe polls and delivers only changed values.
type RTDB struct {
	client *db.Client
	poll   time.Duration
	log    *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewRTDB(client *db.Client, poll time.Duration, log *zap.Logger) *RTDB {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RTDB{client: client, poll: poll, log: log, done: make(chan struct{})}
}

func (s *RTDB) Get(ctx context.Context, path string) (Snapshot, error) {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Snapshot{Path: path, Raw: raw}, nil
}

func (s *RTDB) Set(ctx context.Context, path string, v any) error {
	if err := s.client.NewRef(path).Set(ctx, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *RTDB) Delete(ctx context.Context, path string) error {
	if err := s.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *RTDB) Push(ctx context.Context, path string, v any) (string, error) {
	ref, err := s.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return ref.Key, nil
}

func (s *RTDB) Query(ctx context.Context, path string, q Query) (Snapshot, error) {
	if q.IsZero() {
		return s.Get(ctx, path)
	}
	query := s.client.NewRef(path).OrderByChild(q.OrderBy)
	if q.EqualTo != nil {
		query = query.EqualTo(*q.EqualTo)
	}
	if q.LimitToLast > 0 {
		query = query.LimitToLast(q.LimitToLast)
	}
	var raw json.RawMessage
	if err := query.Get(ctx, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("failed to query %s (%s): %w", path, q, err)
	}
	// an ordered query with no matches comes back as {}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("{}")) {
		raw = json.RawMessage("null")
	}
	return Snapshot{Path: path, Raw: raw}, nil
}

func (s *RTDB) Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error) {
	first, err := s.Query(ctx, path, q)
	if err != nil {
		return nil, err
	}
	fn(first)

	ctx, cancel := context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		last := first.Raw
		t := time.NewTicker(s.poll)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-t.C:
			}
			snap, err := s.Query(ctx, path, q)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warn("poll failed", zap.String("path", path), zap.Stringer("query", q), zap.Error(err))
				}
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

// Close stops every poller and waits for them to exit.
func (s *RTDB) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}
