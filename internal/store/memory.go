package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Op names a Memory operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpPush   Op = "push"
	OpQuery  Op = "query"
)

// Memory is an in-process Store. Subscribers are notified synchronously
// after each write, outside the store lock. A subscriber never sees an older
// snapshot after a newer one; callbacks must not write to the store.
type Memory struct {
	mu     sync.Mutex
	root   map[string]any
	subs   map[int]*memSub
	nextID int
	seq    uint64

	// Now supplies server timestamps. Defaults to time.Now.
	Now func() time.Time
	// FailOn, when set, is consulted before every operation; a non-nil
	// result is returned instead of performing it.
	FailOn func(op Op, path string) error
}

type memSub struct {
	path string
	q    Query
	fn   func(Snapshot)
	last string

	// deliver guards sent, the seq of the newest snapshot handed to fn
	deliver sync.Mutex
	sent    uint64
}

// send hands snap to fn unless a newer snapshot already went out.
func (s *memSub) send(seq uint64, snap Snapshot) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if seq <= s.sent {
		return
	}
	s.sent = seq
	s.fn(snap)
}

func NewMemory() *Memory {
	return &Memory{root: map[string]any{}, subs: map[int]*memSub{}, Now: time.Now}
}

func (m *Memory) fail(op Op, path string) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, path)
}

func (m *Memory) Get(_ context.Context, path string) (Snapshot, error) {
	if err := m.fail(OpGet, path); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(path, Query{})
}

func (m *Memory) Set(_ context.Context, path string, v any) error {
	if err := m.fail(OpSet, path); err != nil {
		return err
	}
	g, err := m.prepare(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.writeLocked(Split(path), g)
	m.mu.Unlock()
	m.notify(path)
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	if err := m.fail(OpDelete, path); err != nil {
		return err
	}
	m.mu.Lock()
	m.writeLocked(Split(path), nil)
	m.mu.Unlock()
	m.notify(path)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, v any) (string, error) {
	if err := m.fail(OpPush, path); err != nil {
		return "", err
	}
	g, err := m.prepare(v)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	child := append(Split(path), key)
	m.mu.Lock()
	m.writeLocked(child, g)
	m.mu.Unlock()
	m.notify(path + "/" + key)
	return key, nil
}

func (m *Memory) Query(_ context.Context, path string, q Query) (Snapshot, error) {
	if err := m.fail(OpQuery, path); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(path, q)
}

func (m *Memory) Subscribe(ctx context.Context, path string, q Query, fn func(Snapshot)) (func(), error) {
	m.mu.Lock()
	snap, err := m.snapshotLocked(path, q)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	id := m.nextID
	m.nextID++
	m.seq++
	seq := m.seq
	sub := &memSub{path: path, q: q, fn: fn, last: string(snap.Raw)}
	m.subs[id] = sub
	m.mu.Unlock()

	sub.send(seq, snap)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.subs = map[int]*memSub{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) prepare(v any) (any, error) {
	g, err := toGeneric(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	now := m.Now
	if now == nil {
		now = time.Now
	}
	return resolveServerValues(g, func() any { return float64(now().UnixMilli()) }), nil
}

// writeLocked stores v at segs; nil removes the node and prunes empty parents.
func (m *Memory) writeLocked(segs []string, v any) {
	if len(segs) == 0 {
		if obj, ok := v.(map[string]any); ok {
			m.root = obj
		} else {
			m.root = map[string]any{}
		}
		return
	}
	parents := []map[string]any{m.root}
	node := m.root
	for _, s := range segs[:len(segs)-1] {
		next, ok := node[s].(map[string]any)
		if !ok {
			if v == nil {
				return
			}
			next = map[string]any{}
			node[s] = next
		}
		node = next
		parents = append(parents, node)
	}
	last := segs[len(segs)-1]
	if v == nil {
		delete(node, last)
		for i := len(parents) - 1; i > 0; i-- {
			if len(parents[i]) > 0 {
				break
			}
			delete(parents[i-1], segs[i-1])
		}
		return
	}
	node[last] = v
}

func (m *Memory) lookupLocked(segs []string) any {
	var node any = m.root
	for _, s := range segs {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[s]
		if !ok {
			return nil
		}
	}
	return node
}

func (m *Memory) snapshotLocked(path string, q Query) (Snapshot, error) {
	v := m.lookupLocked(Split(path))
	if !q.IsZero() {
		v = applyQuery(v, q)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return Snapshot{Path: path, Raw: raw}, nil
}

func applyQuery(v any, q Query) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	type kv struct {
		key string
		val any
	}
	var picked []kv
	for k, c := range obj {
		child, _ := c.(map[string]any)
		if q.EqualTo != nil {
			s, ok := child[q.OrderBy].(string)
			if !ok || s != *q.EqualTo {
				continue
			}
		}
		picked = append(picked, kv{k, c})
	}
	if q.LimitToLast > 0 {
		sort.Slice(picked, func(i, j int) bool {
			a := orderValue(picked[i].val, q.OrderBy)
			b := orderValue(picked[j].val, q.OrderBy)
			if a != b {
				return a < b
			}
			return picked[i].key < picked[j].key
		})
		if len(picked) > q.LimitToLast {
			picked = picked[len(picked)-q.LimitToLast:]
		}
	}
	if len(picked) == 0 {
		return nil
	}
	out := make(map[string]any, len(picked))
	for _, p := range picked {
		out[p.key] = p.val
	}
	return out
}

func orderValue(v any, child string) float64 {
	obj, _ := v.(map[string]any)
	f, _ := obj[child].(float64)
	return f
}

func (m *Memory) notify(path string) {
	type delivery struct {
		sub  *memSub
		seq  uint64
		snap Snapshot
	}
	var out []delivery
	m.mu.Lock()
	for _, s := range m.subs {
		if !related(path, s.path) {
			continue
		}
		snap, err := m.snapshotLocked(s.path, s.q)
		if err != nil || string(snap.Raw) == s.last {
			continue
		}
		s.last = string(snap.Raw)
		m.seq++
		out = append(out, delivery{s, m.seq, snap})
	}
	m.mu.Unlock()
	for _, d := range out {
		d.sub.send(d.seq, d.snap)
	}
}
