// Package live keeps an in-process copy of the store state that clients
// render from. Each feed is an independent subscription; no ordering between
// feeds is assumed.
package live

import (
	"context"
	"fmt"
	"sync"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/domain/availability"
	"barbershop/backend/internal/domain/blocking"
	"barbershop/backend/internal/domain/news"
	"barbershop/backend/internal/domain/reservation"
	"barbershop/backend/internal/metrics"
	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FeedName string

const (
	FeedReservations FeedName = "reservations"
	FeedBlockedDays  FeedName = "blockedDays"
	FeedBlockedSlots FeedName = "blockedSlots"
	FeedNews         FeedName = "news"
)

// Change tells watchers which part of the mirror was replaced.
type Change struct {
	Feed FeedName `json:"feed"`
}

type feed struct {
	name  FeedName
	path  string
	query store.Query
	apply func(store.Snapshot) error
}

type Mirror struct {
	st  store.Store
	log *zap.Logger

	mu           sync.RWMutex
	reservations []models.Reservation
	blockedDays  map[calendar.Date]bool
	blockedSlots models.BlockedSlots
	latest       *models.News

	wmu      sync.Mutex
	watchers map[int]func(Change)
	nextID   int
	stops    []func()
}

func New(st store.Store, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		st:           st,
		log:          log,
		blockedDays:  map[calendar.Date]bool{},
		blockedSlots: models.BlockedSlots{},
		watchers:     map[int]func(Change){},
	}
}

func (m *Mirror) feeds() []feed {
	return []feed{
		{FeedReservations, reservation.Collection, store.Query{}, m.applyReservations},
		{FeedBlockedDays, blocking.DaysCollection, store.Query{}, m.applyBlockedDays},
		{FeedBlockedSlots, blocking.SlotsCollection, store.Query{}, m.applyBlockedSlots},
		{FeedNews, news.Collection, news.LatestQuery(), m.applyNews},
	}
}

// Start opens every subscription and returns once each has delivered its
// first snapshot. Subscriptions live until ctx ends or Stop is called.
func (m *Mirror) Start(ctx context.Context) error {
	var g errgroup.Group
	for _, f := range m.feeds() {
		f := f
		g.Go(func() error {
			stop, err := m.st.Subscribe(ctx, f.path, f.query, func(s store.Snapshot) { m.handle(f, s) })
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", f.name, err)
			}
			m.wmu.Lock()
			m.stops = append(m.stops, stop)
			m.wmu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.Stop()
		return err
	}
	m.log.Info("live mirror started")
	return nil
}

func (m *Mirror) Stop() {
	m.wmu.Lock()
	stops := m.stops
	m.stops = nil
	m.wmu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func (m *Mirror) handle(f feed, s store.Snapshot) {
	err := f.apply(s)
	metrics.RecordMirrorUpdate(string(f.name), err)
	if err != nil {
		// keep the previous state
		m.log.Warn("ignoring undecodable snapshot", zap.String("feed", string(f.name)), zap.Error(err))
		return
	}
	m.broadcast(Change{Feed: f.name})
}

func (m *Mirror) applyReservations(s store.Snapshot) error {
	rs, err := reservation.Decode(s, m.log)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.reservations = rs
	m.mu.Unlock()
	return nil
}

func (m *Mirror) applyBlockedDays(s store.Snapshot) error {
	days, err := blocking.DecodeDays(s, m.log)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blockedDays = days
	m.mu.Unlock()
	return nil
}

func (m *Mirror) applyBlockedSlots(s store.Snapshot) error {
	slots, err := blocking.DecodeSlots(s, m.log)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blockedSlots = slots
	m.mu.Unlock()
	return nil
}

func (m *Mirror) applyNews(s store.Snapshot) error {
	n, err := news.LatestOf(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.latest = n
	m.mu.Unlock()
	return nil
}

// Board returns the current state. Each part is replaced wholesale on
// update, so the returned values are never mutated afterwards.
func (m *Mirror) Board() availability.Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return availability.Board{
		Reservations: m.reservations,
		BlockedDays:  m.blockedDays,
		BlockedSlots: m.blockedSlots,
	}
}

func (m *Mirror) News() *models.News {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Subscribe registers fn for every applied change. fn runs on the store's
// delivery goroutine and must not block.
func (m *Mirror) Subscribe(fn func(Change)) func() {
	m.wmu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.wmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.wmu.Lock()
			delete(m.watchers, id)
			m.wmu.Unlock()
		})
	}
}

func (m *Mirror) broadcast(c Change) {
	m.wmu.Lock()
	fns := make([]func(Change), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.wmu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
