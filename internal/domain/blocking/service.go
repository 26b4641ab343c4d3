package blocking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"barbershop/backend/internal/calendar"
	"barbershop/backend/internal/domain/timegrid"
	"barbershop/backend/internal/metrics"
	"barbershop/backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// bulkConcurrency bounds removals in flight during a bulk unblock.
const bulkConcurrency = 8

type Service struct {
	repo *Repo
	grid timegrid.Grid
	log  *zap.Logger
}

func NewService(repo *Repo, grid timegrid.Grid, log *zap.Logger) *Service {
	if grid.Len() == 0 {
		grid = timegrid.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, grid: grid, log: log}
}

func parseDate(s string) (calendar.Date, error) {
	d, err := calendar.ParseDate(s)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return d, nil
}

func (s *Service) BlockDay(ctx context.Context, date string) error {
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	if err := s.repo.SetDay(ctx, d); err != nil {
		return err
	}
	metrics.RecordBlockChange("day", "block", 1)
	s.log.Info("day blocked", zap.Stringer("date", d))
	return nil
}

func (s *Service) UnblockDay(ctx context.Context, date string) error {
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDay(ctx, d); err != nil {
		return err
	}
	metrics.RecordBlockChange("day", "unblock", 1)
	s.log.Info("day unblocked", zap.Stringer("date", d))
	return nil
}

// BlockRange blocks every grid slot from start to end inclusive and returns
// the times that were not already blocked.
func (s *Service) BlockRange(ctx context.Context, date, start, end string) ([]calendar.Clock, error) {
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	from, err := calendar.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	to, err := calendar.ParseClock(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	slots, err := s.grid.Range(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	already, err := s.repo.DayTimes(ctx, d)
	if err != nil {
		return nil, err
	}
	added := []calendar.Clock{}
	for _, c := range slots {
		if already[c] {
			continue
		}
		if err := s.repo.SetSlot(ctx, d, c); err != nil {
			return added, err
		}
		added = append(added, c)
	}

	metrics.RecordBlockChange("slot", "block", len(added))
	s.log.Info("slots blocked",
		zap.Stringer("date", d),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("added", len(added)),
	)
	return added, nil
}

func (s *Service) UnblockSlot(ctx context.Context, date, clock string) error {
	d, err := parseDate(date)
	if err != nil {
		return err
	}
	c, err := calendar.ParseClock(clock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := s.repo.DeleteSlot(ctx, d, c); err != nil {
		return err
	}
	metrics.RecordBlockChange("slot", "unblock", 1)
	s.log.Info("slot unblocked", zap.Stringer("date", d), zap.Stringer("time", c))
	return nil
}

// FutureBlockedDays lists blocked days on or after today, ascending.
func (s *Service) FutureBlockedDays(ctx context.Context, today calendar.Date) ([]calendar.Date, error) {
	days, err := s.repo.Days(ctx)
	if err != nil {
		return nil, err
	}
	return futureDays(days, today), nil
}

// FutureBlockedSlots lists blocked slots on or after today by date then time.
func (s *Service) FutureBlockedSlots(ctx context.Context, today calendar.Date) ([]models.SlotRef, error) {
	keys, err := s.repo.allKeys(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[models.SlotRef]bool{}
	out := []models.SlotRef{}
	for _, k := range futureKeys(keys, today) {
		if seen[k.SlotRef] {
			continue
		}
		seen[k.SlotRef] = true
		out = append(out, k.SlotRef)
	}
	return out, nil
}

func futureDays(days map[calendar.Date]bool, today calendar.Date) []calendar.Date {
	out := []calendar.Date{}
	for d, on := range days {
		if on && !d.Before(today) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func futureKeys(keys []slotKey, today calendar.Date) []slotKey {
	out := make([]slotKey, 0, len(keys))
	for _, k := range keys {
		if !k.Date.Before(today) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if c := out[i].Time.Compare(out[j].Time); c != 0 {
			return c < 0
		}
		return out[i].path < out[j].path
	})
	return out
}

// UnblockAllFutureDays removes every blocked day on or after today. Removals
// run concurrently; one failure does not stop the others.
func (s *Service) UnblockAllFutureDays(ctx context.Context, today calendar.Date) (*BulkResult, error) {
	days, err := s.FutureBlockedDays(ctx, today)
	if err != nil {
		return nil, err
	}
	res := s.fanOut(ctx, len(days), func(i int) (string, error) {
		return days[i].String(), s.repo.DeleteDay(ctx, days[i])
	})

	metrics.RecordBlockChange("day", "unblock", res.Succeeded)
	metrics.RecordBulkFailures("day", res.Failed)
	s.log.Info("future days unblocked", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
	return res, nil
}

// UnblockAllFutureSlots removes every blocked slot on or after today.
func (s *Service) UnblockAllFutureSlots(ctx context.Context, today calendar.Date) (*BulkResult, error) {
	all, err := s.repo.allKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys := futureKeys(all, today)
	res := s.fanOut(ctx, len(keys), func(i int) (string, error) {
		k := keys[i]
		return k.Date.String() + " " + k.Time.String(), s.repo.deleteKey(ctx, k)
	})

	metrics.RecordBlockChange("slot", "unblock", res.Succeeded)
	metrics.RecordBulkFailures("slot", res.Failed)
	s.log.Info("future slots unblocked", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
	return res, nil
}

// fanOut runs n removals and waits for all of them.
func (s *Service) fanOut(ctx context.Context, n int, remove func(i int) (string, error)) *BulkResult {
	res := &BulkResult{Failures: []BulkFailure{}}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			target, err := remove(i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.Failures = append(res.Failures, BulkFailure{Target: target, Error: err.Error()})
				s.log.Warn("bulk unblock entry failed", zap.String("target", target), zap.Error(err))
				return nil
			}
			res.Succeeded++
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Target < res.Failures[j].Target })
	return res
}
