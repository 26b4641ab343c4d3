package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"

	"go.uber.org/zap"
)

const (
	Collection = "barberNews"
	MaxLength  = 500
)

type PostInput struct {
	Message string `json:"message"`
}

type Service struct {
	st  store.Store
	log *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{st: st, log: log}
}

// Post publishes an announcement stamped with the store's write time.
func (s *Service) Post(ctx context.Context, in PostInput) (string, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return "", fmt.Errorf("%w: message is required", ErrBadRequest)
	}
	if utf8.RuneCountInString(msg) > MaxLength {
		return "", fmt.Errorf("%w: message longer than %d characters", ErrBadRequest, MaxLength)
	}
	id, err := s.st.Push(ctx, Collection, map[string]any{
		"message":   msg,
		"timestamp": store.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to post news: %w", err)
	}
	s.log.Info("news posted", zap.String("id", id))
	return id, nil
}

func LatestQuery() store.Query { return store.Last("timestamp", 1) }

// LatestOf picks the newest entry of a news snapshot.
func LatestOf(snap store.Snapshot) (*models.News, error) {
	kids, err := snap.Children()
	if err != nil {
		return nil, err
	}
	var latest *models.News
	for id, raw := range kids {
		var n models.News
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		n.ID = id
		if latest == nil || n.Timestamp > latest.Timestamp || (n.Timestamp == latest.Timestamp && n.ID > latest.ID) {
			latest = &n
		}
	}
	return latest, nil
}
