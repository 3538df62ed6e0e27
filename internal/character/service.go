package character

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/character/entity"
	"github.com/maplewind/maplewind-api/internal/character/repo"
	"github.com/maplewind/maplewind-api/pkg/cache"
)

const DefaultPageSize = 100

var (
	ErrCharacterNotFound  = errors.New("character not found")
	ErrSettlementNotFound = errors.New("settlement not found")
)

// Store is the read side of repo.Repo.
type Store interface {
	ListCharacters(ctx context.Context, offset, limit int) ([]entity.Character, error)
	GetCharacter(ctx context.Context, id int64) (*entity.Character, error)
	ListSettlements(ctx context.Context, characterID int64) ([]entity.Settlement, error)
	GetSettlement(ctx context.Context, id int64) (*entity.Settlement, error)
}

// Service serves the catalog through a read-through cache. Cache failures are
// logged and fall back to the store.
type Service struct {
	store  Store
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewService(store Store, c cache.Cache, ttl time.Duration, logger *zap.SugaredLogger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{store: store, cache: c, ttl: ttl, logger: logger}
}

func (s *Service) List(ctx context.Context, page, limit int) ([]entity.Character, error) {
	offset := (page - 1) * limit
	key := fmt.Sprintf("characters:list:%d:%d", offset, limit)
	return readThrough(ctx, s, key, func() ([]entity.Character, error) {
		return s.store.ListCharacters(ctx, offset, limit)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Character, error) {
	return readThrough(ctx, s, fmt.Sprintf("characters:%d", id), func() (*entity.Character, error) {
		c, err := s.store.GetCharacter(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return c, err
	})
}

// Settlements lists a character's settlements, newest first.
func (s *Service) Settlements(ctx context.Context, characterID int64) ([]entity.Settlement, error) {
	if _, err := s.Get(ctx, characterID); err != nil {
		return nil, err
	}
	return readThrough(ctx, s, fmt.Sprintf("characters:%d:settlements", characterID), func() ([]entity.Settlement, error) {
		return s.store.ListSettlements(ctx, characterID)
	})
}

func (s *Service) Settlement(ctx context.Context, id int64) (*entity.Settlement, error) {
	return readThrough(ctx, s, fmt.Sprintf("settlements:%d", id), func() (*entity.Settlement, error) {
		st, err := s.store.GetSettlement(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSettlementNotFound
		}
		return st, err
	})
}

func readThrough[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var v T
	hit, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.logger.Warnw("cache read failed", "key", key, "error", err)
	}
	if hit {
		return v, nil
	}
	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.logger.Warnw("cache write failed", "key", key, "error", err)
	}
	return v, nil
}
