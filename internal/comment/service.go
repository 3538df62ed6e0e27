package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/comment/entity"
	userentity "github.com/maplewind/maplewind-api/internal/user/entity"
)

const (
	DefaultPageSize  = 20
	MaxContentLength = 1000
)

var ErrInvalidContent = errors.New("invalid comment content")

type Store interface {
	List(ctx context.Context, offset, limit int) ([]entity.Comment, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, c *entity.Comment) error
}

type Service struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

// Page is one page of the board plus the total number of comments.
type Page struct {
	Items []entity.Comment
	Total int
}

func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	items, err := s.store.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	return &Page{Items: items, Total: total}, nil
}

// Create posts content as u. The author shown on the board is u.Name.
func (s *Service) Create(ctx context.Context, u *userentity.User, content string) (*entity.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidContent)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, fmt.Errorf("%w: content is longer than %d characters", ErrInvalidContent, MaxContentLength)
	}
	c := &entity.Comment{UserID: u.ID, Author: u.Name, Content: content}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.logger.Infow("comment created", "comment_id", c.ID, "user_id", u.ID)
	return c, nil
}
