package notice

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darulhuda/madrasa/core"
)

var ErrNotFound = errors.New("notice not found")

type (
	Notice struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Body        string    `json:"body"`
		Pinned      bool      `json:"pinned"`
		Author      string    `json:"author"`
		PublishedAt time.Time `json:"published_at"` // UTC
	}

	NewNotice struct {
		Title  string `json:"title" validate:"required,notblank,max=200"`
		Body   string `json:"body" validate:"required,notblank,max=5000"`
		Pinned bool   `json:"pinned"`
	}

	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		// QueryNotices returns pinned notices first, then the newest first.
		QueryNotices(ctx context.Context, limit int) ([]Notice, error)
		DeleteNotice(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func (nn NewNotice) Validate(validate *validator.Validate) error {
	return validate.Struct(nn)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nn NewNotice, author string) (Notice, error) {
	n := Notice{
		Title:       core.CleanString(nn.Title),
		Body:        core.CleanString(nn.Body),
		Pinned:      nn.Pinned,
		Author:      author,
		PublishedAt: core.NowFunc().UTC(),
	}
	n, err := svc.repo.CreateNotice(ctx, n)
	return n, errors.Wrap(err, "creating notice")
}

func (svc *Service) List(ctx context.Context, limit int) ([]Notice, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	notices, err := svc.repo.QueryNotices(ctx, limit)
	return notices, errors.Wrap(err, "querying notices")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteNotice(ctx, id)
}
