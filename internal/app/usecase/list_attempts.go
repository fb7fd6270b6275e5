package usecase

import (
	"context"

	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/audit"
)

const (
	defaultAttemptsLimit = 20
	maxAttemptsLimit     = 100
)

type AttemptLister interface {
	Recent(ctx context.Context, limit int) ([]audit.Attempt, error)
}

type ListAttemptsUsecase struct {
	store AttemptLister
}

func NewListAttemptsUsecase(store AttemptLister) *ListAttemptsUsecase {
	return &ListAttemptsUsecase{store: store}
}

func (u *ListAttemptsUsecase) Execute(ctx context.Context, limit int) ([]audit.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultAttemptsLimit
	case limit > maxAttemptsLimit:
		limit = maxAttemptsLimit
	}
	return u.store.Recent(ctx, limit)
}
