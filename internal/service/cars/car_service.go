package cars

import (
	"context"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/repository"
	"go.uber.org/zap"
)

type CarUseCase interface {
	ListAvailable(ctx context.Context) ([]domain.Car, error)
	GetByID(ctx context.Context, id int64) (*domain.Car, error)
}

type CarCache interface {
	GetCars(ctx context.Context) ([]domain.Car, error)
	SetCars(ctx context.Context, cars []domain.Car) error
}

type CarService struct {
	repo  repository.CarRepository
	cache CarCache
	log   *zap.Logger
}

func NewCarService(repo repository.CarRepository, cache CarCache, log *zap.Logger) *CarService {
	return &CarService{repo: repo, cache: cache, log: log}
}

// ListAvailable serves from the cache when it can; cache failures only cost a database
// round trip.
func (s *CarService) ListAvailable(ctx context.Context) ([]domain.Car, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCars(ctx)
		if err != nil {
			s.log.Warn("read cars cache", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	cars, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCars(ctx, cars); err != nil {
			s.log.Warn("write cars cache", zap.Error(err))
		}
	}
	return cars, nil
}

func (s *CarService) GetByID(ctx context.Context, id int64) (*domain.Car, error) {
	return s.repo.GetByID(ctx, id)
}

var _ CarUseCase = (*CarService)(nil)
