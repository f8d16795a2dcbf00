package service

import (
	"context"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
)

type JobService interface {
	Get(ctx context.Context, id string) (*model.Job, error)
}

type jobService struct {
	*Service
	jobRepo repository.JobRepository
}

func NewJobService(service *Service, jobRepo repository.JobRepository) JobService {
	return &jobService{
		Service: service,
		jobRepo: jobRepo,
	}
}

func (s *jobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, v1.ErrJobNotFound
	}
	return job, nil
}
