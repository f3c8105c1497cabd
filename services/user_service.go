package services

import (
	"context"
	"errors"

	"github.com/Dosada05/rating-board/models"
	"github.com/Dosada05/rating-board/repositories"
)

// UserService is the read side of the rating table.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	// AlgorithmRate returns the algorithm-category rating of one member,
	// nil when the member is unknown or has no linked account.
	AlgorithmRate(ctx context.Context, trapAccountName string) (*int, error)
	// HeuristicRate behaves like AlgorithmRate for the heuristic category.
	HeuristicRate(ctx context.Context, trapAccountName string) (*int, error)
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) AlgorithmRate(ctx context.Context, trapAccountName string) (*int, error) {
	user, err := s.getUser(ctx, trapAccountName)
	if err != nil || user == nil {
		return nil, err
	}
	return user.AtCoderRating, nil
}

func (s *userService) HeuristicRate(ctx context.Context, trapAccountName string) (*int, error) {
	user, err := s.getUser(ctx, trapAccountName)
	if err != nil || user == nil {
		return nil, err
	}
	return user.HeuristicRating, nil
}

// getUser treats an unknown member as an absent value, not an error: the
// read API answers null for names it has never synced.
func (s *userService) getUser(ctx context.Context, trapAccountName string) (*models.User, error) {
	user, err := s.userRepo.GetByName(ctx, trapAccountName)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
