package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/validation"

	"github.com/rs/zerolog"
)

type userInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=512"`
}

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	in := userInput{Name: strings.TrimSpace(name), Email: normalizeEmail(email)}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user := &models.User{Name: in.Name, Email: in.Email}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User created")
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

// UpdateUser applies the non-blank fields of patch. A new email already used
// by another user yields ErrEmailTaken.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in := userInput{Name: user.Name, Email: user.Email}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		in.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		in.Email = normalizeEmail(*patch.Email)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Name == user.Name && in.Email == user.Email {
		return user, nil
	}

	user.Name = in.Name
	user.Email = in.Email
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User updated")
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}
