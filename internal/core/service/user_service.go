package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

type userService struct {
	users   ports.UserRepository
	authz   Authorizer
	auditor *Auditor
	log     zerolog.Logger
}

// NewUserService returns a UserService implementation.
func NewUserService(
	users ports.UserRepository,
	authz Authorizer,
	auditor *Auditor,
	log zerolog.Logger,
) ports.UserService {
	return &userService{
		users:   users,
		authz:   authz,
		auditor: auditor,
		log:     log.With().Str("component", "users").Logger(),
	}
}

func (s *userService) List(ctx context.Context, caller domain.Principal, skip, limit int) (*ports.ListUsersResult, error) {
	if err := observe(s.authz.ListUsers(caller, skip, limit)).Err(); err != nil {
		return nil, err
	}

	users, total, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &ports.ListUsersResult{Users: users, Total: total, Skip: skip, Limit: limit}, nil
}

// Get looks the identity up before checking ownership, so a missing id is a
// 404 for every caller.
func (s *userService) Get(ctx context.Context, caller domain.Principal, id int64) (*domain.User, error) {
	if id < 1 {
		return nil, domain.ErrInvalidID
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := observe(s.authz.ViewUser(caller, user)).Err(); err != nil {
		s.log.Warn().
			Int64("caller_id", caller.ID).
			Int64("target_id", id).
			Msg("object-level access denied")
		return nil, err
	}
	return user, nil
}

func (s *userService) ChangeRole(ctx context.Context, caller domain.Principal, id int64, newRole string) (_ *domain.User, err error) {
	d := observe(s.authz.ChangeRole(caller, newRole))
	defer func() { s.auditor.Record(ctx, caller, d, domain.UserRef(id), err) }()

	if err = d.Err(); err != nil {
		return nil, err
	}
	if id < 1 {
		return nil, domain.ErrInvalidID
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = newRole
	if err = s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}

	s.log.Info().
		Int64("actor_id", caller.ID).
		Int64("target_id", id).
		Str("from", previous).
		Str("to", newRole).
		Msg("role changed")
	return user, nil
}

func (s *userService) Delete(ctx context.Context, caller domain.Principal, id int64) (err error) {
	d := observe(s.authz.DeleteUser(caller, id))
	defer func() { s.auditor.Record(ctx, caller, d, domain.UserRef(id), err) }()

	if err = d.Err(); err != nil {
		return err
	}
	if id < 1 {
		return domain.ErrInvalidID
	}

	if _, err = s.users.FindByID(ctx, id); err != nil {
		return err
	}
	if err = s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Int64("actor_id", caller.ID).Int64("target_id", id).Msg("user deleted")
	return nil
}
