package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// Resolver authenticates bearer tokens. The principal it returns always
// carries the role currently stored for the subject, not the role the token
// was issued with.
type Resolver struct {
	codec    ports.TokenCodec
	denylist ports.TokenDenylist
	users    ports.UserRepository
	log      zerolog.Logger
}

// NewResolver returns a Resolver. denylist may be nil, in which case tokens
// are only terminated by expiry.
func NewResolver(codec ports.TokenCodec, denylist ports.TokenDenylist, users ports.UserRepository, log zerolog.Logger) *Resolver {
	return &Resolver{
		codec:    codec,
		denylist: denylist,
		users:    users,
		log:      log.With().Str("component", "resolver").Logger(),
	}
}

func (r *Resolver) Resolve(ctx context.Context, bearer string) (domain.Principal, *domain.Session, error) {
	if bearer == "" {
		return domain.Principal{}, nil, domain.ErrNotAuthenticated
	}

	session, err := r.codec.Decode(bearer)
	if err != nil {
		metrics.TokenRejectionsTotal.WithLabelValues("invalid").Inc()
		return domain.Principal{}, nil, domain.ErrInvalidToken
	}

	if r.denylist != nil && session.ID != "" {
		revoked, err := r.denylist.IsRevoked(ctx, session.ID)
		if err != nil {
			return domain.Principal{}, nil, fmt.Errorf("resolve: check denylist: %w", err)
		}
		if revoked {
			metrics.TokenRejectionsTotal.WithLabelValues("revoked").Inc()
			return domain.Principal{}, nil, domain.ErrInvalidToken
		}
	}

	user, err := r.users.FindByUsername(ctx, session.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.TokenRejectionsTotal.WithLabelValues("unknown_subject").Inc()
			return domain.Principal{}, nil, domain.ErrInvalidToken
		}
		return domain.Principal{}, nil, fmt.Errorf("resolve: load subject: %w", err)
	}

	if user.Role != session.Role {
		r.log.Debug().
			Str("username", user.Username).
			Str("token_role", session.Role).
			Str("stored_role", user.Role).
			Msg("role changed since token issuance")
	}

	return domain.PrincipalOf(user), session, nil
}
