package handler

import (
	"time"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toVulnerabilityResponse(v *domain.Vulnerability) vulnerabilityResponse {
	return vulnerabilityResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Severity:    string(v.Severity),
		CreatedBy:   v.CreatedBy,
		CreatedAt:   formatTime(v.CreatedAt),
		Status:      string(v.Status),
	}
}

func toVulnerabilityResponses(items []*domain.Vulnerability) []vulnerabilityResponse {
	out := make([]vulnerabilityResponse, 0, len(items))
	for _, v := range items {
		out = append(out, toVulnerabilityResponse(v))
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
