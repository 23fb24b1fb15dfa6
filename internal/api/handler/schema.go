package handler

import "github.com/amy/portal-client/internal/core/domain"

type linkRequest struct {
	Nickname string `json:"nickname" validate:"required"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// sessionResponse renders the derived session views.
type sessionResponse struct {
	Authenticated bool                       `json:"authenticated"`
	User          *domain.User               `json:"user,omitempty"`
	LoginURL      string                     `json:"loginUrl"`
	ProfilePath   string                     `json:"profilePath"`
	Application   *domain.ApplicationSummary `json:"application,omitempty"`
	Loading       bool                       `json:"loading"`
	Error         string                     `json:"error,omitempty"`
}

type newsResponse struct {
	Items   []domain.NewsItem `json:"items"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

type profileResponse struct {
	Profile domain.PublicProfile `json:"profile"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
