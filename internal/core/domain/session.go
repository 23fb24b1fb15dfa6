package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Session is the payload of GET /auth/me.
//
// A missing or false Authenticated flag means "not authenticated"; it is never
// inferred from the presence of User.
type Session struct {
	Authenticated Opt[bool] `json:"authenticated"`
	User          Opt[User] `json:"user"`
}

// AnonymousSession is the value published before the first successful load.
func AnonymousSession() Session {
	return Session{Authenticated: Some(false)}
}

// SessionState is every session view read from one snapshot of the cell, so
// the fields always agree with each other.
type SessionState struct {
	Authenticated bool
	User          Opt[User]
	LoginURL      string
	ProfilePath   string
	Application   Opt[ApplicationSummary]
	Generation    uint64
	Loading       bool
	Err           error
}

// User is the signed-in account as reported by the server.
type User struct {
	ID              string                  `json:"id"`
	Username        string                  `json:"username"`
	DisplayName     Opt[string]             `json:"displayName"`
	Email           Opt[string]             `json:"email"`
	Avatar          Opt[string]             `json:"avatar"`
	AvatarURL       Opt[string]             `json:"avatarUrl"`
	LinkedMinecraft Opt[string]             `json:"linkedMinecraft"`
	RPFirstName     Opt[string]             `json:"rpFirstName"`
	RPLastName      Opt[string]             `json:"rpLastName"`
	ProfileURL      Opt[string]             `json:"profileUrl"`
	IsOnline        Opt[bool]               `json:"isOnline"`
	RPApplication   Opt[ApplicationSummary] `json:"rpApplication"`
}

// ApplicationStatus is the moderation state of a roleplay application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationCanceled ApplicationStatus = "canceled"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus accepts only the closed set of known statuses.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	switch s := ApplicationStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case ApplicationPending, ApplicationAccepted, ApplicationCanceled, ApplicationApproved, ApplicationRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown application status %q", raw)
	}
}

// Normalized folds the legacy aliases: approved -> accepted, rejected -> canceled.
func (s ApplicationStatus) Normalized() ApplicationStatus {
	switch s {
	case ApplicationApproved:
		return ApplicationAccepted
	case ApplicationRejected:
		return ApplicationCanceled
	default:
		return s
	}
}

// Final reports whether moderation has concluded for this status.
func (s ApplicationStatus) Final() bool {
	n := s.Normalized()
	return n == ApplicationAccepted || n == ApplicationCanceled
}

func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseApplicationStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ApplicationSummary is the latest roleplay application attached to a user.
type ApplicationSummary struct {
	ID          string            `json:"id"`
	Status      ApplicationStatus `json:"status"`
	Nickname    string            `json:"nickname"`
	RPName      Opt[string]       `json:"rpName"`
	Race        Opt[string]       `json:"race"`
	Gender      Opt[string]       `json:"gender"`
	BirthDate   Opt[string]       `json:"birthDate"`
	CreatedAt   Opt[time.Time]    `json:"createdAt"`
	UpdatedAt   Opt[time.Time]    `json:"updatedAt"`
	ModeratedAt Opt[time.Time]    `json:"moderatedAt"`
}

// PublicProfile is the payload of GET /profiles/{id}.
type PublicProfile struct {
	ID              string         `json:"id"`
	Username        string         `json:"username"`
	DisplayName     Opt[string]    `json:"displayName"`
	AvatarURL       Opt[string]    `json:"avatarUrl"`
	LinkedMinecraft Opt[string]    `json:"linkedMinecraft"`
	RPFirstName     Opt[string]    `json:"rpFirstName"`
	RPLastName      Opt[string]    `json:"rpLastName"`
	JoinedAt        Opt[time.Time] `json:"joinedAt"`
	IsOnline        Opt[bool]      `json:"isOnline"`
}
