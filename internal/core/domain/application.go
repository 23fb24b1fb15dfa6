package domain

import "strings"

// ApplicationPayload is the body of POST /rp/applications.
type ApplicationPayload struct {
	Nickname  string `json:"nickname"  validate:"required,nickname"`
	Source    string `json:"source"    validate:"max=200"`
	RPName    string `json:"rpName"    validate:"max=120"`
	BirthDate string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Race      string `json:"race"      validate:"required,max=80"`
	Gender    string `json:"gender"    validate:"required,max=80"`
	Skills    string `json:"skills"    validate:"required,max=2200"`
	Plan      string `json:"plan"      validate:"required,max=2200"`
	Biography string `json:"biography" validate:"required,max=7000,sentences=5"`
	SkinURL   string `json:"skinUrl"   validate:"required,https_url"`
}

// Normalize trims every text field in place.
func (p *ApplicationPayload) Normalize() {
	p.Nickname = strings.TrimSpace(p.Nickname)
	p.Source = strings.TrimSpace(p.Source)
	p.RPName = strings.TrimSpace(p.RPName)
	p.BirthDate = strings.TrimSpace(p.BirthDate)
	p.Race = strings.TrimSpace(p.Race)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Skills = strings.TrimSpace(p.Skills)
	p.Plan = strings.TrimSpace(p.Plan)
	p.Biography = strings.TrimSpace(p.Biography)
	p.SkinURL = strings.TrimSpace(p.SkinURL)
}
