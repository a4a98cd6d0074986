package marketplace

import (
	"context"
	"strings"

	"blocknex-supply-api-server/internal/models"
)

type ProfileInput struct {
	CompanyName    string         `json:"companyName"`
	CompanyAddress models.Address `json:"companyAddress"`
	Location       string         `json:"location"`
	GSTNumber      string         `json:"gstNumber"`
}

// GetProfile returns info/{uid}. Users without one get an empty profile.
func (s *Service) GetProfile(ctx context.Context, uid string) (models.Profile, error) {
	return s.profile(ctx, uid)
}

// UpdateProfile saves the business details. The signing key registry in the
// same document is never touched here.
func (s *Service) UpdateProfile(ctx context.Context, uid string, in ProfileInput) (models.Profile, error) {
	fields := map[string]interface{}{
		"uid":            uid,
		"companyName":    strings.TrimSpace(in.CompanyName),
		"companyAddress": in.CompanyAddress,
		"location":       strings.TrimSpace(in.Location),
		"gstNumber":      strings.ToUpper(strings.TrimSpace(in.GSTNumber)),
	}
	if err := s.store.Merge(ctx, models.ProfilesCollection, uid, fields); err != nil {
		return models.Profile{}, err
	}
	return s.profile(ctx, uid)
}
