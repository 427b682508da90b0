package blog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	DefaultSiteTitle       = "Phantom Blog"
	DefaultSiteDescription = "A minimalist blogging platform for markdown lovers"
)

// SiteSettingsUpdate is a partial update. Empty titles and descriptions
// keep the stored value; the optional fields are overwritten whenever they
// are non-nil, so an empty string clears them.
type SiteSettingsUpdate struct {
	SiteTitle       *string
	SiteDescription *string
	LogoURL         *string
	FaviconURL      *string
	HeaderHTML      *string
	FooterHTML      *string
}

// SiteSettings returns the site settings, creating the defaults on first
// use.
func (s *Store) SiteSettings(ctx context.Context) (*SiteSettings, error) {
	var out *SiteSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = loadOrCreateSettings(tx)
		return err
	})
	return out, err
}

// UpdateSiteSettings applies up and returns the stored settings.
func (s *Store) UpdateSiteSettings(ctx context.Context, up SiteSettingsUpdate) (*SiteSettings, error) {
	var out *SiteSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := loadOrCreateSettings(tx)
		if err != nil {
			return err
		}
		if up.SiteTitle != nil && *up.SiteTitle != "" {
			settings.SiteTitle = *up.SiteTitle
		}
		if up.SiteDescription != nil && *up.SiteDescription != "" {
			settings.SiteDescription = *up.SiteDescription
		}
		if up.LogoURL != nil {
			settings.LogoURL = nullIfEmpty(up.LogoURL)
		}
		if up.FaviconURL != nil {
			settings.FaviconURL = nullIfEmpty(up.FaviconURL)
		}
		if up.HeaderHTML != nil {
			settings.HeaderHTML = nullIfEmpty(up.HeaderHTML)
		}
		if up.FooterHTML != nil {
			settings.FooterHTML = nullIfEmpty(up.FooterHTML)
		}
		if err := tx.Save(settings).Error; err != nil {
			return err
		}
		out = settings
		return nil
	})
	return out, err
}

func loadOrCreateSettings(tx *gorm.DB) (*SiteSettings, error) {
	var settings SiteSettings
	err := tx.Order("created_at ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	settings = SiteSettings{SiteTitle: DefaultSiteTitle, SiteDescription: DefaultSiteDescription}
	if err := tx.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
