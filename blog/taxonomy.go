package blog

import (
	"context"
	"strings"
)

// ListTags returns every tag sorted by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	tags := []Tag{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// SeriesInput describes a new series.
type SeriesInput struct {
	Name        string
	Description *string
	CustomURL   *string
}

// ListSeries returns all series, newest first, each with the id and title
// of its articles outside the recycle bin.
func (s *Store) ListSeries(ctx context.Context) ([]Series, error) {
	series := []Series{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&series).Error; err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return series, nil
	}
	ids := make([]string, len(series))
	for i := range series {
		ids[i] = series[i].ID
	}
	var rows []SeriesArticle
	err := s.db.WithContext(ctx).Model(&Article{}).
		Select("id, title, series_id").
		Where("series_id IN ?", ids).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	bySeries := make(map[string][]SeriesArticle, len(series))
	for _, r := range rows {
		bySeries[r.SeriesID] = append(bySeries[r.SeriesID], r)
	}
	for i := range series {
		series[i].Articles = bySeries[series[i].ID]
		if series[i].Articles == nil {
			series[i].Articles = []SeriesArticle{}
		}
	}
	return series, nil
}

// CreateSeries adds a series. Names and custom URLs are unique.
func (s *Store) CreateSeries(ctx context.Context, in SeriesInput) (*Series, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "series name is required")
	}
	customURL := nullIfEmpty(in.CustomURL)

	q := s.db.WithContext(ctx).Model(&Series{}).Where("name = ?", name)
	if customURL != nil {
		q = q.Or("custom_url = ?", *customURL)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrConflict
	}

	series := &Series{Name: name, Description: nullIfEmpty(in.Description), CustomURL: customURL}
	if err := s.db.WithContext(ctx).Omit("Articles").Create(series).Error; err != nil {
		return nil, err
	}
	return series, nil
}
