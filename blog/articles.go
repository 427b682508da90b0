package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jmcleod/phantom/auth"
)

// TrashRetention is how long a deleted article stays in the recycle bin
// before PurgeTrashed removes it for good.
const TrashRetention = 30 * 24 * time.Hour

// ArticleInput describes a new article.
type ArticleInput struct {
	Title     string
	Content   string
	Tags      []string
	CustomURL *string
	Published bool
	SeriesID  *string
}

// ArticleUpdate is a partial update. Nil fields are left unchanged. Tags
// replaces the full tag set when non-nil. An empty CustomURL or SeriesID
// clears the field.
type ArticleUpdate struct {
	Title     *string
	Content   *string
	Tags      []string
	CustomURL *string
	Published *bool
	SeriesID  *string
}

// Status filters author article lists by publication state.
type Status string

const (
	StatusAll       Status = "all"
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// PublicFilter narrows the public article list.
type PublicFilter struct {
	Search string
	Tag    string
}

// AuthorFilter narrows an author's own article list.
type AuthorFilter struct {
	Status   Status
	SeriesID string
	Search   string
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func withAuthorAndSeries(db *gorm.DB) *gorm.DB {
	return withAuthor(db).Preload("Series")
}

// ListPublished returns published articles, newest first.
func (s *Store) ListPublished(ctx context.Context, f PublicFilter) ([]Article, error) {
	q := s.db.WithContext(ctx).Model(&Article{}).
		Scopes(withAuthor, searchScope(f.Search)).
		Where("articles.published = ?", true)
	if f.Tag != "" {
		q = q.Joins("JOIN article_tags ON article_tags.article_id = articles.id").
			Joins("JOIN tags ON tags.id = article_tags.tag_id").
			Where("tags.name = ?", f.Tag)
	}
	articles := []Article{}
	if err := q.Order("articles.created_at DESC").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// GetPublished returns a published article by id or custom URL.
func (s *Store) GetPublished(ctx context.Context, idOrURL string) (*Article, error) {
	var a Article
	err := s.db.WithContext(ctx).Scopes(withAuthor).
		Where("(id = ? OR custom_url = ?) AND published = ?", idOrURL, idOrURL, true).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// CreateArticle stores a new article owned by authorID, upserting its tags
// by name and recording the first history entry.
func (s *Store) CreateArticle(ctx context.Context, authorID string, in ArticleInput) (*Article, error) {
	if in.Title == "" || in.Content == "" {
		return nil, invalid("", "title and content are required")
	}
	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := createArticle(tx, authorID, in)
		if err != nil {
			return err
		}
		id = a.ID
		return tx.Create(&ArticleHistory{ArticleID: a.ID, Title: a.Title, Content: a.Content}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.loadArticle(ctx, id)
}

func createArticle(tx *gorm.DB, authorID string, in ArticleInput) (*Article, error) {
	customURL := nullIfEmpty(in.CustomURL)
	if customURL != nil {
		if err := checkCustomURL(tx, *customURL, ""); err != nil {
			return nil, err
		}
	}
	seriesID := nullIfEmpty(in.SeriesID)
	if err := checkSeries(tx, seriesID); err != nil {
		return nil, err
	}
	tags, err := upsertTags(tx, in.Tags)
	if err != nil {
		return nil, err
	}
	a := &Article{
		Title:     in.Title,
		Content:   in.Content,
		CustomURL: customURL,
		Published: in.Published,
		AuthorID:  authorID,
		SeriesID:  seriesID,
		Tags:      tags,
	}
	if err := tx.Omit("Author", "Series", "Tags.*").Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateArticle applies a partial update to an article owned by authorID.
// A history entry is recorded when the content changes.
func (s *Store) UpdateArticle(ctx context.Context, authorID, id string, up ArticleUpdate) (*Article, error) {
	if up.Title != nil && *up.Title == "" {
		return nil, invalid("title", "must not be empty")
	}
	if up.Content != nil && *up.Content == "" {
		return nil, invalid("content", "must not be empty")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedArticle(tx, authorID, id)
		if err != nil {
			return err
		}
		// Updates writes the new values back into a, so compare first.
		contentChanged := up.Content != nil && *up.Content != a.Content
		title := a.Title
		if up.Title != nil {
			title = *up.Title
		}

		values := map[string]any{}
		if up.Title != nil {
			values["title"] = *up.Title
		}
		if up.Content != nil {
			values["content"] = *up.Content
		}
		if up.Published != nil {
			values["published"] = *up.Published
		}
		if up.CustomURL != nil {
			next := nullIfEmpty(up.CustomURL)
			if next != nil && (a.CustomURL == nil || *a.CustomURL != *next) {
				if err := checkCustomURL(tx, *next, a.ID); err != nil {
					return err
				}
			}
			values["custom_url"] = next
		}
		if up.SeriesID != nil {
			next := nullIfEmpty(up.SeriesID)
			if err := checkSeries(tx, next); err != nil {
				return err
			}
			values["series_id"] = next
		}
		if len(values) > 0 {
			if err := tx.Model(a).Updates(values).Error; err != nil {
				return err
			}
		}
		if up.Tags != nil {
			if err := replaceTags(tx, a, up.Tags); err != nil {
				return err
			}
		}
		if contentChanged {
			if err := tx.Create(&ArticleHistory{ArticleID: a.ID, Title: title, Content: *up.Content}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadArticle(ctx, id)
}

// DeleteArticle moves an article owned by authorID to the recycle bin.
func (s *Store) DeleteArticle(ctx context.Context, authorID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedArticle(tx, authorID, id)
		if err != nil {
			return err
		}
		return tx.Delete(a).Error
	})
}

// ListAuthorArticles returns authorID's articles outside the recycle bin,
// most recently updated first.
func (s *Store) ListAuthorArticles(ctx context.Context, authorID string, f AuthorFilter) ([]Article, error) {
	articles := []Article{}
	err := s.authorQuery(ctx, authorID, f).Scopes(withAuthorAndSeries).
		Order("articles.updated_at DESC").Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *Store) authorQuery(ctx context.Context, authorID string, f AuthorFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Article{}).
		Scopes(searchScope(f.Search)).
		Where("articles.author_id = ?", authorID)
	switch f.Status {
	case StatusPublished:
		q = q.Where("articles.published = ?", true)
	case StatusDraft:
		q = q.Where("articles.published = ?", false)
	}
	if f.SeriesID != "" {
		q = q.Where("articles.series_id = ?", f.SeriesID)
	}
	return q
}

// GetAuthorArticle returns one of authorID's articles outside the recycle
// bin, published or not.
func (s *Store) GetAuthorArticle(ctx context.Context, authorID, id string) (*Article, error) {
	var a Article
	err := s.db.WithContext(ctx).Preload("Tags").Preload("Series").
		Where("id = ? AND author_id = ?", id, authorID).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListTrashed returns authorID's articles in the recycle bin, most
// recently deleted first.
func (s *Store) ListTrashed(ctx context.Context, authorID string) ([]Article, error) {
	articles := []Article{}
	err := s.db.WithContext(ctx).Unscoped().Scopes(withAuthorAndSeries).
		Where("author_id = ? AND deleted_at IS NOT NULL", authorID).
		Order("deleted_at DESC").Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// RestoreArticle takes an article out of the recycle bin.
func (s *Store) RestoreArticle(ctx context.Context, authorID, id string) (*Article, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedArticle(tx.Unscoped(), authorID, id)
		if err != nil {
			return err
		}
		return tx.Unscoped().Model(a).Update("deleted_at", nil).Error
	})
	if err != nil {
		return nil, err
	}
	return s.loadArticle(ctx, id)
}

// PurgeTrashed permanently deletes authorID's articles that have been in
// the recycle bin longer than TrashRetention, with their tags links and
// history. It returns the number of articles removed.
func (s *Store) PurgeTrashed(ctx context.Context, authorID string) (int64, error) {
	cutoff := s.now().UTC().Add(-TrashRetention)
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Unscoped().Model(&Article{}).
			Where("author_id = ? AND deleted_at IS NOT NULL AND deleted_at < ?", authorID, cutoff).
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return err
		}
		if err := tx.Exec("DELETE FROM article_tags WHERE article_id IN ?", ids).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id IN ?", ids).Delete(&ArticleHistory{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Where("id IN ?", ids).Delete(&Article{})
		purged = res.RowsAffected
		return res.Error
	})
	return purged, err
}

// DuplicateArticle copies an article as a new draft titled "<title> (Copy)"
// with the same tags and series and no custom URL.
func (s *Store) DuplicateArticle(ctx context.Context, authorID, id string) (*Article, error) {
	var copyID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orig, err := ownedArticle(tx.Preload("Tags"), authorID, id)
		if err != nil {
			return err
		}
		dup := &Article{
			Title:    orig.Title + " (Copy)",
			Content:  orig.Content,
			AuthorID: authorID,
			SeriesID: orig.SeriesID,
			Tags:     orig.Tags,
		}
		if err := tx.Omit("Author", "Series", "Tags.*").Create(dup).Error; err != nil {
			return err
		}
		copyID = dup.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadArticle(ctx, copyID)
}

// History returns the snapshots of an article owned by authorID, newest
// first.
func (s *Store) History(ctx context.Context, authorID, id string) ([]ArticleHistory, error) {
	if _, err := ownedArticle(s.db.WithContext(ctx).Unscoped(), authorID, id); err != nil {
		return nil, err
	}
	entries := []ArticleHistory{}
	err := s.db.WithContext(ctx).Where("article_id = ?", id).
		Order("created_at DESC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ImportArticles creates each input as a new article of authorID. Items
// that fail are skipped and described in the returned messages.
func (s *Store) ImportArticles(ctx context.Context, authorID string, items []ArticleInput) (int, []string) {
	count := 0
	var problems []string
	for _, in := range items {
		if in.Title == "" || in.Content == "" {
			problems = append(problems, "Skipped article: Missing title or content")
			continue
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := createArticle(tx, authorID, in)
			return err
		})
		if err != nil {
			problems = append(problems, fmt.Sprintf("Failed to import %q: %v", in.Title, err))
			continue
		}
		count++
	}
	return count, problems
}

func (s *Store) loadArticle(ctx context.Context, id string) (*Article, error) {
	var a Article
	if err := s.db.WithContext(ctx).Scopes(withAuthorAndSeries).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ownedArticle loads an article and checks that authorID owns it.
func ownedArticle(tx *gorm.DB, authorID, id string) (*Article, error) {
	if id == "" {
		return nil, invalid("articleId", "is required")
	}
	var a Article
	if err := tx.First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if a.AuthorID != authorID {
		return nil, auth.ErrForbidden
	}
	return &a, nil
}

// checkCustomURL fails with ErrConflict when another article, trashed ones
// included, already uses url.
func checkCustomURL(tx *gorm.DB, url, exceptID string) error {
	var n int64
	q := tx.Unscoped().Model(&Article{}).Where("custom_url = ?", url)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("custom URL already taken: %w", ErrConflict)
	}
	return nil
}

func checkSeries(tx *gorm.DB, seriesID *string) error {
	if seriesID == nil {
		return nil
	}
	var n int64
	if err := tx.Model(&Series{}).Where("id = ?", *seriesID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalid("seriesId", "unknown series")
	}
	return nil
}

func upsertTags(tx *gorm.DB, names []string) ([]Tag, error) {
	seen := make(map[string]bool, len(names))
	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		var t Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&t, Tag{Name: name}).Error; err != nil {
			return nil, fmt.Errorf("upserting tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func replaceTags(tx *gorm.DB, a *Article, names []string) error {
	tags, err := upsertTags(tx, names)
	if err != nil {
		return err
	}
	assoc := tx.Model(a).Association("Tags")
	if len(tags) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(tags)
}
