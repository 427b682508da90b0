package blog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an author account. Credentials never leave the package in JSON.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	TOTPSecret   string    `gorm:"column:totp_secret" json:"-"`
	TOTPEnabled  bool      `gorm:"column:totp_enabled;not null;default:false" json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Article is a markdown post. A non-null DeletedAt puts it in the recycle
// bin; the default GORM scope hides it from every query except the
// recycle-bin ones.
type Article struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CustomURL *string        `gorm:"column:custom_url;uniqueIndex" json:"customUrl"`
	Published bool           `gorm:"not null;default:false" json:"published"`
	AuthorID  string         `gorm:"size:36;index;not null" json:"authorId"`
	Author    *User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	SeriesID  *string        `gorm:"size:36;index" json:"seriesId"`
	Series    *Series        `gorm:"foreignKey:SeriesID" json:"series,omitempty"`
	Tags      []Tag          `gorm:"many2many:article_tags" json:"tags"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt"`
}

func (a *Article) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Series groups articles. Articles is filled by ListSeries only.
type Series struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null" json:"name"`
	Description *string         `json:"description"`
	CustomURL   *string         `gorm:"column:custom_url;uniqueIndex" json:"customUrl"`
	Articles    []SeriesArticle `gorm:"-" json:"articles,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (s *Series) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SeriesArticle is the short form of an article listed under its series.
type SeriesArticle struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SeriesID string `json:"-"`
}

// ArticleHistory is a snapshot taken when an article is created or its
// content changes.
type ArticleHistory struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ArticleID string    `gorm:"size:36;index;not null" json:"articleId"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *ArticleHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// SiteSettings is a single-row table of site-wide presentation settings.
type SiteSettings struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	SiteTitle       string    `gorm:"not null" json:"siteTitle"`
	SiteDescription string    `gorm:"not null" json:"siteDescription"`
	LogoURL         *string   `gorm:"column:logo_url" json:"logoUrl"`
	FaviconURL      *string   `gorm:"column:favicon_url" json:"faviconUrl"`
	HeaderHTML      *string   `gorm:"column:header_html;type:text" json:"headerHtml"`
	FooterHTML      *string   `gorm:"column:footer_html;type:text" json:"footerHtml"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (s *SiteSettings) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func models() []any {
	return []any{&User{}, &Series{}, &Tag{}, &Article{}, &ArticleHistory{}, &SiteSettings{}}
}
