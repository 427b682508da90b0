package blog

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// MarkdownFile is an exported article: YAML frontmatter followed by the
// markdown body.
type MarkdownFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type frontmatter struct {
	Title     string    `yaml:"title"`
	Published bool      `yaml:"published"`
	CustomURL string    `yaml:"customUrl,omitempty"`
	SeriesID  string    `yaml:"seriesId,omitempty"`
	Tags      []string  `yaml:"tags,flow"`
	CreatedAt time.Time `yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt,omitempty"`
}

// ExportMarkdown renders a as a markdown file named after its custom URL,
// or its id when it has none.
func ExportMarkdown(a *Article) (MarkdownFile, error) {
	fm := frontmatter{
		Title:     a.Title,
		Published: a.Published,
		Tags:      make([]string, 0, len(a.Tags)),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	if a.CustomURL != nil {
		fm.CustomURL = *a.CustomURL
	}
	if a.SeriesID != nil {
		fm.SeriesID = *a.SeriesID
	}
	for _, t := range a.Tags {
		fm.Tags = append(fm.Tags, t.Name)
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterFence + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return MarkdownFile{}, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return MarkdownFile{}, err
	}
	buf.WriteString(frontmatterFence + "\n\n")
	buf.WriteString(a.Content)

	name := a.ID
	if a.CustomURL != nil && *a.CustomURL != "" {
		name = *a.CustomURL
	}
	return MarkdownFile{Filename: name + ".md", Content: buf.String()}, nil
}

// ParseMarkdown reads a markdown file with optional YAML frontmatter. When
// the frontmatter has no title, the first level-one heading is used.
func ParseMarkdown(src string) (ArticleInput, error) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	var fm frontmatter
	body := src
	if strings.HasPrefix(src, frontmatterFence+"\n") {
		rest := src[len(frontmatterFence)+1:]
		var head string
		var ok bool
		if strings.HasPrefix(rest, frontmatterFence+"\n") || rest == frontmatterFence {
			head, body, ok = "", strings.TrimPrefix(rest, frontmatterFence), true
		} else {
			head, body, ok = strings.Cut(rest, "\n"+frontmatterFence+"\n")
			if !ok && strings.HasSuffix(rest, "\n"+frontmatterFence) {
				head, body, ok = strings.TrimSuffix(rest, "\n"+frontmatterFence), "", true
			}
		}
		if !ok {
			return ArticleInput{}, invalid("content", "unterminated frontmatter")
		}
		if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
			return ArticleInput{}, invalid("content", "invalid frontmatter: "+err.Error())
		}
		body = strings.TrimLeft(body, "\n")
	}

	in := ArticleInput{
		Title:     fm.Title,
		Content:   body,
		Tags:      fm.Tags,
		Published: fm.Published,
	}
	if fm.CustomURL != "" {
		in.CustomURL = &fm.CustomURL
	}
	if fm.SeriesID != "" {
		in.SeriesID = &fm.SeriesID
	}
	if in.Title == "" {
		in.Title = firstHeading(body)
	}
	return in, nil
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// ExportArticles renders authorID's articles matching f, newest first.
func (s *Store) ExportArticles(ctx context.Context, authorID string, f AuthorFilter) ([]MarkdownFile, error) {
	var articles []Article
	err := s.authorQuery(ctx, authorID, f).Preload("Tags").
		Order("articles.created_at DESC").Find(&articles).Error
	if err != nil {
		return nil, err
	}
	files := make([]MarkdownFile, 0, len(articles))
	for i := range articles {
		file, err := ExportMarkdown(&articles[i])
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
