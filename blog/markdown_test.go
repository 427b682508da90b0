package blog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportMarkdown(t *testing.T) {
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	a := &Article{
		ID: "id-1", Title: "Hello: World", Content: "# Hello\n\nBody", Published: true,
		CustomURL: strPtr("hello"), Tags: []Tag{{Name: "go"}, {Name: "web"}},
		CreatedAt: created, UpdatedAt: created,
	}
	file, err := ExportMarkdown(a)
	require.NoError(t, err)
	assert.Equal(t, "hello.md", file.Filename)
	assert.True(t, strings.HasPrefix(file.Content, "---\n"))
	assert.Contains(t, file.Content, "tags: [go, web]")
	assert.Contains(t, file.Content, "published: true")
	assert.True(t, strings.HasSuffix(file.Content, "---\n\n# Hello\n\nBody"))

	a.CustomURL = nil
	file, err = ExportMarkdown(a)
	require.NoError(t, err)
	assert.Equal(t, "id-1.md", file.Filename)
}

func TestParseMarkdownRoundTrip(t *testing.T) {
	a := &Article{
		ID: "id-1", Title: "Hello: World", Content: "Body text", Published: true,
		CustomURL: strPtr("hello"), SeriesID: strPtr("s-1"), Tags: []Tag{{Name: "go"}},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	file, err := ExportMarkdown(a)
	require.NoError(t, err)

	in, err := ParseMarkdown(file.Content)
	require.NoError(t, err)
	assert.Equal(t, "Hello: World", in.Title)
	assert.Equal(t, "Body text", in.Content)
	assert.True(t, in.Published)
	assert.Equal(t, []string{"go"}, in.Tags)
	require.NotNil(t, in.CustomURL)
	assert.Equal(t, "hello", *in.CustomURL)
	require.NotNil(t, in.SeriesID)
	assert.Equal(t, "s-1", *in.SeriesID)
}

func TestParseMarkdownVariants(t *testing.T) {
	in, err := ParseMarkdown("# Plain title\r\n\r\nNo frontmatter here")
	require.NoError(t, err)
	assert.Equal(t, "Plain title", in.Title)
	assert.False(t, in.Published)

	in, err = ParseMarkdown("---\n---\n# From heading\n")
	require.NoError(t, err)
	assert.Equal(t, "From heading", in.Title)

	_, err = ParseMarkdown("---\ntitle: never closed\n")
	assert.Error(t, err)

	_, err = ParseMarkdown("---\ntitle: [unbalanced\n---\nbody")
	assert.Error(t, err)
}

func TestExportArticles(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")

	_, err := s.CreateArticle(ctx, alice.ID, ArticleInput{Title: "Old", Content: "x", Published: true})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = s.CreateArticle(ctx, alice.ID, ArticleInput{Title: "Draft", Content: "y", CustomURL: strPtr("draft")})
	require.NoError(t, err)

	files, err := s.ExportArticles(ctx, alice.ID, AuthorFilter{})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "draft.md", files[0].Filename)

	files, err = s.ExportArticles(ctx, alice.ID, AuthorFilter{Status: StatusPublished})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Content, "title: Old")
}
