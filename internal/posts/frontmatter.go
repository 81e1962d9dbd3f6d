package posts

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

const delimiter = "---"

// Frontmatter is the YAML header of a local post file. Everything except
// the body of the post lives here.
type Frontmatter struct {
	ID            string    `yaml:"id,omitempty"`
	Title         string    `yaml:"title"`
	Slug          string    `yaml:"slug,omitempty"`
	Status        string    `yaml:"status,omitempty"`
	Tags          []string  `yaml:"tags,omitempty"`
	Featured      bool      `yaml:"featured,omitempty"`
	Page          bool      `yaml:"page,omitempty"`
	CustomExcerpt string    `yaml:"custom_excerpt,omitempty"`
	UpdatedAt     time.Time `yaml:"updated_at,omitempty"`
}

// FrontmatterFor captures the metadata of p.
func FrontmatterFor(p *ghost.Post) Frontmatter {
	return Frontmatter{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		Status:        p.Status,
		Tags:          p.TagNames(),
		Featured:      p.Featured,
		Page:          p.Page,
		CustomExcerpt: p.CustomExcerpt,
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

// Apply copies the editable fields onto p.
func (fm Frontmatter) Apply(p *ghost.Post) {
	p.Title = fm.Title
	p.Featured = fm.Featured
	p.Page = fm.Page
	p.CustomExcerpt = fm.CustomExcerpt

	if fm.Slug != "" {
		p.Slug = fm.Slug
	}

	if fm.Status != "" {
		p.Status = fm.Status
	}

	p.Tags = make([]ghost.Tag, 0, len(fm.Tags))
	for _, name := range fm.Tags {
		p.Tags = append(p.Tags, ghost.Tag{Name: name})
	}
}

// differs reports whether applying fm to p would change p.
func (fm Frontmatter) differs(p *ghost.Post) bool {
	return fm.Title != p.Title ||
		(fm.Slug != "" && fm.Slug != p.Slug) ||
		(fm.Status != "" && fm.Status != p.Status) ||
		fm.Featured != p.Featured ||
		fm.Page != p.Page ||
		fm.CustomExcerpt != p.CustomExcerpt ||
		!slices.Equal(fm.Tags, p.TagNames())
}

// ParseDocument splits a post file into frontmatter and markdown body.
// A file without frontmatter is all body.
func ParseDocument(content []byte) (Frontmatter, string, error) {
	var fm Frontmatter

	if !bytes.HasPrefix(content, []byte(delimiter)) {
		return fm, string(content), nil
	}

	// Skip the rest of the opening line (could be "---\n" or "---\r\n").
	rest := content[len(delimiter):]

	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		return fm, string(content), nil
	}

	rest = rest[idx+1:]

	// The closing delimiter must be on its own line.
	var block []byte

	switch {
	case bytes.HasPrefix(rest, []byte(delimiter+"\n")), bytes.HasPrefix(rest, []byte(delimiter+"\r\n")):
		rest = rest[len(delimiter):]
	default:
		end := bytes.Index(rest, []byte("\n"+delimiter))
		if end < 0 {
			return fm, string(content), nil
		}

		block = rest[:end]
		rest = rest[end+1+len(delimiter):]
	}

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return fm, "", fmt.Errorf("parsing frontmatter: %w", err)
	}

	rest = trimNewline(trimNewline(rest))

	return fm, string(rest), nil
}

// RenderDocument is the inverse of ParseDocument.
func RenderDocument(fm Frontmatter, body string) ([]byte, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}

	var buf bytes.Buffer

	buf.Grow(len(header) + len(body) + 2*len(delimiter) + 3)
	buf.WriteString(delimiter + "\n")
	buf.Write(header)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(body)

	return buf.Bytes(), nil
}

func trimNewline(b []byte) []byte {
	if bytes.HasPrefix(b, []byte("\r\n")) {
		return b[2:]
	}

	return bytes.TrimPrefix(b, []byte("\n"))
}
