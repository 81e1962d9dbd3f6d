package models

import "time"

// PostRecord links a remote post to its local markdown file. BaseMarkdown
// is the body as of the last pull or push and serves as the merge base.
type PostRecord struct {
	PostID       string    `json:"post_id"`
	Path         string    `json:"path"`
	UpdatedAt    time.Time `json:"updated_at"`
	BaseMarkdown string    `json:"base_markdown"`
	Hash         string    `json:"hash"`
}
