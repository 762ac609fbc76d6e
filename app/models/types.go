package models

import "time"

// Post represents a blog post.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Contents  string    `json:"contents"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment represents a comment on a post. The API only ever lists them.
type Comment struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	PostID    int       `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostInput is the request body accepted by create and update.
type PostInput struct {
	Title    string `json:"title" validate:"required"`
	Contents string `json:"contents" validate:"required"`
}
