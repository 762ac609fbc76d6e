package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that both title and contents were provided
func (in *PostInput) Validate() error {
	return validate.Struct(in)
}

// ToPost builds a post record from the input
func (in *PostInput) ToPost() *Post {
	return &Post{
		Title:    in.Title,
		Contents: in.Contents,
	}
}

// BeforeCreate sets up any necessary fields before creation
func (p *Post) BeforeCreate() {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// BeforeUpdate refreshes the modification time
func (p *Post) BeforeUpdate() {
	p.UpdatedAt = time.Now().UTC()
}
