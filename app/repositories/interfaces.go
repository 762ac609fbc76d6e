package repositories

import (
	"context"
	"errors"

	"postsapi/app/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// PostStore defines the persistence contract the post router depends on.
// FindByID returns ErrNotFound when the post does not exist; any other
// error is a backend failure.
type PostStore interface {
	Find(ctx context.Context) ([]*models.Post, error)
	FindByID(ctx context.Context, id int) (*models.Post, error)
	Insert(ctx context.Context, post *models.Post) (int, error)
	Update(ctx context.Context, id int, post *models.Post) (int, error)
	Remove(ctx context.Context, id int) (int, error)
	FindPostComments(ctx context.Context, postID int) ([]*models.Comment, error)
	InsertComment(ctx context.Context, comment *models.Comment) (int, error)
	Close() error
}
