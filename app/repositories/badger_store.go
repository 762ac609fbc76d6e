package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"

	"postsapi/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements PostStore using BadgerDB
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger database at path.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened badger database
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Find returns every post in id order
func (s *BadgerStore) Find(ctx context.Context) ([]*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts := []*models.Post{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			}); err != nil {
				return err
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// FindByID retrieves a post by ID
func (s *BadgerStore) FindByID(ctx context.Context, id int) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var post models.Post
	err := s.db.View(func(txn *badger.Txn) error {
		return getPost(txn, id, &post)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// Insert stores a new post and assigns its ID
func (s *BadgerStore) Insert(ctx context.Context, post *models.Post) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id
		post.BeforeCreate()

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		return txn.Set(postKey(post.ID), data)
	})
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return post.ID, nil
}

// Update replaces the title and contents of an existing post.
// It returns the number of posts changed.
func (s *BadgerStore) Update(ctx context.Context, id int, changes *models.Post) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var updated int
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing models.Post
		if err := getPost(txn, id, &existing); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}

		existing.Title = changes.Title
		existing.Contents = changes.Contents
		existing.BeforeUpdate()

		data, err := marshalEntity(&existing)
		if err != nil {
			return err
		}
		if err := txn.Set(postKey(id), data); err != nil {
			return err
		}
		updated = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update post %d: %w", id, err)
	}
	return updated, nil
}

// Remove deletes a post by ID. Comments attached to it are left in place.
func (s *BadgerStore) Remove(ctx context.Context, id int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var removed int
	err := s.db.Update(func(txn *badger.Txn) error {
		key := postKey(id)
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		removed = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remove post %d: %w", id, err)
	}
	return removed, nil
}

// FindPostComments retrieves all comments for a post in id order
func (s *BadgerStore) FindPostComments(ctx context.Context, postID int) ([]*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comments := []*models.Comment{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := commentPrefix(postID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var comment models.Comment
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			}); err != nil {
				return err
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	return comments, nil
}

// InsertComment stores a new comment and assigns its ID
func (s *BadgerStore) InsertComment(ctx context.Context, comment *models.Comment) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id
		comment.BeforeCreate()

		data, err := marshalEntity(comment)
		if err != nil {
			return err
		}
		return txn.Set(commentKey(comment.PostID, comment.ID), data)
	})
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return comment.ID, nil
}

// Backup writes a full dump of the database to w
func (s *BadgerStore) Backup(w io.Writer) error {
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// Restore loads a dump produced by Backup. Keys in the dump overwrite
// existing keys, sequences included.
func (s *BadgerStore) Restore(r io.Reader) error {
	if err := s.db.Load(r, 16); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

func getPost(txn *badger.Txn, id int, post *models.Post) error {
	item, err := txn.Get(postKey(id))
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, post)
	})
}
