package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"postsapi/app/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements PostStore on top of a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied to every connection the driver opens
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// OpenSQLiteStore opens the database at path and applies pending migrations.
// SQLite allows a single writer, so the pool is capped at one connection;
// that also keeps ":memory:" databases shared across requests.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite at %q: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	contents TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	post_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Find(ctx context.Context) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, contents, created_at, updated_at
FROM posts
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, contents, created_at, updated_at
FROM posts
WHERE id = ?
LIMIT 1
`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, post *models.Post) (int, error) {
	post.BeforeCreate()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (title, contents, created_at, updated_at)
VALUES (?, ?, ?, ?)
`, post.Title, post.Contents, post.CreatedAt.UnixMilli(), post.UpdatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	post.ID = int(id)
	return post.ID, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int, changes *models.Post) (int, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE posts SET title = ?, contents = ?, updated_at = ? WHERE id = ?
`, changes.Title, changes.Contents, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return 0, fmt.Errorf("update post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update post %d: %w", id, err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id int) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("remove post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove post %d: %w", id, err)
	}
	return int(n), nil
}

func (s *SQLiteStore) FindPostComments(ctx context.Context, postID int) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, text, post_id, created_at, updated_at
FROM comments
WHERE post_id = ?
ORDER BY id
`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.Text, &c.PostID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
		}
		c.CreatedAt = time.UnixMilli(createdAt).UTC()
		c.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments for post %d: %w", postID, err)
	}
	return comments, nil
}

func (s *SQLiteStore) InsertComment(ctx context.Context, comment *models.Comment) (int, error) {
	comment.BeforeCreate()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO comments (text, post_id, created_at, updated_at)
VALUES (?, ?, ?, ?)
`, comment.Text, comment.PostID, comment.CreatedAt.UnixMilli(), comment.UpdatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = int(id)
	return comment.ID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Title, &p.Contents, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}
