package mock

import (
	"context"
	"sort"
	"sync"

	"postsapi/app/models"
	"postsapi/app/repositories"
)

// Store is an in-memory PostStore. Failures can be injected per method
// name ("Find", "FindByID", "Insert", "Update", "Remove", "FindPostComments")
// to exercise backend error paths.
type Store struct {
	posts         map[int]models.Post
	comments      map[int]models.Comment
	nextID        int
	nextCommentID int
	failures      map[string]error
	failuresAt    map[string]map[int]error
	calls         map[string]int
	mutex         sync.RWMutex
}

var _ repositories.PostStore = (*Store)(nil)

func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

// Clear drops every record, counter and injected failure
func (m *Store) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.posts = make(map[int]models.Post)
	m.comments = make(map[int]models.Comment)
	m.nextID = 1
	m.nextCommentID = 1
	m.failures = make(map[string]error)
	m.failuresAt = make(map[string]map[int]error)
	m.calls = make(map[string]int)
}

// FailOn makes every later call to method return err. A nil err clears it.
func (m *Store) FailOn(method string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// FailOnCall makes only the nth call (1-based, counted since the last
// Clear) to method return err. Calls before and after behave normally.
func (m *Store) FailOnCall(method string, n int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failuresAt[method] == nil {
		m.failuresAt[method] = make(map[int]error)
	}
	m.failuresAt[method][n] = err
}

// Calls reports how many times method has been invoked
func (m *Store) Calls(method string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.calls[method]
}

// record counts the call and returns the injected failure, if any.
// Callers must hold the write lock.
func (m *Store) record(method string) error {
	m.calls[method]++
	if err, ok := m.failuresAt[method][m.calls[method]]; ok {
		return err
	}
	return m.failures[method]
}

func (m *Store) Find(ctx context.Context) ([]*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("Find"); err != nil {
		return nil, err
	}
	posts := make([]*models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		p := post
		posts = append(posts, &p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func (m *Store) FindByID(ctx context.Context, id int) (*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("FindByID"); err != nil {
		return nil, err
	}
	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return &post, nil
}

func (m *Store) Insert(ctx context.Context, post *models.Post) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("Insert"); err != nil {
		return 0, err
	}
	post.ID = m.nextID
	m.nextID++
	post.BeforeCreate()
	m.posts[post.ID] = *post
	return post.ID, nil
}

func (m *Store) Update(ctx context.Context, id int, changes *models.Post) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("Update"); err != nil {
		return 0, err
	}
	existing, exists := m.posts[id]
	if !exists {
		return 0, nil
	}
	existing.Title = changes.Title
	existing.Contents = changes.Contents
	existing.BeforeUpdate()
	m.posts[id] = existing
	return 1, nil
}

func (m *Store) Remove(ctx context.Context, id int) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("Remove"); err != nil {
		return 0, err
	}
	if _, exists := m.posts[id]; !exists {
		return 0, nil
	}
	delete(m.posts, id)
	return 1, nil
}

func (m *Store) FindPostComments(ctx context.Context, postID int) ([]*models.Comment, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("FindPostComments"); err != nil {
		return nil, err
	}
	comments := []*models.Comment{}
	for _, comment := range m.comments {
		if comment.PostID == postID {
			c := comment
			comments = append(comments, &c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (m *Store) InsertComment(ctx context.Context, comment *models.Comment) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.record("InsertComment"); err != nil {
		return 0, err
	}
	comment.ID = m.nextCommentID
	m.nextCommentID++
	comment.BeforeCreate()
	m.comments[comment.ID] = *comment
	return comment.ID, nil
}

func (m *Store) Close() error {
	return nil
}
