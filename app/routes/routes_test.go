package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"postsapi/app/middleware"
	"postsapi/app/models"
	"postsapi/app/repositories"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRouter(t *testing.T) (*mux.Router, repositories.PostStore) {
	t.Helper()
	store, err := repositories.OpenBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	post := &models.Post{Title: "Test Post", Contents: "This is a test post"}
	_, err = store.Insert(context.Background(), post)
	require.NoError(t, err)
	_, err = store.InsertComment(context.Background(), &models.Comment{PostID: post.ID, Text: "Nice post"})
	require.NoError(t, err)

	return SetupRoutes(store, zap.NewNop()), store
}

func TestSetupRoutes(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"GET posts", "GET", "/api/posts", http.StatusOK},
		{"GET posts trailing slash", "GET", "/api/posts/", http.StatusOK},
		{"GET posts bare mount", "GET", "/posts", http.StatusOK},
		{"GET single post", "GET", "/api/posts/1", http.StatusOK},
		{"GET post comments", "GET", "/api/posts/1/comments", http.StatusOK},
		{"Unknown post", "GET", "/api/posts/2", http.StatusNotFound},
		{"Invalid post ID", "GET", "/api/posts/invalid", http.StatusNotFound},
		{"Unknown route", "GET", "/api/users", http.StatusNotFound},
		{"Wrong method", "PATCH", "/api/posts/1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/posts", nil))

	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestPostLifecycle(t *testing.T) {
	router, _ := setupTestRouter(t)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send("POST", "/api/posts", `{"title":"B","contents":"b"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 2, created.ID)
	assert.Equal(t, "B", created.Title)

	w = send("GET", "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, "Test Post", posts[0].Title)
	assert.Equal(t, "B", posts[1].Title)

	w = send("PUT", "/api/posts/2", `{"title":"B2","contents":"b2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "B2", updated.Title)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	w = send("DELETE", "/api/posts/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var deleted models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, "B2", deleted.Title)

	w = send("GET", "/api/posts/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"The post with the specified ID does not exist"}`, w.Body.String())

	w = send("GET", "/api/posts/1/comments", "")
	require.Equal(t, http.StatusOK, w.Code)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice post", comments[0].Text)
}

func TestConcurrentCreatesOnSQLite(t *testing.T) {
	store, err := repositories.OpenSQLiteStore(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	router := SetupRoutes(store, zap.NewNop())

	const requests = 100
	codes := make(chan int, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/posts", strings.NewReader(`{"title":"t","contents":"c"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	posts, err := store.Find(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, requests)
}

func TestNewServer(t *testing.T) {
	router, _ := setupTestRouter(t)
	srv := NewServer("localhost:0", router)

	assert.Equal(t, "localhost:0", srv.Addr)
	assert.Equal(t, router, srv.Handler)
}
