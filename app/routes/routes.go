package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"postsapi/app/controllers"
	"postsapi/app/middleware"
	"postsapi/app/repositories"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Prefixes the post router is mounted under
var PostPrefixes = []string{"/api/posts", "/posts"}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(store repositories.PostStore, log *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recoverer(log))

	postController := controllers.NewPostController(store, log)
	for _, prefix := range PostPrefixes {
		postController.RegisterRoutes(router.PathPrefix(prefix).Subrouter())
	}

	router.NotFoundHandler = jsonStatus(http.StatusNotFound, "Not found")
	router.MethodNotAllowedHandler = jsonStatus(http.StatusMethodNotAllowed, "Method not allowed")

	return router
}

func jsonStatus(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
	})
}

// NewServer wraps router in an http.Server listening on addr
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
