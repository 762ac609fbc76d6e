package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"postsapi/app/models"
	"postsapi/app/repositories"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Response messages. Clients match on these strings, keep them verbatim.
const (
	MsgPostsNotRetrieved = "The posts information could not be retrieved"
	MsgPostNotFound      = "The post with the specified ID does not exist"
	MsgMissingFields     = "Please provide title and contents for the post"
	MsgPostNotSaved      = "There was an error while saving the post to the database"
	MsgPostNotModified   = "The posts information could not be modified"
	MsgPostNotRemoved    = "The post could not be removed"
	MsgUnexpectedState   = "Something crazy is going on"
)

// PostController handles HTTP requests for posts and their comments.
// It keeps no state between requests.
type PostController struct {
	store repositories.PostStore
	log   *zap.Logger
}

// NewPostController creates a PostController backed by store
func NewPostController(store repositories.PostStore, log *zap.Logger) *PostController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostController{store: store, log: log}
}

// RegisterRoutes mounts the post routes on r, which is expected to be
// rooted at the posts prefix (e.g. /api/posts).
func (pc *PostController) RegisterRoutes(r *mux.Router) {
	for _, root := range []string{"", "/"} {
		r.HandleFunc(root, pc.Index).Methods(http.MethodGet)
		r.HandleFunc(root, pc.Create).Methods(http.MethodPost)
	}
	r.HandleFunc("/{id}", pc.Show).Methods(http.MethodGet)
	r.HandleFunc("/{id}", pc.Edit).Methods(http.MethodPut)
	r.HandleFunc("/{id}", pc.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/comments", pc.Comments).Methods(http.MethodGet)
}

// Index handles listing all posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.store.Find(r.Context())
	if err != nil {
		pc.backendError(w, r, err, MsgPostsNotRetrieved)
		return
	}
	pc.sendJSON(w, http.StatusOK, posts)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.lookup(r)
	if errors.Is(err, repositories.ErrNotFound) {
		pc.sendError(w, MsgPostNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		pc.backendError(w, r, err, MsgPostsNotRetrieved)
		return
	}
	pc.sendJSON(w, http.StatusOK, post)
}

// Create handles creating a new post. The post returned to the client is
// the last one in the full listing after the insert, not the insert result.
// An empty listing at that point is treated as a failed save (500) rather
// than answering 201 with no body.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	in := pc.decodeInput(r)
	if err := in.Validate(); err != nil {
		pc.sendError(w, MsgMissingFields, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := pc.store.Insert(ctx, in.ToPost()); err != nil {
		pc.backendError(w, r, err, MsgPostNotSaved)
		return
	}
	posts, err := pc.store.Find(ctx)
	if err != nil {
		pc.backendError(w, r, err, MsgPostNotSaved)
		return
	}
	if len(posts) == 0 {
		pc.backendError(w, r, errors.New("post listing empty after insert"), MsgPostNotSaved)
		return
	}
	pc.sendJSON(w, http.StatusCreated, posts[len(posts)-1])
}

// Edit handles updating an existing post. Existence is checked before the
// body, so an unknown id yields 404 even when the body is invalid.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	in := pc.decodeInput(r)
	valid := in.Validate() == nil

	existing, err := pc.lookup(r)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		pc.backendError(w, r, err, MsgPostNotModified)
		return
	}
	found := existing != nil

	switch {
	case valid && found:
		ctx := r.Context()
		if _, err := pc.store.Update(ctx, existing.ID, in.ToPost()); err != nil {
			pc.backendError(w, r, err, MsgPostNotModified)
			return
		}
		updated, err := pc.store.FindByID(ctx, existing.ID)
		if errors.Is(err, repositories.ErrNotFound) {
			pc.sendError(w, MsgPostNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			pc.backendError(w, r, err, MsgPostNotModified)
			return
		}
		pc.sendJSON(w, http.StatusOK, updated)
	case !found:
		pc.sendError(w, MsgPostNotFound, http.StatusNotFound)
	case !valid:
		pc.sendError(w, MsgMissingFields, http.StatusBadRequest)
	default:
		pc.sendError(w, MsgUnexpectedState, http.StatusBadRequest)
	}
}

// Delete handles deleting a post and responds with the record as it was
// before removal.
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	post, err := pc.lookup(r)
	if errors.Is(err, repositories.ErrNotFound) {
		pc.sendError(w, MsgPostNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		pc.backendError(w, r, err, MsgPostNotRemoved)
		return
	}

	if _, err := pc.store.Remove(r.Context(), post.ID); err != nil {
		pc.backendError(w, r, err, MsgPostNotRemoved)
		return
	}
	pc.sendJSON(w, http.StatusOK, post)
}

// Comments handles listing the comments of a post
func (pc *PostController) Comments(w http.ResponseWriter, r *http.Request) {
	post, err := pc.lookup(r)
	if errors.Is(err, repositories.ErrNotFound) {
		pc.sendError(w, MsgPostNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		pc.backendError(w, r, err, MsgPostsNotRetrieved)
		return
	}

	comments, err := pc.store.FindPostComments(r.Context(), post.ID)
	if err != nil {
		pc.backendError(w, r, err, MsgPostsNotRetrieved)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	pc.sendJSON(w, http.StatusOK, comments)
}

// lookup fetches the post named by the {id} path variable. An id that is
// not an integer can never exist, so it is reported as ErrNotFound without
// touching the store.
func (pc *PostController) lookup(r *http.Request) (*models.Post, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	return pc.store.FindByID(r.Context(), id)
}

// decodeInput reads the JSON body. A missing or malformed body leaves the
// fields empty, which validation then rejects.
func (pc *PostController) decodeInput(r *http.Request) *models.PostInput {
	var in models.PostInput
	if r.Body == nil {
		return &in
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		pc.log.Debug("undecodable post body", zap.Error(err))
		return &models.PostInput{}
	}
	return &in
}

// Helper methods for consistent response handling

func (pc *PostController) backendError(w http.ResponseWriter, r *http.Request, err error, message string) {
	pc.log.Error("store call failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	pc.sendError(w, message, http.StatusInternalServerError)
}

func (pc *PostController) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		pc.log.Warn("failed to write response", zap.Error(err))
	}
}

func (pc *PostController) sendError(w http.ResponseWriter, message string, status int) {
	pc.sendJSON(w, status, map[string]string{"message": message})
}
