package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ritik/fanout-timeline/internal/broker"
	"github.com/ritik/fanout-timeline/internal/cache"
	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/metrics"
	"github.com/ritik/fanout-timeline/internal/models"
	"github.com/ritik/fanout-timeline/internal/reactor"
	"github.com/ritik/fanout-timeline/internal/store"
)

// Handler holds all HTTP handlers. It is the thin, non-core glue layer:
// it never implements fanout, dedup, or routing logic itself, only
// calls into the core packages that do.
type Handler struct {
	config    *config.Config
	posts     *store.PostStore
	users     *store.UserStore
	follows   *store.FollowStore
	timeline  *store.TimelineStore
	feedCache *cache.FeedCache
	publisher *broker.Publisher
	reactor   *reactor.Reactor
	reg       *metrics.Registry
}

func NewHandler(
	cfg *config.Config,
	posts *store.PostStore,
	users *store.UserStore,
	follows *store.FollowStore,
	timeline *store.TimelineStore,
	feedCache *cache.FeedCache,
	publisher *broker.Publisher,
	react *reactor.Reactor,
	reg *metrics.Registry,
) *Handler {
	return &Handler{
		config:    cfg,
		posts:     posts,
		users:     users,
		follows:   follows,
		timeline:  timeline,
		feedCache: feedCache,
		publisher: publisher,
		reactor:   react,
		reg:       reg,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// CreatePostRequest is the body for POST /api/posts.
type CreatePostRequest struct {
	AuthorID int64  `json:"author_id"`
	Body     string `json:"body"`
}

// CreatePost handles POST /api/posts: it persists the post, then hands
// the follower fan-out off to the Fanout Publisher. The HTTP response
// does not wait for fan-out delivery to complete, only for it to be
// durably queued.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.reg.Observe("posts.create", time.Since(start)) }()

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AuthorID == 0 {
		respondError(w, http.StatusBadRequest, "author_id is required")
		return
	}
	if req.Body == "" {
		respondError(w, http.StatusBadRequest, "body is required")
		return
	}

	ctx := r.Context()

	post, err := h.posts.Create(ctx, req.AuthorID, req.Body)
	if err != nil {
		if err == store.ErrInvalidBody {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	author, err := h.users.GetByID(ctx, req.AuthorID)
	if err == nil {
		post.AuthorUsername = author.Username
	}

	if err := h.feedCache.CachePost(ctx, post); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	followers, err := h.follows.GetFollowers(ctx, req.AuthorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recipients := append(followers, req.AuthorID)
	if err := h.publisher.PublishFanout(ctx, post, recipients); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.reg.Inc("posts.created")
	h.reg.IncBy("fanout.messages.published", int64(len(recipients)))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"post":          post,
		"fanout_count":  len(followers),
	})
}

// GetTimeline handles GET /api/timeline/{user_id}: it reads from the
// hot-path cache, falling back to the authoritative store and warming
// the cache on a miss.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.reg.Observe("feed.get_user_feed", time.Since(start)) }()

	userIDStr := chi.URLParam(r, "user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	limit := h.config.TimelinePageSize
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	ctx := r.Context()

	exists, err := h.feedCache.FeedExists(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !exists {
		h.reg.Inc("feed.cache.miss")
		entries, err := h.timeline.ReadRange(ctx, userID, h.config.RingCapacity, 0)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		cached := make([]models.CachedEntry, len(entries))
		for i, e := range entries {
			cached[i] = models.CachedEntry{
				PostID: e.PostID, Body: e.Body, AuthorID: e.AuthorID,
				AuthorUsername: e.AuthorUsername, Ts: e.Ts,
			}
		}
		if err := h.feedCache.Warm(ctx, userID, cached); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.reg.Inc("feed.warm.success")
	} else {
		h.reg.Inc("feed.cache.hit")
	}

	entries, err := h.feedCache.GetFeed(ctx, userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"posts":   entries,
		"count":   len(entries),
		"limit":   limit,
		"offset":  offset,
	})
}

// FollowRequest is the body for POST /api/follows.
type FollowRequest struct {
	FollowerID int64 `json:"follower_id"`
	FollowedID int64 `json:"followed_id"`
}

// CreateFollow handles POST /api/follows.
func (h *Handler) CreateFollow(w http.ResponseWriter, r *http.Request) {
	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reactor.OnFollow(r.Context(), req.FollowerID, req.FollowedID); err != nil {
		if errors.Is(err, store.ErrSelfFollow) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "follow created"})
}

// DeleteFollow handles DELETE /api/follows.
func (h *Handler) DeleteFollow(w http.ResponseWriter, r *http.Request) {
	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reactor.OnUnfollow(r.Context(), req.FollowerID, req.FollowedID); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "follow removed"})
}

// GetConfig handles GET /api/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"max_timeline_entries": h.config.MaxTimelineEntries,
		"ring_capacity":        h.config.RingCapacity,
		"timeline_page_size":   h.config.TimelinePageSize,
		"worker_count":         h.config.WorkerCount,
		"bucket_count":         h.config.BucketCount,
	})
}

// UpdateConfigRequest is the body for PUT /api/config.
type UpdateConfigRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// UpdateConfig handles PUT /api/config.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if v, ok := req.Value.(float64); ok {
		req.Value = int(v)
	}

	h.config.Update(req.Key, req.Value)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "config updated",
		"key":     req.Key,
		"value":   req.Value,
	})
}

// GetMetrics handles GET /api/metrics.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reg.Snapshot())
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSampleUsers handles GET /api/users/sample.
func (h *Handler) GetSampleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetRandomUsers(r.Context(), 5)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUserFollowers handles GET /api/users/{id}/followers.
func (h *Handler) GetUserFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx := r.Context()
	if _, err := h.users.GetByID(ctx, userID); err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	followers, err := h.follows.GetFollowers(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        userID,
		"follower_count": len(followers),
		"followers":      followers,
	})
}

// GetUserFollowing handles GET /api/users/{id}/following.
func (h *Handler) GetUserFollowing(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx := r.Context()
	if _, err := h.users.GetByID(ctx, userID); err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	following, err := h.follows.GetFollowing(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         userID,
		"following_count": len(following),
		"following":       following,
	})
}
