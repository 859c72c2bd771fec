package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agora-board/agora/middleware"
	"github.com/agora-board/agora/services"
	"github.com/agora-board/agora/utils"
)

// DiscussionController translates HTTP requests into engine calls and domain
// outcomes into client-facing statuses.
type DiscussionController struct {
	discussions *services.DiscussionService
	engagement  *services.EngagementService
	listing     *services.ListingService
}

// NewDiscussionController wires the three engines.
func NewDiscussionController(d *services.DiscussionService, e *services.EngagementService, l *services.ListingService) *DiscussionController {
	return &DiscussionController{discussions: d, engagement: e, listing: l}
}

type discussionRequest struct {
	Title      string    `json:"title" binding:"required"`
	Content    string    `json:"content" binding:"required"`
	Thumbnail  string    `json:"thumbnail" binding:"required"`
	Categories []string  `json:"categories"`
	Images     []string  `json:"images"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
}

func (req discussionRequest) toInput() services.DiscussionInput {
	return services.DiscussionInput{
		Title:      utils.Sanitize(strings.TrimSpace(req.Title)),
		Content:    utils.Sanitize(req.Content),
		Thumbnail:  strings.TrimSpace(req.Thumbnail),
		Categories: req.Categories,
		Images:     req.Images,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
}

// Create handles POST /discussions.
func (d *DiscussionController) Create(ctx *gin.Context) {
	var req discussionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	created, err := d.discussions.Create(ctx.Request.Context(), userID, req.toInput())
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "create success", gin.H{"discussion_id": created.ID})
}

// Update handles PUT /discussions/:id.
func (d *DiscussionController) Update(ctx *gin.Context) {
	var req discussionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := d.discussions.Update(ctx.Request.Context(), discussionID, userID, req.toInput()); err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "update success"})
}

// Delete handles DELETE /discussions/:id.
func (d *DiscussionController) Delete(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := d.discussions.Delete(ctx.Request.Context(), discussionID, userID); err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "delete success"})
}

// List handles GET /discussions?page=&sort=. Anonymous viewers get summaries
// with bookmark/like flags defaulted to false.
func (d *DiscussionController) List(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))
	sortKey := ctx.Query("sort")
	viewerID := viewerID(ctx)

	result, err := d.listing.ListByPage(ctx.Request.Context(), page, sortKey, viewerID)
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// Detail handles GET /discussions/:id. The view counter is accounted as a
// separate dedup-aware step and merged into the response.
func (d *DiscussionController) Detail(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}

	detail, discussion, err := d.listing.GetDetail(ctx.Request.Context(), discussionID, viewerID(ctx))
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}

	view, err := d.listing.IncreaseViewCount(ctx.Request.Context(), ctx.ClientIP(), discussion)
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	detail.View = view

	utils.Success(ctx, detail)
}

// ToggleBookmark handles POST /discussions/:id/bookmark.
func (d *DiscussionController) ToggleBookmark(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	bookmarked, err := d.engagement.ToggleBookmark(ctx.Request.Context(), userID, discussionID)
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"added": bookmarked})
}

// ToggleLike handles POST /discussions/:id/like. Both branches use the same
// field names.
func (d *DiscussionController) ToggleLike(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	liked, count, err := d.engagement.ToggleLike(ctx.Request.Context(), userID, discussionID)
	if err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"liked": liked, "like_count": count})
}

// Join handles POST /discussions/:id/participants.
func (d *DiscussionController) Join(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := d.engagement.Join(ctx.Request.Context(), userID, discussionID); err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "participate success", nil)
}

// Leave handles DELETE /discussions/:id/participants.
func (d *DiscussionController) Leave(ctx *gin.Context) {
	discussionID, ok := paramID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid discussion id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if err := d.engagement.Leave(ctx.Request.Context(), userID, discussionID); err != nil {
		d.respondOutcome(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "left the discussion"})
}

// respondOutcome maps domain outcomes to their statuses; storage faults
// collapse into one generic internal failure without leaking detail.
func (d *DiscussionController) respondOutcome(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40023, "check all the inputs")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "discussion not found")
	case errors.Is(err, services.ErrNotAuthor):
		utils.Error(ctx, http.StatusForbidden, 40301, "not the author")
	case errors.Is(err, services.ErrBanned):
		utils.Error(ctx, http.StatusForbidden, 40302, "banned user")
	case errors.Is(err, services.ErrAlreadyParticipating):
		utils.Error(ctx, http.StatusConflict, 40901, "already participating")
	case errors.Is(err, services.ErrNotParticipating):
		utils.Error(ctx, http.StatusNotFound, 40402, "not participating")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// parsePage defaults to page 1 for unparsable or non-positive input.
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func paramID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// viewerID returns the authenticated user id or 0 for anonymous viewers.
func viewerID(ctx *gin.Context) uint {
	id, ok := getUserID(ctx)
	if !ok {
		return 0
	}
	return id
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}
