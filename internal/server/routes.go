package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/models"
	"github.com/scrumkit/scrumkit/internal/report"
	"github.com/scrumkit/scrumkit/internal/retro"
)

type handlers struct {
	svc       *retro.Service
	bus       *events.Bus
	heartbeat time.Duration
	buffer    int
	log       *slog.Logger
}

// registerRoutes sets up the API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/healthz", h.health)

	api := router.Group("/api/retrospective")
	api.GET("", h.listSessions)
	api.POST("", h.createSession)
	api.GET("/:id", h.getSession)
	api.PATCH("/:id", h.updateSession)
	api.DELETE("/:id", h.deleteSession)

	api.GET("/:id/items", h.listItems)
	api.POST("/:id/items", h.createItem)
	api.PATCH("/:id/items/:itemId", h.updateItem)
	api.DELETE("/:id/items/:itemId", h.deleteItem)

	api.GET("/:id/votes", h.listVotes)
	api.POST("/:id/votes", h.castVote)
	api.DELETE("/:id/votes", h.removeVote)
	api.DELETE("/:id/votes/:itemId", h.removeVoteByPath)

	api.GET("/:id/action-items", h.listActions)
	api.POST("/:id/action-items", h.createAction)
	api.POST("/:id/action-items/export", h.exportActions)
	api.PATCH("/:id/action-items/:actionId", h.updateAction)
	api.DELETE("/:id/action-items/:actionId", h.deleteAction)

	api.GET("/:id/report", h.getReport)
	api.POST("/:id/report", h.generateReport)
	api.POST("/:id/report/share", h.shareReport)

	api.GET("/:id/events", h.stream)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"listeners": h.bus.TotalListeners(),
		"sessions":  h.bus.SessionCount(),
	})
}

// bind decodes the JSON body into v, answering 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// Sessions.

type createSessionRequest struct {
	Name                   string  `json:"name"`
	SprintName             *string `json:"sprintName"`
	TeamID                 *string `json:"teamId"`
	VotesPerUser           *int    `json:"votesPerUser"`
	HideVotesUntilComplete bool    `json:"hideVotesUntilComplete"`
}

type updateSessionRequest struct {
	Name                   *string `json:"name"`
	SprintName             *string `json:"sprintName"`
	Status                 *string `json:"status"`
	VotesPerUser           *int    `json:"votesPerUser"`
	HideVotesUntilComplete *bool   `json:"hideVotesUntilComplete"`
}

type sessionResponse struct {
	*models.Session
	ShareableLink string `json:"shareableLink"`
}

func (h *handlers) listSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *handlers) createSession(c *gin.Context) {
	var req createSessionRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.CreateSession(c.Request.Context(), retro.NewSession{
		Name:                   req.Name,
		SprintName:             req.SprintName,
		TeamID:                 req.TeamID,
		VotesPerUser:           req.VotesPerUser,
		HideVotesUntilComplete: req.HideVotesUntilComplete,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Session: sess, ShareableLink: h.svc.ShareableLink(sess.ID)})
}

func (h *handlers) getSession(c *gin.Context) {
	sess, err := h.svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: sess, ShareableLink: h.svc.ShareableLink(sess.ID)})
}

func (h *handlers) updateSession(c *gin.Context) {
	var req updateSessionRequest
	if !bind(c, &req) {
		return
	}
	sess, err := h.svc.UpdateSession(c.Request.Context(), c.Param("id"), retro.SessionPatch{
		Name:                   req.Name,
		SprintName:             req.SprintName,
		Status:                 req.Status,
		VotesPerUser:           req.VotesPerUser,
		HideVotesUntilComplete: req.HideVotesUntilComplete,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *handlers) deleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Items.

type createItemRequest struct {
	Category    string  `json:"category"`
	Content     string  `json:"content"`
	AuthorID    *string `json:"authorId"`
	AuthorName  *string `json:"authorName"`
	IsAnonymous bool    `json:"isAnonymous"`
}

type updateItemRequest struct {
	Content         *string `json:"content"`
	DiscussionNotes *string `json:"discussionNotes"`
	IsDiscussed     *bool   `json:"isDiscussed"`
}

func (h *handlers) listItems(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) createItem(c *gin.Context) {
	var req createItemRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.CreateItem(c.Request.Context(), c.Param("id"), retro.NewItem{
		Category:    req.Category,
		Content:     req.Content,
		AuthorID:    req.AuthorID,
		AuthorName:  req.AuthorName,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (h *handlers) updateItem(c *gin.Context) {
	var req updateItemRequest
	if !bind(c, &req) {
		return
	}
	it, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), retro.ItemPatch{
		Content:         req.Content,
		DiscussionNotes: req.DiscussionNotes,
		IsDiscussed:     req.IsDiscussed,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *handlers) deleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Votes.

// voteRequest accepts the participant under the names older clients used.
type voteRequest struct {
	ItemID        string `json:"itemId"`
	ParticipantID string `json:"participantId"`
	OderID        string `json:"oderId"`
	UserID        string `json:"userId"`
}

func (r voteRequest) participant() string {
	for _, id := range []string{r.ParticipantID, r.OderID, r.UserID} {
		if strings.TrimSpace(id) != "" {
			return id
		}
	}
	return ""
}

func (h *handlers) listVotes(c *gin.Context) {
	pv, err := h.svc.ParticipantVotes(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv)
}

func (h *handlers) castVote(c *gin.Context) {
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.CastVote(c.Request.Context(), c.Param("id"), req.ItemID, req.participant())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *handlers) removeVote(c *gin.Context) {
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	h.finishRemoveVote(c, req.ItemID, req.participant())
}

func (h *handlers) removeVoteByPath(c *gin.Context) {
	participant := c.Query("userId")
	if participant == "" {
		participant = c.Query("participantId")
	}
	h.finishRemoveVote(c, c.Param("itemId"), participant)
}

func (h *handlers) finishRemoveVote(c *gin.Context, itemID, participantID string) {
	if err := h.svc.RemoveVote(c.Request.Context(), c.Param("id"), itemID, participantID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Action items.

type createActionRequest struct {
	Description  string  `json:"description"`
	SourceItemID *string `json:"sourceItemId"`
	AssigneeID   *string `json:"assigneeId"`
	AssigneeName *string `json:"assigneeName"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	DueDate      *string `json:"dueDate"`
}

type updateActionRequest struct {
	Description  *string `json:"description"`
	AssigneeID   *string `json:"assigneeId"`
	AssigneeName *string `json:"assigneeName"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	DueDate      *string `json:"dueDate"`
}

func (h *handlers) listActions(c *gin.Context) {
	actions, err := h.svc.ListActionItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, actions)
}

func (h *handlers) createAction(c *gin.Context) {
	var req createActionRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.CreateActionItem(c.Request.Context(), c.Param("id"), retro.NewAction{
		Description:  req.Description,
		SourceItemID: req.SourceItemID,
		AssigneeID:   req.AssigneeID,
		AssigneeName: req.AssigneeName,
		Priority:     req.Priority,
		Status:       req.Status,
		DueDate:      req.DueDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) updateAction(c *gin.Context) {
	var req updateActionRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.UpdateActionItem(c.Request.Context(), c.Param("id"), c.Param("actionId"), retro.ActionPatch{
		Description:  req.Description,
		AssigneeID:   req.AssigneeID,
		AssigneeName: req.AssigneeName,
		Priority:     req.Priority,
		Status:       req.Status,
		DueDate:      req.DueDate,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *handlers) deleteAction(c *gin.Context) {
	if err := h.svc.DeleteActionItem(c.Request.Context(), c.Param("id"), c.Param("actionId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) exportActions(c *gin.Context) {
	results, err := h.svc.ExportActionItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Reports.

type generateReportRequest struct {
	GeneratedBy *string       `json:"generatedBy"`
	Config      report.Config `json:"config"`
}

func (h *handlers) getReport(c *gin.Context) {
	r, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("format") == "html" {
		html, err := report.RenderHTML(r.Content)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) generateReport(c *gin.Context) {
	var req generateReportRequest
	// An empty body means default settings.
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	r, err := h.svc.GenerateReport(c.Request.Context(), c.Param("id"), req.Config, req.GeneratedBy)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) shareReport(c *gin.Context) {
	results, err := h.svc.ShareReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
