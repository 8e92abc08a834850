package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"penx/internal/logging"
	"penx/pkg/models"
)

// CreatedResponse reports the id of a stored comment or review.
type CreatedResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// @Summary      Comments of a book
// @Description  Live comments with their replies, oldest first.
// @Tags         Comments
// @Produce      json
// @Param        bookId path string true "Book folder"
// @Success      200 {array} models.CommentNode
// @Router       /api/comments/{bookId} [get]
func (h *Handler) comments(c *gin.Context) {
	tree, err := h.svc.CommentTree(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// @Summary      Add a comment or reply
// @Tags         Comments
// @Accept       json
// @Produce      json
// @Param        request body models.CommentRequest true "Comment"
// @Success      200 {object} api.CreatedResponse
// @Failure      400 {object} map[string]string
// @Router       /api/comments [post]
func (h *Handler) addComment(c *gin.Context) {
	var req models.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.svc.AddComment(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	msg := "Comment added successfully"
	if saved.ParentID != nil {
		msg = "Reply added successfully"
	}
	c.JSON(http.StatusOK, CreatedResponse{ID: saved.ID, Message: msg})
}

// @Summary      Delete own comment
// @Tags         Comments
// @Accept       json
// @Produce      json
// @Param        commentId path int true "Comment id"
// @Param        request body models.DeleteCommentRequest true "Caller"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} map[string]string
// @Router       /api/comments/{commentId} [delete]
func (h *Handler) deleteComment(c *gin.Context) {
	id, ok := pathID(c, "commentId")
	if !ok {
		return
	}
	var req models.DeleteCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), id, req.UserEmail); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

// @Summary      Live comment feed of a book
// @Description  Websocket; receives comment_added and comment_deleted events.
// @Tags         Comments
// @Param        bookId path string true "Book folder"
// @Router       /ws/comments/{bookId} [get]
func (h *Handler) commentFeed(c *gin.Context) {
	room := c.Param("bookId")
	if err := h.hub.Serve(c.Writer, c.Request, room); err != nil {
		logging.FromContext(c, h.log).WithError(err).WithField("book", room).Warn("websocket subscription failed")
	}
}

// @Summary      Reviews of a book
// @Tags         Reviews
// @Produce      json
// @Param        bookId path string true "Book folder"
// @Success      200 {array} models.Review
// @Router       /api/reviews/{bookId} [get]
func (h *Handler) reviews(c *gin.Context) {
	reviews, err := h.svc.Reviews(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// @Summary      Add or replace a review
// @Description  One review per reader and book; resubmitting updates it in place.
// @Tags         Reviews
// @Accept       json
// @Produce      json
// @Param        request body models.ReviewRequest true "Review"
// @Success      200 {object} api.CreatedResponse
// @Failure      400 {object} map[string]string
// @Router       /api/reviews [post]
func (h *Handler) submitReview(c *gin.Context) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, created, err := h.svc.SubmitReview(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	msg := "Review updated successfully"
	if created {
		msg = "Review added successfully"
	}
	c.JSON(http.StatusOK, CreatedResponse{ID: id, Message: msg})
}

// @Summary      Average rating of a book
// @Tags         Reviews
// @Produce      json
// @Param        bookId path string true "Book folder"
// @Success      200 {object} models.RatingSummary
// @Router       /api/reviews/{bookId}/average [get]
func (h *Handler) averageRating(c *gin.Context) {
	summary, err := h.svc.AverageRating(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
