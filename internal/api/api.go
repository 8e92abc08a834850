// Package api exposes the PenX service over HTTP.
package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"penx/internal/apperr"
	"penx/internal/auth"
	"penx/internal/library"
	"penx/internal/logging"
	"penx/internal/websocket"
)

// Handler serves the HTTP routes.
type Handler struct {
	svc    *library.Service
	tokens *auth.Manager
	hub    *websocket.Hub
	log    *logrus.Logger
}

// New creates a Handler. hub may be nil, which disables the live comment feed.
func New(svc *library.Service, tokens *auth.Manager, hub *websocket.Hub, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{svc: svc, tokens: tokens, hub: hub, log: log}
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/health", h.health)

	// readers
	r.POST("/signup", h.readerSignup)
	r.POST("/api/reader-login", h.readerLogin)
	r.GET("/api/reader-stats", h.readerStats)
	r.GET("/api/account-data", h.accountData)
	r.POST("/api/update-profile-picture", h.updateProfilePicture)
	r.POST("/api/upload-profile-picture", h.uploadProfilePicture)
	r.POST("/api/reader/update-profile", h.uploadProfilePicture)

	// engagement
	r.GET("/api/favorites", h.favorites)
	r.POST("/api/favorites", h.replaceFavorites)
	r.POST("/api/toggle-favorite", h.toggleFavorite)
	r.POST("/api/track-read", h.trackRead)
	r.GET("/api/book-stats", h.bookStats)

	// authors
	r.POST("/api/author/signup", h.authorSignup)
	r.POST("/api/author/login", h.authorLogin)
	r.GET("/api/author-stats", h.authorStats)
	author := r.Group("/api/author")
	author.Use(h.tokens.RequireAuthor())
	{
		author.GET("/:id", h.authorProfile)
		author.PATCH("/:id", h.updateAuthorProfile)
		author.GET("/:id/books", h.authorBooks)
	}

	// books
	r.GET("/Books", h.listFolders)
	r.GET("/Books/:bookId", h.folderFiles)
	r.GET("/Books/:bookId/:file", h.bookFile)
	r.GET("/api/books", h.books)
	r.GET("/api/books/search", h.searchBooks)
	r.GET("/api/books/:bookId", h.book)
	r.POST("/api/add-book", h.tokens.RequireAuthor(), h.addBook)
	r.POST("/api/update-book", h.tokens.RequireAuthor(), h.updateBook)

	// comments and reviews
	r.GET("/api/comments/:bookId", h.comments)
	r.POST("/api/comments", h.addComment)
	r.DELETE("/api/comments/:commentId", h.deleteComment)
	r.GET("/api/reviews/:bookId", h.reviews)
	r.POST("/api/reviews", h.submitReview)
	r.GET("/api/reviews/:bookId/average", h.averageRating)
	if h.hub != nil {
		r.GET("/ws/comments/:bookId", h.commentFeed)
	}

	// institutions
	r.GET("/api/institution-data", h.institutionData)
	r.POST("/api/institution", h.tokens.RequireAuthor(), h.createInstitution)
	r.GET("/api/institution/:id", h.institution)

	// admin
	r.POST("/api/admin/login", h.adminLogin)
	r.GET("/api/admin/analytics", h.tokens.RequireAdmin(h.svc.AdminEnabled()), h.analytics)
}

// respondError writes err as {"error": message} with its status code.
// Internal failures are logged with their cause.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	if code >= http.StatusInternalServerError {
		logging.FromContext(c, h.log).WithError(err).Error("request failed")
	}
	c.JSON(code, gin.H{"error": apperr.MessageOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func requester(c *gin.Context) (int64, bool) {
	id, ok := auth.AuthorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return id, ok
}

// formFile opens an optional multipart file. The returned upload is nil when
// the field is absent.
func formFile(c *gin.Context, field string) (*library.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*library.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &library.Upload{Name: fh.Filename, Size: fh.Size, Content: f}, func() { f.Close() }, nil
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health check
// @Summary      Health check
// @Tags         System
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      500 {object} map[string]string
// @Router       /api/health [get]
func (h *Handler) health(c *gin.Context) {
	if err := h.svc.Health(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}
