package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"penx/pkg/models"
)

// @Summary      Author signup
// @Tags         Authors
// @Accept       json
// @Produce      json
// @Param        request body models.AuthorSignupRequest true "Author details"
// @Success      200 {object} models.AuthResponse
// @Failure      400 {object} map[string]string
// @Router       /api/author/signup [post]
func (h *Handler) authorSignup(c *gin.Context) {
	var req models.AuthorSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.svc.SignupAuthor(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Author login
// @Tags         Authors
// @Accept       json
// @Produce      json
// @Param        request body models.LoginRequest true "Credentials"
// @Success      200 {object} models.AuthResponse
// @Failure      401 {object} map[string]string
// @Router       /api/author/login [post]
func (h *Handler) authorLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.svc.LoginAuthor(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Author profile
// @Tags         Authors
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Author id"
// @Success      200 {object} models.AuthorProfile
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /api/author/{id} [get]
func (h *Handler) authorProfile(c *gin.Context) {
	me, ok := requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	profile, err := h.svc.AuthorProfile(c.Request.Context(), me, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type bioUpdate struct {
	Bio string `json:"bio"`
}

// @Summary      Update author bio and picture
// @Description  Accepts multipart (bio, profilePicture) or JSON {bio}.
// @Tags         Authors
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Author id"
// @Param        bio formData string false "Bio"
// @Param        profilePicture formData file false "Picture"
// @Success      200 {object} models.Author
// @Failure      403 {object} map[string]string
// @Router       /api/author/{id} [patch]
func (h *Handler) updateAuthorProfile(c *gin.Context) {
	me, ok := requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var bio string
	if c.ContentType() == gin.MIMEJSON {
		var req bioUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		bio = req.Bio
	} else {
		bio = c.PostForm("bio")
	}
	up, done, err := formFile(c, "profilePicture")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer done()

	author, err := h.svc.UpdateAuthorProfile(c.Request.Context(), me, id, bio, up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, author)
}

// @Summary      Books of an author
// @Tags         Authors
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Author id"
// @Success      200 {array} models.AuthorBook
// @Failure      403 {object} map[string]string
// @Router       /api/author/{id}/books [get]
func (h *Handler) authorBooks(c *gin.Context) {
	me, ok := requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	books, err := h.svc.AuthorBooks(c.Request.Context(), me, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// @Summary      Publications and score of an author
// @Tags         Authors
// @Produce      json
// @Param        authorName query string true "Author display name"
// @Success      200 {object} models.AuthorStats
// @Failure      400 {object} map[string]string
// @Router       /api/author-stats [get]
func (h *Handler) authorStats(c *gin.Context) {
	stats, err := h.svc.AuthorStats(c.Request.Context(), c.Query("authorName"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
