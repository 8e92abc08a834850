package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"penx/pkg/models"
)

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ReaderLoginResponse carries the logged in reader.
type ReaderLoginResponse struct {
	Message string        `json:"message"`
	User    models.Reader `json:"user"`
}

// ProfilePictureResponse carries the stored picture path.
type ProfilePictureResponse struct {
	Message        string `json:"message"`
	FilePath       string `json:"filePath,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Register a reader
// @Summary      Reader signup
// @Tags         Readers
// @Accept       json
// @Produce      json
// @Param        request body models.ReaderSignupRequest true "Reader details"
// @Success      201 {object} api.MessageResponse
// @Failure      400 {object} map[string]string
// @Failure      500 {object} map[string]string
// @Router       /signup [post]
func (h *Handler) readerSignup(c *gin.Context) {
	var req models.ReaderSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.SignupReader(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "Signup successful!"})
}

// Reader login
// @Summary      Reader login
// @Tags         Readers
// @Accept       json
// @Produce      json
// @Param        request body models.LoginRequest true "Credentials"
// @Success      200 {object} api.ReaderLoginResponse
// @Failure      401 {object} map[string]string
// @Router       /api/reader-login [post]
func (h *Handler) readerLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	reader, err := h.svc.LoginReader(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReaderLoginResponse{Message: "Login successful", User: reader})
}

// Reader statistics
// @Summary      Reader profile and activity
// @Tags         Readers
// @Produce      json
// @Param        email query string true "Reader email"
// @Success      200 {object} models.ReaderStats
// @Failure      404 {object} map[string]string
// @Router       /api/reader-stats [get]
func (h *Handler) readerStats(c *gin.Context) {
	stats, err := h.svc.ReaderStats(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Account data
// @Summary      Stored account row without the password
// @Tags         Readers
// @Produce      json
// @Param        email query string true "Reader email"
// @Success      200 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /api/account-data [get]
func (h *Handler) accountData(c *gin.Context) {
	row, err := h.svc.AccountData(c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// @Summary      Set a reader's picture to an existing path
// @Tags         Readers
// @Accept       json
// @Produce      json
// @Param        request body models.ProfilePictureRequest true "Email and picture path"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} map[string]string
// @Router       /api/update-profile-picture [post]
func (h *Handler) updateProfilePicture(c *gin.Context) {
	var req models.ProfilePictureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.UpdateReaderPicture(c.Request.Context(), req.Email, req.ProfilePicture); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Profile picture updated successfully."})
}

// @Summary      Upload a reader profile picture
// @Tags         Readers
// @Accept       multipart/form-data
// @Produce      json
// @Param        email formData string true "Reader email"
// @Param        profilePicture formData file true "Picture"
// @Success      200 {object} api.ProfilePictureResponse
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /api/upload-profile-picture [post]
// @Router       /api/reader/update-profile [post]
func (h *Handler) uploadProfilePicture(c *gin.Context) {
	email := c.PostForm("email")
	up, done, err := formFile(c, "profilePicture")
	if err != nil {
		badRequest(c, err)
		return
	}
	defer done()
	if email == "" || up == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and profile picture file are required."})
		return
	}

	path, err := h.svc.UploadReaderPicture(c.Request.Context(), email, up)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProfilePictureResponse{
		Message:        "Profile picture updated successfully.",
		FilePath:       path,
		ProfilePicture: path,
	})
}

// FavoritesResponse lists favorite book ids.
type FavoritesResponse struct {
	Success   bool     `json:"success,omitempty"`
	Favorites []string `json:"favorites"`
}

// @Summary      List a reader's favorites
// @Tags         Engagement
// @Produce      json
// @Param        email query string true "Reader email"
// @Success      200 {object} api.FavoritesResponse
// @Failure      400 {object} map[string]string
// @Router       /api/favorites [get]
func (h *Handler) favorites(c *gin.Context) {
	list, err := h.svc.Favorites(c.Query("email"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoritesResponse{Favorites: list})
}

// @Summary      Replace a reader's favorites
// @Tags         Engagement
// @Accept       json
// @Produce      json
// @Param        request body models.FavoritesRequest true "Favorites"
// @Success      200 {object} api.FavoritesResponse
// @Router       /api/favorites [post]
func (h *Handler) replaceFavorites(c *gin.Context) {
	var req models.FavoritesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.ReplaceFavorites(req.Email, req.Favorites)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoritesResponse{Success: true, Favorites: list})
}

// @Summary      Add or remove one favorite
// @Tags         Engagement
// @Accept       json
// @Produce      json
// @Param        request body models.ToggleFavoriteRequest true "Favorite change"
// @Success      200 {object} api.FavoritesResponse
// @Router       /api/toggle-favorite [post]
func (h *Handler) toggleFavorite(c *gin.Context) {
	var req models.ToggleFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.ToggleFavorite(req.Email, req.BookID, req.IsFavorited)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoritesResponse{Success: true, Favorites: list})
}

// @Summary      Record that a reader opened a book
// @Tags         Engagement
// @Accept       json
// @Produce      json
// @Param        request body models.TrackReadRequest true "Read"
// @Success      200 {object} api.MessageResponse
// @Router       /api/track-read [post]
func (h *Handler) trackRead(c *gin.Context) {
	var req models.TrackReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.TrackRead(req.Email, req.BookID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Read tracked successfully."})
}

// @Summary      Engagement statistics of a book
// @Tags         Engagement
// @Produce      json
// @Param        email query string true "Reader email"
// @Param        bookId query string true "Book id"
// @Success      200 {object} models.BookStats
// @Router       /api/book-stats [get]
func (h *Handler) bookStats(c *gin.Context) {
	stats, err := h.svc.BookStats(c.Query("email"), c.Query("bookId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
