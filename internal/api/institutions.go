package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"penx/pkg/models"
)

// @Summary      Institution rollup
// @Description  Publications and score of every author, grouped by display name.
// @Tags         Institutions
// @Produce      json
// @Success      200 {object} models.InstitutionRollup
// @Router       /api/institution-data [get]
func (h *Handler) institutionData(c *gin.Context) {
	rollup, err := h.svc.InstitutionRollup(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rollup)
}

// @Summary      Create an institution
// @Tags         Institutions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.InstitutionRequest true "Institution"
// @Success      201 {object} models.Institution
// @Failure      400 {object} map[string]string
// @Router       /api/institution [post]
func (h *Handler) createInstitution(c *gin.Context) {
	var req models.InstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := h.svc.CreateInstitution(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

// @Summary      Institution by id
// @Tags         Institutions
// @Produce      json
// @Param        id path int true "Institution id"
// @Success      200 {object} models.Institution
// @Failure      404 {object} map[string]string
// @Router       /api/institution/{id} [get]
func (h *Handler) institution(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, err := h.svc.Institution(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}

// @Summary      Admin login
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body models.AdminLoginRequest true "Credentials"
// @Success      200 {object} models.TokenResponse
// @Failure      401 {object} map[string]string
// @Router       /api/admin/login [post]
func (h *Handler) adminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, err := h.svc.AdminLogin(req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{Token: token})
}

// @Summary      Platform analytics
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.Analytics
// @Failure      401 {object} map[string]string
// @Router       /api/admin/analytics [get]
func (h *Handler) analytics(c *gin.Context) {
	a, err := h.svc.Analytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
