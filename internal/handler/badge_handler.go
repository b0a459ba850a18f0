package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rollcall-dev/rollcall-api/internal/service"
	"github.com/rollcall-dev/rollcall-api/pkg/response"
)

// BadgeHandler serves scannable badge images for students.
type BadgeHandler struct {
	service *service.BadgeService
}

// NewBadgeHandler constructs a badge handler.
func NewBadgeHandler(svc *service.BadgeService) *BadgeHandler {
	return &BadgeHandler{service: svc}
}

// QRCode godoc
// @Summary Student badge QR code PNG
// @Tags Badges
// @Produce image/png
// @Param id path string true "Student ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/{id}/badge/qr.png [get]
func (h *BadgeHandler) QRCode(c *gin.Context) {
	body, err := h.service.QRCode(c.Request.Context(), c.Param("id"), queryInt(c, "size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", body)
}

// Barcode godoc
// @Summary Student badge Code 128 barcode PNG
// @Tags Badges
// @Produce image/png
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/{id}/badge/barcode.png [get]
func (h *BadgeHandler) Barcode(c *gin.Context) {
	body, err := h.service.Barcode(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", body)
}
