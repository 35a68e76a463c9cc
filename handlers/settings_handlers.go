package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartid-server-go/models"
)

// ListNotifications handles GET /api/notifications/, filtered to what the
// caller's role may see.
func (h *APIHandler) ListNotifications(c *gin.Context) {
	all, err := h.store.ListNotifications(c.Request.Context())
	if err != nil {
		h.fail(c, "notifications", err)
		return
	}
	role := principal(c).Role
	visible := make([]models.Notification, 0, len(all))
	unread := 0
	for _, n := range all {
		if !n.VisibleTo(role) {
			continue
		}
		if !n.Read {
			unread++
		}
		visible = append(visible, n)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(visible), "unread": unread, "results": visible})
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read/
func (h *APIHandler) MarkNotificationRead(c *gin.Context) {
	if err := h.store.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// ListAttendanceMethods handles GET /api/settings/attendance-methods/
func (h *APIHandler) ListAttendanceMethods(c *gin.Context) {
	methods, err := h.store.ListAttendanceMethods(c.Request.Context())
	if err != nil {
		h.fail(c, "attendance methods", err)
		return
	}
	respondList(c, methods)
}

type MethodRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetAttendanceMethod handles PATCH /api/settings/attendance-methods/:method/
func (h *APIHandler) SetAttendanceMethod(c *gin.Context) {
	var req MethodRequest
	if !h.bind(c, &req) {
		return
	}
	method, err := h.store.SetAttendanceMethod(c.Request.Context(), c.Param("method"), *req.Enabled)
	if err != nil {
		h.fail(c, "attendance method", err)
		return
	}
	h.log.Info("attendance method "+method.Key+" updated", map[string]interface{}{"enabled": method.Enabled}, personOf(principal(c)))
	c.JSON(http.StatusOK, method)
}
