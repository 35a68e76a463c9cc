package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"smartid-server-go/db"
)

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	// courseId is optional; without it the roster only creates accounts
	courseID := c.PostForm("courseId")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	h.log.Info("received roster upload "+header.Filename, map[string]interface{}{"course": courseID}, personOf(principal(c)))

	res, err := db.ImportStudentsFromExcel(c.Request.Context(), h.store, file, courseID, h.log)
	if errors.Is(err, db.ErrNotFound) {
		h.fail(c, "course", err)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to import students: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": res.Imported(),
		"created":       res.Created,
		"enrolled":      res.Enrolled,
		"skipped":       res.Skipped,
		"courseId":      courseID,
	})
}
