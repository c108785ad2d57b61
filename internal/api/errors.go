package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/varsitymarket/backend/internal/database"
	"github.com/varsitymarket/backend/internal/logger"
	"github.com/varsitymarket/backend/internal/models"
)

var errLog = logger.New("api")

// respondError translates the typed domain failures into HTTP statuses.
// Anything unrecognized is a plain 500 with a generic body so internals
// never leak to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrConversationNotFound),
		errors.Is(err, database.ErrMessageNotFound),
		errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, database.ErrNotAParticipant),
		errors.Is(err, database.ErrForbidden),
		errors.Is(err, database.ErrConversationClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, database.ErrMessageDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, database.ErrInvalidParticipants),
		errors.Is(err, database.ErrEmptyContent),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrEmptyLocation),
		errors.Is(err, models.ErrMissingTime):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		errLog.Error("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
