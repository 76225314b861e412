package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/services/review"
)

// respondError maps review and upstream errors onto status codes. Notices of a
// failed submission are included in the body.
func (h *ReviewHandler) respondError(c *gin.Context, err error, notices ...review.Notice) {
	var submitErr *review.SubmitError
	if errors.As(err, &submitErr) {
		status := http.StatusUnprocessableEntity
		if submitErr.Kind == review.KindTransport {
			status = http.StatusBadGateway
		}
		body := gin.H{"error": submitErr.Message, "kind": submitErr.Kind}
		if len(notices) > 0 {
			body["notices"] = notices
		}
		c.JSON(status, body)
		return
	}

	// Anything else came from the processing service.
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, review.ErrSessionNotFound),
		errors.Is(err, review.ErrItemNotFound),
		errors.Is(err, checkapi.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, review.ErrUnknownField),
		errors.Is(err, review.ErrAmountRange):
		status = http.StatusBadRequest
	case errors.Is(err, review.ErrForeignCheck):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, review.ErrSubmitInFlight),
		errors.Is(err, review.ErrSessionClosed),
		errors.Is(err, review.ErrNotConfirming):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
