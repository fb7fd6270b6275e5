package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) Attempts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a number"})
			return
		}
		limit = n
	}

	items, err := h.attemptsUC.Execute(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("list attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
		return
	}

	attempts := make([]AttemptResponse, 0, len(items))
	for _, a := range items {
		attempts = append(attempts, AttemptResponse{
			ID:         a.ID,
			Label:      a.Label,
			OK:         a.OK,
			Error:      a.Error,
			StartedAt:  a.StartedAt,
			DurationMS: a.Duration.Milliseconds(),
		})
	}

	c.JSON(http.StatusOK, AttemptsResponse{
		Count:    len(attempts),
		Attempts: attempts,
	})
}
