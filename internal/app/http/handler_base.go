package http

import (
	"net/http"

	"github.com/fardannozami/nanomid-pair-gateway/internal/app/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	pairUC     *usecase.PairDeviceUsecase
	attemptsUC *usecase.ListAttemptsUsecase
	log        *zap.Logger
}

// NewHandler builds the HTTP handlers. attemptsUC is nil when the audit
// store is disabled.
func NewHandler(pairUC *usecase.PairDeviceUsecase, attemptsUC *usecase.ListAttemptsUsecase, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		pairUC:     pairUC,
		attemptsUC: attemptsUC,
		log:        log,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{OK: true})
}
