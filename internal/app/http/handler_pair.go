package http

import (
	"errors"
	"net/http"

	"github.com/fardannozami/nanomid-pair-gateway/internal/app/usecase"
	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgRequired    = "otp and label are required"
	msgInvalidJSON = "invalid json"
	msgPairFailed  = "pairing failed"
	msgBusy        = "pairing service busy, try again later"
	msgUnavailable = "target site unavailable, try again later"
	msgInternal    = "internal server error"
	msgRateLimited = "too many attempts, try again in a minute"
)

// errorStatus maps a pairing error to its HTTP status and client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pairing.ErrValidation):
		return http.StatusBadRequest, msgRequired
	case errors.Is(err, pairing.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, pairing.ErrBusy):
		return http.StatusServiceUnavailable, msgBusy
	case errors.Is(err, pairing.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (h *Handler) Pair(c *gin.Context) {
	var req PairRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
			return
		}
	}

	out, err := h.pairUC.Execute(c.Request.Context(), usecase.PairDeviceInput{
		OTP:   string(req.OTP),
		Label: string(req.Label),
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("pair device", zap.String("request_id", RequestIDFromContext(c.Request.Context())), zap.Error(err))
		}
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	if out.AttemptID != "" {
		c.Header("X-Attempt-ID", out.AttemptID)
	}

	if !out.Result.OK {
		msg := out.Result.Error
		if msg == "" {
			msg = msgPairFailed
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, PairResponse{OK: true})
}
