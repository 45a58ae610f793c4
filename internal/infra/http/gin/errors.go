package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

type errorBody struct {
	Error            string   `json:"error"`
	Kind             string   `json:"kind,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Retry            bool     `json:"retry,omitempty"`
	UnavailableDates []string `json:"unavailable_dates,omitempty"`
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindCoupon:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the classified error. Storage failures tell the client
// to try again instead of answering with a guess.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{
		Error:  err.Error(),
		Kind:   string(apperr.KindOf(err)),
		Reason: apperr.ReasonOf(err),
		Retry:  status == http.StatusServiceUnavailable,
	}
	var unavailable *calendar.UnavailableError
	if errors.As(err, &unavailable) {
		for _, d := range unavailable.Dates {
			body.UnavailableDates = append(body.UnavailableDates, daterange.FormatDate(d))
		}
	}
	if logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath()}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: string(apperr.KindValidation)})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorBody{Error: what + " unavailable", Kind: string(apperr.KindStorage), Retry: true})
}
