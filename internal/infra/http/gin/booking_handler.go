package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	bookingapp "rentalspot/internal/app/handlers/booking"
	"rentalspot/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type stayRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	CouponCode string `json:"coupon_code"`
}

type createHoldRequest struct {
	stayRequest
	HoldFeeAmount int64 `json:"hold_fee_amount"`
}

type confirmBookingRequest struct {
	PaymentReference string `json:"payment_reference"`
	AmountPaid       int64  `json:"amount_paid"`
	Currency         string `json:"currency"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type paymentCallbackRequest struct {
	EventID    string `json:"event_id"`
	BookingID  string `json:"booking_id"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Reference  string `json:"reference"`
}

func (r stayRequest) toCommand() (bookingapp.StayRequest, error) {
	checkIn, checkOut, err := parseDates("check_in", r.CheckIn, "check_out", r.CheckOut)
	if err != nil {
		return bookingapp.StayRequest{}, err
	}
	return bookingapp.StayRequest{
		PropertyID: strings.TrimSpace(r.PropertyID),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     r.Guests,
		GuestName:  strings.TrimSpace(r.GuestName),
		GuestEmail: strings.TrimSpace(r.GuestEmail),
		GuestPhone: strings.TrimSpace(r.GuestPhone),
		CouponCode: strings.TrimSpace(r.CouponCode),
	}, nil
}

func (h BookingHandler) CreateHold(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stay, err := req.toCommand()
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateHoldCommand{
		CommandID:       generateCommandID(),
		StayRequest:     stay,
		HoldFeeAmount:   req.HoldFeeAmount,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CreateHoldCommand, *bookingapp.CreateHoldResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Request(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stay, err := req.toCommand()
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       generateCommandID(),
		StayRequest:     stay,
		IdempotencyKeyV: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id"))}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req confirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{
		BookingID:        strings.TrimSpace(c.Param("id")),
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		AmountPaid:       req.AmountPaid,
		Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
		IdempotencyKeyV:  c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PaymentCallback accepts the processor's webhook. The event id comes from
// the body or the Idempotency-Key header and makes replays no-ops.
func (h BookingHandler) PaymentCallback(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		eventID = c.GetHeader(idempotencyHeader)
	}
	cmd := bookingapp.PaymentCallbackCommand{
		EventID:    eventID,
		BookingID:  strings.TrimSpace(req.BookingID),
		AmountPaid: req.AmountPaid,
		Currency:   strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:     strings.ToLower(strings.TrimSpace(req.Status)),
		Reference:  strings.TrimSpace(req.Reference),
	}
	result, err := commands.Dispatch[bookingapp.PaymentCallbackCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
