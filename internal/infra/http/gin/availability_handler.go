package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	availabilityapp "rentalspot/internal/app/handlers/availability"
	couponapp "rentalspot/internal/app/handlers/coupons"
	"rentalspot/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type editNightsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	checkIn, checkOut, err := parseDates("check_in", c.Query("check_in"), "check_out", c.Query("check_out"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		PropertyID: strings.TrimSpace(c.Param("id")),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Suggest:    parseBool(c.Query("suggest")),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Pricing(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	checkIn, checkOut, err := parseDates("check_in", c.Query("check_in"), "check_out", c.Query("check_out"))
	if err != nil {
		badRequest(c, err)
		return
	}
	guests, err := parseIntWithDefault("guests", c.Query("guests"), 1)
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.GetPricingQuery{
		PropertyID:        strings.TrimSpace(c.Param("id")),
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		Guests:            guests,
		CouponCode:        strings.TrimSpace(c.Query("coupon")),
		Currency:          strings.ToUpper(strings.TrimSpace(c.Query("currency"))),
		SkipInvalidCoupon: parseBool(c.Query("skip_invalid_coupon")),
	}
	result, err := queries.Ask[availabilityapp.GetPricingQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	from, to, err := parseDates("from", c.Query("from"), "to", c.Query("to"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{PropertyID: strings.TrimSpace(c.Param("id")), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	h.editNights(c, false)
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	h.editNights(c, true)
}

func (h AvailabilityHandler) editNights(c *gin.Context, available bool) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req editNightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	from, to, err := parseDates("from", req.From, "to", req.To)
	if err != nil {
		badRequest(c, err)
		return
	}
	propertyID := strings.TrimSpace(c.Param("id"))

	var result *availabilityapp.EditNightsResult
	if available {
		cmd := availabilityapp.UnblockNightsCommand{PropertyID: propertyID, From: from, To: to}
		result, err = commands.Dispatch[availabilityapp.UnblockNightsCommand, *availabilityapp.EditNightsResult](c.Request.Context(), h.Commands, cmd)
	} else {
		cmd := availabilityapp.BlockNightsCommand{PropertyID: propertyID, From: from, To: to}
		result, err = commands.Dispatch[availabilityapp.BlockNightsCommand, *availabilityapp.EditNightsResult](c.Request.Context(), h.Commands, cmd)
	}
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) ValidateCoupon(c *gin.Context) {
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	propertyID := strings.TrimSpace(c.Query("property_id"))
	if propertyID == "" {
		badRequest(c, errors.New("property_id is required"))
		return
	}
	checkIn, checkOut, err := parseDates("check_in", c.Query("check_in"), "check_out", c.Query("check_out"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := couponapp.ValidateCouponQuery{
		Code:       strings.TrimSpace(c.Param("code")),
		PropertyID: propertyID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	result, err := queries.Ask[couponapp.ValidateCouponQuery, dto.CouponCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
