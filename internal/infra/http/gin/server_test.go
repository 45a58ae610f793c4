package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	availabilityapp "rentalspot/internal/app/handlers/availability"
	bookingapp "rentalspot/internal/app/handlers/booking"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/infra/config"
	"rentalspot/internal/infra/obs"
)

type stubQueries func(ctx context.Context, q queries.Query) (any, error)

func (f stubQueries) Ask(ctx context.Context, q queries.Query) (any, error) { return f(ctx, q) }

type stubCommands func(ctx context.Context, cmd commands.Command) (any, error)

func (f stubCommands) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func newTestRouter(q queries.Bus, c commands.Bus, limit gin.HandlerFunc) *gin.Engine {
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Availability: AvailabilityHandler{Commands: c, Queries: q},
		Booking:      BookingHandler{Commands: c, Queries: q},
		PublicLimit:  limit,
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("op", errors.New("bad")), http.StatusBadRequest},
		{apperr.Coupon("op", "expired", errors.New("no")), http.StatusUnprocessableEntity},
		{apperr.Conflict("op", errors.New("taken")), http.StatusConflict},
		{apperr.NotFound("op", errors.New("missing")), http.StatusNotFound},
		{apperr.Storage("op", errors.New("down"), true), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAvailabilityPassesParsedQuery(t *testing.T) {
	var got availabilityapp.CheckAvailabilityQuery
	q := stubQueries(func(ctx context.Context, query queries.Query) (any, error) {
		got = query.(availabilityapp.CheckAvailabilityQuery)
		return dto.Availability{PropertyID: got.PropertyID, IsAvailable: true}, nil
	})
	router := newTestRouter(q, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2025-08-01&check_out=2025-08-04&suggest=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got.PropertyID != "p1" || !got.Suggest || !got.CheckOut.Equal(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("query = %+v", got)
	}
}

func TestAvailabilityRejectsMalformedDates(t *testing.T) {
	router := newTestRouter(stubQueries(func(context.Context, queries.Query) (any, error) {
		t.Fatal("query should not run")
		return nil, nil
	}), nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/availability?check_in=tomorrow&check_out=2025-08-04", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAvailabilityAcceptsTimestampsAsDays(t *testing.T) {
	var got availabilityapp.CheckAvailabilityQuery
	q := stubQueries(func(ctx context.Context, query queries.Query) (any, error) {
		got = query.(availabilityapp.CheckAvailabilityQuery)
		return dto.Availability{PropertyID: got.PropertyID, IsAvailable: true}, nil
	})
	router := newTestRouter(q, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2025-08-01T22:30:00%2B02:00&check_out=%202025-08-04%20", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !got.CheckIn.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) || !got.CheckOut.Equal(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("query = %+v", got)
	}
}

func TestHoldConflictListsUnavailableDates(t *testing.T) {
	c := stubCommands(func(ctx context.Context, cmd commands.Command) (any, error) {
		if _, ok := cmd.(bookingapp.CreateHoldCommand); !ok {
			t.Fatalf("command = %T", cmd)
		}
		return nil, apperr.Conflict("holds.Place", &calendar.UnavailableError{
			PropertyID: "p1",
			Dates:      []time.Time{time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)},
		})
	})
	router := newTestRouter(nil, c, nil)
	body := `{"property_id":"p1","check_in":"2025-07-20","check_out":"2025-07-23","guests":2,"guest_name":"Ana","guest_email":"ana@example.com"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/holds", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeError(t, rec)
	if len(got.UnavailableDates) != 1 || got.UnavailableDates[0] != "2025-07-21" {
		t.Fatalf("body = %+v", got)
	}
}

func TestStorageFailureAsksClientToRetry(t *testing.T) {
	q := stubQueries(func(context.Context, queries.Query) (any, error) {
		return nil, apperr.Storage("memory.ReadShards", errors.New("timeout"), true)
	})
	router := newTestRouter(q, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/pricing?check_in=2025-08-01&check_out=2025-08-04", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec); !got.Retry || got.Kind != string(apperr.KindStorage) {
		t.Fatalf("body = %+v", got)
	}
}

func TestPublicRateLimit(t *testing.T) {
	q := stubQueries(func(context.Context, queries.Query) (any, error) {
		return dto.Availability{IsAvailable: true}, nil
	})
	limiter := NewRateLimiter(2, nil)
	router := newTestRouter(q, nil, limiter.Middleware())
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2025-08-01&check_out=2025-08-04", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2025-08-01&check_out=2025-08-04", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client limited: %d", rec.Code)
	}
}

func TestPaymentCallbackUsesIdempotencyHeader(t *testing.T) {
	var got bookingapp.PaymentCallbackCommand
	c := stubCommands(func(ctx context.Context, cmd commands.Command) (any, error) {
		got = cmd.(bookingapp.PaymentCallbackCommand)
		return &dto.Booking{ID: got.BookingID, Status: "confirmed"}, nil
	})
	router := newTestRouter(nil, c, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(`{"booking_id":"b1","status":"succeeded","reference":"pay-1"}`))
	req.Header.Set("Idempotency-Key", "evt-9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got.EventID != "evt-9" || got.BookingID != "b1" {
		t.Fatalf("command = %+v", got)
	}
}
