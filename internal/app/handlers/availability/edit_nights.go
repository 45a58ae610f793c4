package availability

import (
	"context"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/holds"
	"rentalspot/internal/app/middleware"
	"rentalspot/internal/domain/calendar"
)

const (
	blockNightsKey   = "availability.block"
	unblockNightsKey = "availability.unblock"
)

// BlockNightsCommand marks [From, To) unavailable for a host reason.
type BlockNightsCommand struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
}

func (c BlockNightsCommand) Key() string     { return blockNightsKey }
func (c BlockNightsCommand) Retryable() bool { return true }

func (c BlockNightsCommand) Validate() error {
	_, err := stay(blockNightsKey, c.From, c.To)
	return err
}

// UnblockNightsCommand reopens [From, To).
type UnblockNightsCommand struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
}

func (c UnblockNightsCommand) Key() string     { return unblockNightsKey }
func (c UnblockNightsCommand) Retryable() bool { return true }

func (c UnblockNightsCommand) Validate() error {
	_, err := stay(unblockNightsKey, c.From, c.To)
	return err
}

type EditNightsResult struct {
	PropertyID string `json:"property_id"`
	Nights     int    `json:"nights"`
	Available  bool   `json:"available"`
}

type BlockNightsHandler struct {
	Holds *holds.Manager
}

func (h *BlockNightsHandler) Handle(ctx context.Context, cmd BlockNightsCommand) (*EditNightsResult, error) {
	return editNights(ctx, h.Holds, blockNightsKey, cmd.PropertyID, cmd.From, cmd.To, false)
}

type UnblockNightsHandler struct {
	Holds *holds.Manager
}

func (h *UnblockNightsHandler) Handle(ctx context.Context, cmd UnblockNightsCommand) (*EditNightsResult, error) {
	return editNights(ctx, h.Holds, unblockNightsKey, cmd.PropertyID, cmd.From, cmd.To, true)
}

func editNights(ctx context.Context, m *holds.Manager, op, propertyID string, from, to time.Time, available bool) (*EditNightsResult, error) {
	dr, err := stay(op, from, to)
	if err != nil {
		return nil, err
	}
	if err := m.EditNights(ctx, calendar.PropertyID(propertyID), dr, available); err != nil {
		return nil, err
	}
	return &EditNightsResult{PropertyID: propertyID, Nights: dr.Nights(), Available: available}, nil
}

var (
	_ commands.Handler[BlockNightsCommand, *EditNightsResult]   = (*BlockNightsHandler)(nil)
	_ commands.Handler[UnblockNightsCommand, *EditNightsResult] = (*UnblockNightsHandler)(nil)
	_ middleware.RetryableCommand                               = BlockNightsCommand{}
)
