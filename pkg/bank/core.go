// Package bank implements the virtual currency accounts behind the /bank
// commands. Core is the storage contract; MemoryCore and MongoCore are the
// two implementations.
package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/models"
)

// DefaultMaxBalance is the balance ceiling when none is configured
const DefaultMaxBalance int64 = 1_000_000_000_000

var (
	ErrAccountNotFound   = errors.New("bank account not found")
	ErrBalanceOverLimit  = errors.New("balance over limit")
	ErrBalanceUnderLimit = errors.New("balance under limit")
	ErrInvalidValue      = errors.New("invalid value")
)

// Core is the storage contract for bank accounts
type Core interface {
	// GetUser returns the account, creating an empty one if missing
	GetUser(ctx context.Context, userID string) (*models.Account, error)
	// FindUser returns the account or ErrAccountNotFound. It never creates one.
	FindUser(ctx context.Context, userID string) (*models.Account, error)
	Deposit(ctx context.Context, userID string, value int64) (*models.Account, error)
	Withdraw(ctx context.Context, userID string, value int64) (*models.Account, error)
	// Move withdraws from one account and deposits into the other. A failed
	// deposit is compensated so no credits are lost.
	Move(ctx context.Context, from, to string, value int64) error
	LastFreeCredits(ctx context.Context, userID string) (int64, error)
	UpdateLastFreeCredits(ctx context.Context, userID string, t time.Time) error
	Users(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
}

// checkBalance validates a resulting balance against [0, max]
func checkBalance(balance, max int64) error {
	switch {
	case balance < 0:
		return ErrBalanceUnderLimit
	case balance > max:
		return ErrBalanceOverLimit
	}
	return nil
}

func checkValue(value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidValue, value)
	}
	return nil
}

// applyFunc adds delta to a balance, enforcing the limits
type applyFunc func(ctx context.Context, userID string, delta int64) error

// transfer withdraws from one account and deposits into another, refunding
// the withdraw when the deposit fails.
func transfer(ctx context.Context, apply applyFunc, from, to string, value int64) error {
	if err := checkValue(value); err != nil {
		return err
	}
	if err := apply(ctx, from, -value); err != nil {
		return fmt.Errorf("move from %s: %w", from, err)
	}
	if err := apply(ctx, to, value); err != nil {
		if rerr := apply(ctx, from, value); rerr != nil {
			return fmt.Errorf("move to %s: %w (refund failed: %v)", to, err, rerr)
		}
		return fmt.Errorf("move to %s: %w", to, err)
	}
	return nil
}
