// Package bank provides the /bank commands on top of a bank.Core.
package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	core "github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/mqtt"
)

// freeCooldown is the time between two free credit claims, in seconds
const freeCooldown int64 = 86400

// Event is the payload published on the bank topics
type Event struct {
	User      string `json:"user"`
	Target    string `json:"target,omitempty"`
	Value     int64  `json:"value"`
	Balance   int64  `json:"balance"`
	Timestamp int64  `json:"timestamp"`
}

// Cog holds what the bank commands need
type Cog struct {
	accounts    core.Core
	publisher   mqtt.Publisher
	freeCredits int64

	now      func() time.Time
	isMember func(ctx context.Context, userID string) (bool, error)
}

// ErrMembershipUnavailable is returned by cleanup when membership cannot be checked
var ErrMembershipUnavailable = errors.New("membership check unavailable")

// New creates the bank cog. publisher may be nil.
func New(c core.Core, publisher mqtt.Publisher, freeCredits int64) *Cog {
	return &Cog{
		accounts:    c,
		publisher:   publisher,
		freeCredits: freeCredits,
		now:         time.Now,
	}
}

// waitMessage tells how long until the next free credits, given the
// seconds elapsed since the last claim
func waitMessage(elapsed int64) string {
	remaining := freeCooldown - elapsed
	minutes, seconds := remaining/60, remaining%60
	hours, minutes := minutes/60, minutes%60

	if hours > 0 {
		return fmt.Sprintf("⏳ Debes esperar %d horas", hours)
	}
	if minutes > 0 {
		return fmt.Sprintf("⏳ Debes esperar %d minutos", minutes)
	}
	return fmt.Sprintf("⏳ Debes esperar %d segundos", seconds)
}

// canClaim reports whether the cooldown since lastClaim (unix seconds) is over
func (c *Cog) canClaim(lastClaim int64) (bool, int64) {
	elapsed := c.now().Unix() - lastClaim
	return elapsed > freeCooldown, elapsed
}

// claimFree deposits the free credits when the cooldown is over. It returns
// the deposited amount, or the wait message when it is too early.
func (c *Cog) claimFree(ctx context.Context, userID string) (int64, string, error) {
	last, err := c.accounts.LastFreeCredits(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	ok, elapsed := c.canClaim(last)
	if !ok {
		return 0, waitMessage(elapsed), nil
	}

	acc, err := c.accounts.Deposit(ctx, userID, c.freeCredits)
	if err != nil {
		return 0, "", err
	}
	if err := c.accounts.UpdateLastFreeCredits(ctx, userID, c.now()); err != nil {
		return 0, "", err
	}

	c.publish("free", Event{User: userID, Value: c.freeCredits, Balance: acc.Balance})
	return c.freeCredits, "", nil
}

// cleanup deletes the accounts of users the bot no longer shares a guild with.
// It stops at the first membership it cannot confirm either way.
func (c *Cog) cleanup(ctx context.Context) (int, error) {
	if c.isMember == nil {
		return 0, ErrMembershipUnavailable
	}
	users, err := c.accounts.Users(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range users {
		member, err := c.isMember(ctx, id)
		if err != nil {
			logger.Warn(fmt.Sprintf("Limpieza detenida en %s: %v", id, err), "Bank")
			return removed, fmt.Errorf("%w: %v", ErrMembershipUnavailable, err)
		}
		if member {
			continue
		}
		if err := c.accounts.DeleteUser(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	c.publish("cleanup", Event{Value: int64(removed)})
	return removed, nil
}

// transfer moves abs(value) credits, so a negative value cannot pull
// credits from the target
func (c *Cog) transfer(ctx context.Context, from, to string, value int64) (int64, error) {
	if value < 0 {
		value = -value
	}
	if err := c.accounts.Move(ctx, from, to, value); err != nil {
		return 0, err
	}
	c.publish("move", Event{User: from, Target: to, Value: value})
	return value, nil
}

func (c *Cog) publish(event string, payload Event) {
	if c.publisher == nil {
		return
	}
	payload.Timestamp = c.now().UnixMilli()
	if err := c.publisher.Publish(mqtt.BankTopic(event), payload); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		logger.Debug(fmt.Sprintf("No se pudo publicar %s: %v", event, err), "Bank")
	}
}

// userMessage maps bank errors to replies. Unknown errors are left to the
// global fallback.
func userMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrBalanceUnderLimit):
		return "❌ No tienes suficientes créditos.", true
	case errors.Is(err, core.ErrBalanceOverLimit):
		return "❌ Tienes demasiados créditos.", true
	case errors.Is(err, core.ErrAccountNotFound):
		return "❌ Parece que no tienes un banco. Usa `/bank status` para crear uno.", true
	case errors.Is(err, core.ErrInvalidValue):
		return "❌ El valor debe ser positivo.", true
	case errors.Is(err, ErrMembershipUnavailable):
		return "❌ No se pudo comprobar la membresía de los usuarios; la limpieza se detuvo.", true
	}
	return "", false
}
