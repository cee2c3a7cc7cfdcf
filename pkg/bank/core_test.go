package bank

import (
	"context"
	"errors"
	"testing"
	"time"

	boterrors "github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T, max int64, users ...string) *MemoryCore {
	t.Helper()
	c := NewMemoryCore(max)
	for _, u := range users {
		_, err := c.GetUser(context.Background(), u)
		require.NoError(t, err)
	}
	return c
}

func TestGetUserCreatesAccount(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCore(0)

	acc, err := c.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", acc.UserID)
	assert.Zero(t, acc.Balance)
	assert.Zero(t, acc.LastFreeCredits)

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, users)
}

func TestFindUserDoesNotCreateAccount(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 0, "1")

	acc, err := c.FindUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", acc.UserID)

	_, err = c.FindUser(ctx, "2")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	users, err := c.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, users)
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "1")

	acc, err := c.Deposit(ctx, "1", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), acc.Balance)

	acc, err = c.Withdraw(ctx, "1", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(40), acc.Balance)
}

func TestBalanceLimits(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "1")
	_, err := c.Deposit(ctx, "1", 50)
	require.NoError(t, err)

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{"over limit", func() error { _, err := c.Deposit(ctx, "1", 51); return err }, ErrBalanceOverLimit},
		{"under limit", func() error { _, err := c.Withdraw(ctx, "1", 51); return err }, ErrBalanceUnderLimit},
		{"negative deposit", func() error { _, err := c.Deposit(ctx, "1", -1); return err }, ErrInvalidValue},
		{"negative withdraw", func() error { _, err := c.Withdraw(ctx, "1", -1); return err }, ErrInvalidValue},
		{"missing account", func() error { _, err := c.Deposit(ctx, "2", 1); return err }, ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), tt.want)

			acc, err := c.GetUser(ctx, "1")
			require.NoError(t, err)
			assert.Equal(t, int64(50), acc.Balance, "failed operations leave the balance alone")
		})
	}
}

func TestDepositUpToLimit(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "1")

	acc, err := c.Deposit(ctx, "1", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Balance)

	acc, err = c.Withdraw(ctx, "1", 100)
	require.NoError(t, err)
	assert.Zero(t, acc.Balance)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "a", "b")
	_, err := c.Deposit(ctx, "a", 30)
	require.NoError(t, err)

	require.NoError(t, c.Move(ctx, "a", "b", 10))

	a, _ := c.GetUser(ctx, "a")
	b, _ := c.GetUser(ctx, "b")
	assert.Equal(t, int64(20), a.Balance)
	assert.Equal(t, int64(10), b.Balance)
}

func TestMoveNotEnoughCredits(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "a", "b")

	err := c.Move(ctx, "a", "b", 10)
	assert.ErrorIs(t, err, ErrBalanceUnderLimit)
}

func TestMoveRefundsWhenDepositFails(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "a", "b")
	_, err := c.Deposit(ctx, "a", 30)
	require.NoError(t, err)
	_, err = c.Deposit(ctx, "b", 95)
	require.NoError(t, err)

	err = c.Move(ctx, "a", "b", 10)
	assert.ErrorIs(t, err, ErrBalanceOverLimit)

	a, _ := c.GetUser(ctx, "a")
	b, _ := c.GetUser(ctx, "b")
	assert.Equal(t, int64(30), a.Balance)
	assert.Equal(t, int64(95), b.Balance)
}

func TestMoveToMissingAccountRefunds(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 100, "a")
	_, err := c.Deposit(ctx, "a", 30)
	require.NoError(t, err)

	err = c.Move(ctx, "a", "ghost", 10)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	a, _ := c.GetUser(ctx, "a")
	assert.Equal(t, int64(30), a.Balance)
}

func TestLastFreeCredits(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 0, "1")

	last, err := c.LastFreeCredits(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, last)

	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, c.UpdateLastFreeCredits(ctx, "1", now))

	last, err = c.LastFreeCredits(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), last)

	_, err = c.LastFreeCredits(ctx, "2")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, c.UpdateLastFreeCredits(ctx, "2", now), ErrAccountNotFound)
}

func TestDeleteUserAndClear(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 0, "1", "2", "3")

	require.NoError(t, c.DeleteUser(ctx, "2"))
	users, _ := c.Users(ctx)
	assert.Equal(t, []string{"1", "3"}, users)

	require.NoError(t, c.Clear(ctx))
	users, _ = c.Users(ctx)
	assert.Empty(t, users)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	ctx := context.Background()
	c := newCore(t, 0, "1")

	acc, _ := c.GetUser(ctx, "1")
	acc.Balance = 500

	again, _ := c.GetUser(ctx, "1")
	assert.Zero(t, again.Balance)
}

func TestMongoCoreOffline(t *testing.T) {
	ctx := context.Background()
	c := NewMongoCore(database.NewDatabase(), 0)

	_, err := c.GetUser(ctx, "offline-user")
	assert.True(t, errors.Is(err, boterrors.ErrDatabaseOffline))

	_, err = c.Deposit(ctx, "offline-user", 1)
	assert.ErrorIs(t, err, boterrors.ErrDatabaseOffline)

	_, err = c.Withdraw(ctx, "offline-user", -1)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
