package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	core "github.com/PancyStudios/UselessBotGo/pkg/bank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(topic string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func newTestCog(t *testing.T, now time.Time) (*Cog, *core.MemoryCore, *fakePublisher) {
	t.Helper()
	accounts := core.NewMemoryCore(1000)
	pub := &fakePublisher{}
	c := New(accounts, pub, 15)
	c.now = func() time.Time { return now }
	return c, accounts, pub
}

func TestWaitMessage(t *testing.T) {
	tests := []struct {
		elapsed int64
		want    string
	}{
		{0, "⏳ Debes esperar 24 horas"},
		{3600, "⏳ Debes esperar 23 horas"},
		{86400 - 3600, "⏳ Debes esperar 1 horas"},
		{86400 - 3599, "⏳ Debes esperar 59 minutos"},
		{86400 - 60, "⏳ Debes esperar 1 minutos"},
		{86400 - 59, "⏳ Debes esperar 59 segundos"},
		{86400, "⏳ Debes esperar 0 segundos"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.elapsed), func(t *testing.T) {
			assert.Equal(t, tt.want, waitMessage(tt.elapsed))
		})
	}
}

func TestClaimFree(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c, accounts, pub := newTestCog(t, now)
	ctx := context.Background()

	_, err := accounts.GetUser(ctx, "u1")
	require.NoError(t, err)

	amount, wait, err := c.claimFree(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), amount)
	assert.Empty(t, wait)

	acc, err := accounts.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), acc.Balance)
	assert.Equal(t, now.Unix(), acc.LastFreeCredits)
	assert.Contains(t, pub.topics, "uselessbot/bank/free")

	// Second claim one hour later is refused
	c.now = func() time.Time { return now.Add(time.Hour) }
	amount, wait, err = c.claimFree(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, amount)
	assert.Equal(t, "⏳ Debes esperar 23 horas", wait)

	// Exactly one day later is still too early
	c.now = func() time.Time { return now.Add(24 * time.Hour) }
	_, wait, err = c.claimFree(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, wait)

	c.now = func() time.Time { return now.Add(24*time.Hour + time.Second) }
	amount, _, err = c.claimFree(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), amount)
}

func TestClaimFreeWithoutAccount(t *testing.T) {
	c, _, _ := newTestCog(t, time.Now())

	_, _, err := c.claimFree(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
}

func TestClaimFreeOverLimitKeepsCooldown(t *testing.T) {
	c, accounts, _ := newTestCog(t, time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	_, err := accounts.GetUser(ctx, "rich")
	require.NoError(t, err)
	_, err = accounts.Deposit(ctx, "rich", 1000)
	require.NoError(t, err)

	_, _, err = c.claimFree(ctx, "rich")
	assert.ErrorIs(t, err, core.ErrBalanceOverLimit)

	last, err := accounts.LastFreeCredits(ctx, "rich")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestTransferUsesAbsoluteValue(t *testing.T) {
	c, accounts, pub := newTestCog(t, time.Now())
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := accounts.GetUser(ctx, id)
		require.NoError(t, err)
	}
	_, err := accounts.Deposit(ctx, "a", 100)
	require.NoError(t, err)

	moved, err := c.transfer(ctx, "a", "b", -40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), moved)

	a, _ := accounts.GetUser(ctx, "a")
	b, _ := accounts.GetUser(ctx, "b")
	assert.Equal(t, int64(60), a.Balance)
	assert.Equal(t, int64(40), b.Balance)
	assert.Contains(t, pub.topics, "uselessbot/bank/move")

	_, err = c.transfer(ctx, "b", "a", 500)
	assert.ErrorIs(t, err, core.ErrBalanceUnderLimit)
}

func TestCleanup(t *testing.T) {
	c, accounts, _ := newTestCog(t, time.Now())
	ctx := context.Background()

	for _, id := range []string{"stays", "gone1", "gone2"} {
		_, err := accounts.GetUser(ctx, id)
		require.NoError(t, err)
	}
	c.isMember = func(ctx context.Context, id string) (bool, error) { return id == "stays", nil }

	removed, err := c.cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	users, err := accounts.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stays"}, users)
}

// An uncached member is only known to the REST lookup and must survive cleanup
func TestCleanupKeepsUncachedMembers(t *testing.T) {
	c, accounts, _ := newTestCog(t, time.Now())
	ctx := context.Background()

	for _, id := range []string{"online", "offline-member", "gone"} {
		_, err := accounts.GetUser(ctx, id)
		require.NoError(t, err)
	}
	cached := map[string]bool{"online": true}
	remote := map[string]bool{"online": true, "offline-member": true}
	c.isMember = func(ctx context.Context, id string) (bool, error) {
		if cached[id] {
			return true, nil
		}
		return remote[id], nil
	}

	removed, err := c.cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	users, err := accounts.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"online", "offline-member"}, users)
}

func TestCleanupWithoutMembershipCheck(t *testing.T) {
	c, accounts, _ := newTestCog(t, time.Now())
	ctx := context.Background()

	_, err := accounts.GetUser(ctx, "anyone")
	require.NoError(t, err)

	removed, err := c.cleanup(ctx)
	assert.ErrorIs(t, err, ErrMembershipUnavailable)
	assert.Zero(t, removed)

	users, err := accounts.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"anyone"}, users)
}

func TestCleanupStopsOnMembershipError(t *testing.T) {
	c, accounts, pub := newTestCog(t, time.Now())
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := accounts.GetUser(ctx, id)
		require.NoError(t, err)
	}
	c.isMember = func(ctx context.Context, id string) (bool, error) {
		return false, errors.New("discord unavailable")
	}

	removed, err := c.cleanup(ctx)
	assert.ErrorIs(t, err, ErrMembershipUnavailable)
	assert.Zero(t, removed)

	users, err := accounts.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NotContains(t, pub.topics, "uselessbot/bank/cleanup")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		handled bool
	}{
		{"under", fmt.Errorf("withdraw: %w", core.ErrBalanceUnderLimit), "suficientes", true},
		{"over", core.ErrBalanceOverLimit, "demasiados", true},
		{"missing", fmt.Errorf("%w: 1", core.ErrAccountNotFound), "/bank status", true},
		{"invalid", core.ErrInvalidValue, "positivo", true},
		{"membership", ErrMembershipUnavailable, "membresía", true},
		{"other", errors.New("boom"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, handled := userMessage(tt.err)
			assert.Equal(t, tt.handled, handled)
			assert.True(t, strings.Contains(msg, tt.want))
		})
	}
}
