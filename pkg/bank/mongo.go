package bank

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/database"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/PancyStudios/UselessBotGo/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MongoCore stores accounts in MongoDB. Balance changes are single
// $inc updates guarded by a balance filter, so concurrent commands can not
// push an account past its limits. Every movement is appended to the
// ledger collection.
type MongoCore struct {
	accounts   *database.DataManager[models.Account]
	ledger     *database.DataManager[models.LedgerEntry]
	maxBalance int64
}

var _ Core = (*MongoCore)(nil)

// NewMongoCore builds a MongoCore over the given database
func NewMongoCore(db *database.Database, maxBalance int64) *MongoCore {
	if maxBalance <= 0 {
		maxBalance = DefaultMaxBalance
	}
	return &MongoCore{
		accounts:   database.NewDataManager[models.Account](database.AccountsCollection, db),
		ledger:     database.NewDataManager[models.LedgerEntry](database.LedgerCollection, db, database.DataManagerOptions{}),
		maxBalance: maxBalance,
	}
}

// EnsureIndexes makes the account owner unique so concurrent account
// creation can not produce two documents for one user
func (c *MongoCore) EnsureIndexes(ctx context.Context) error {
	return c.accounts.EnsureUniqueIndex(ctx, "user")
}

func userKey(userID string) bson.M {
	return bson.M{"user": userID}
}

func (c *MongoCore) GetUser(ctx context.Context, userID string) (*models.Account, error) {
	acc, err := c.accounts.Get(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	if acc != nil {
		return acc, nil
	}

	logger.Info(fmt.Sprintf("Creando cuenta para %s", userID), "Bank")
	return c.accounts.Create(ctx, userKey(userID), models.Account{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
}

func (c *MongoCore) FindUser(ctx context.Context, userID string) (*models.Account, error) {
	acc, err := c.accounts.Get(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	return acc, nil
}

func (c *MongoCore) Deposit(ctx context.Context, userID string, value int64) (*models.Account, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	acc, err := c.inc(ctx, userID, value)
	if err != nil {
		return nil, err
	}
	c.record(ctx, models.LedgerDeposit, "", userID, value)
	return acc, nil
}

func (c *MongoCore) Withdraw(ctx context.Context, userID string, value int64) (*models.Account, error) {
	if err := checkValue(value); err != nil {
		return nil, err
	}
	acc, err := c.inc(ctx, userID, -value)
	if err != nil {
		return nil, err
	}
	c.record(ctx, models.LedgerWithdraw, userID, "", value)
	return acc, nil
}

func (c *MongoCore) Move(ctx context.Context, from, to string, value int64) error {
	apply := func(ctx context.Context, userID string, delta int64) error {
		_, err := c.inc(ctx, userID, delta)
		return err
	}
	if err := transfer(ctx, apply, from, to, value); err != nil {
		return err
	}
	c.record(ctx, models.LedgerMove, from, to, value)
	return nil
}

// inc adds delta in one guarded update. When the guard rejects the update
// the account is read back to tell a missing account from a limit error.
func (c *MongoCore) inc(ctx context.Context, userID string, delta int64) (*models.Account, error) {
	var guard bson.M
	if delta >= 0 {
		guard = bson.M{"balance": bson.M{"$lte": c.maxBalance - delta}}
	} else {
		guard = bson.M{"balance": bson.M{"$gte": -delta}}
	}

	acc, err := c.accounts.Update(ctx, userKey(userID), guard, bson.M{"$inc": bson.M{"balance": delta}})
	if err != nil {
		return nil, err
	}
	if acc != nil {
		return acc, nil
	}

	current, err := c.accounts.Get(ctx, userKey(userID))
	if err != nil {
		return nil, err
	}
	switch {
	case current == nil:
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	case delta >= 0:
		return nil, ErrBalanceOverLimit
	default:
		return nil, ErrBalanceUnderLimit
	}
}

func (c *MongoCore) record(ctx context.Context, kind models.LedgerKind, from, to string, value int64) {
	entry := &models.LedgerEntry{
		ID:        uuid.NewString(),
		Kind:      kind,
		From:      from,
		To:        to,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.ledger.Insert(ctx, entry); err != nil {
		logger.Error(fmt.Sprintf("No se pudo registrar el movimiento %s: %v", entry.ID, err), "Bank")
	}
}

func (c *MongoCore) LastFreeCredits(ctx context.Context, userID string) (int64, error) {
	acc, err := c.accounts.Get(ctx, userKey(userID))
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	return acc.LastFreeCredits, nil
}

func (c *MongoCore) UpdateLastFreeCredits(ctx context.Context, userID string, t time.Time) error {
	acc, err := c.accounts.Update(ctx, userKey(userID), nil, bson.M{"$set": bson.M{"last_free_credits": t.Unix()}})
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, userID)
	}
	return nil
}

func (c *MongoCore) Users(ctx context.Context) ([]string, error) {
	accounts, err := c.accounts.GetAll(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.UserID)
	}
	return ids, nil
}

func (c *MongoCore) DeleteUser(ctx context.Context, userID string) error {
	return c.accounts.Delete(ctx, userKey(userID))
}

func (c *MongoCore) Clear(ctx context.Context) error {
	n, err := c.accounts.DeleteMany(ctx, bson.M{})
	if err != nil {
		return err
	}
	logger.Warn(fmt.Sprintf("Banco reiniciado, %d cuentas eliminadas", n), "Bank")
	return nil
}
