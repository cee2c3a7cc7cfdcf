package models

import "time"

// Account is a member's bank account in the "bank_accounts" collection
type Account struct {
	UserID          string    `bson:"user" json:"user"`
	Balance         int64     `bson:"balance" json:"balance"`
	LastFreeCredits int64     `bson:"last_free_credits" json:"lastFreeCredits"` // unix seconds, 0 = never claimed
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// LedgerKind is the type of movement recorded in the ledger
type LedgerKind string

const (
	LedgerDeposit  LedgerKind = "deposit"
	LedgerWithdraw LedgerKind = "withdraw"
	LedgerMove     LedgerKind = "move"
)

// LedgerEntry is an append-only record in the "bank_ledger" collection
type LedgerEntry struct {
	ID        string     `bson:"_id" json:"id"`
	Kind      LedgerKind `bson:"kind" json:"kind"`
	From      string     `bson:"from,omitempty" json:"from,omitempty"`
	To        string     `bson:"to,omitempty" json:"to,omitempty"`
	Value     int64      `bson:"value" json:"value"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
}
