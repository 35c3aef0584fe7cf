package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// d parses a date in YYYY-MM-DD form, panicking on a malformed literal;
// acceptable in test helpers since every call site is a fixed string.
func d(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

// dec parses a decimal literal, panicking on malformed input.
func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// fixtureBuilder accumulates raw accounts and transactions for a scenario
// in the order they're added, assigning dense account numbers and action
// record keys the same way an importer would.
type fixtureBuilder struct {
	rawAccounts   map[AccountNum]*RawAccount
	actionRecords map[ActionRecordKey]*ActionRecord
	transactions  map[TxNum]*Transaction
	nextAcctNum   AccountNum
	nextARKey     ActionRecordKey
}

func newFixtureBuilder() *fixtureBuilder {
	return &fixtureBuilder{
		rawAccounts:   map[AccountNum]*RawAccount{},
		actionRecords: map[ActionRecordKey]*ActionRecord{},
		transactions:  map[TxNum]*Transaction{},
		nextAcctNum:   1,
		nextARKey:     1,
	}
}

func (fb *fixtureBuilder) account(name, ticker string, margin bool) AccountNum {
	num := fb.nextAcctNum
	fb.rawAccounts[num] = &RawAccount{Num: num, Name: name, Ticker: ticker, IsMargin: margin}
	fb.nextAcctNum++
	return num
}

type leg struct {
	Account AccountNum
	Amount  decimal.Decimal
}

func (fb *fixtureBuilder) tx(num int, date time.Time, memo string, proceeds decimal.Decimal, legs ...leg) {
	tx := &Transaction{Num: TxNum(num), Date: date, Memo: memo, Proceeds: proceeds}
	for _, lg := range legs {
		ar := &ActionRecord{Key: fb.nextARKey, AccountKey: lg.Account, Amount: lg.Amount, TxKey: tx.Num}
		fb.actionRecords[fb.nextARKey] = ar
		tx.ActionRecordKeys = append(tx.ActionRecordKeys, fb.nextARKey)
		fb.nextARKey++
	}
	fb.transactions[tx.Num] = tx
}

func (fb *fixtureBuilder) build(params Params) (*Ledger, error) {
	return NewLedger(fb.rawAccounts, fb.actionRecords, fb.transactions, params)
}
