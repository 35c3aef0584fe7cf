package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type (
	// AccountNum is the 1-based, dense ordinal identifying a raw account.
	AccountNum uint32

	// ActionRecordKey identifies one leg of a transaction.
	ActionRecordKey uint32

	// TxNum is the 1-based transaction number; transactions are iterated
	// 1..N in ascending order by every pass.
	TxNum uint32

	// Polarity is the sign of a signed amount.
	Polarity int

	// TxType classifies a transaction by what its action records represent.
	TxType int

	// TxHasMargin classifies a transaction by how many of its action
	// records reference margin accounts.
	TxHasMargin int

	// Term is the long/short-term holding-period classification.
	Term int
)

const (
	Incoming Polarity = iota
	Outgoing
)

func (p Polarity) String() string {
	if p == Incoming {
		return "Incoming"
	}
	return "Outgoing"
}

const (
	Exchange TxType = iota
	ToSelf
	Flow
)

func (t TxType) String() string {
	switch t {
	case Exchange:
		return "Exchange"
	case ToSelf:
		return "ToSelf"
	default:
		return "Flow"
	}
}

const (
	NoARs TxHasMargin = iota
	OneAR
	TwoARs
)

const (
	ST Term = iota
	LT
)

func (t Term) String() string {
	if t == LT {
		return "LT"
	}
	return "ST"
}

// oneYear is the holding-period threshold: LT iff the gap exceeds 365 days.
const oneYear = 365 * 24 * time.Hour

// RawAccount is the immutable identity of an account, assigned by the
// importer. Margin quote accounts encode their pair as "QUOTE_base" (e.g.
// "BTC_xmr"); the presence of an underscore is the sole signal used to
// identify the quote side of a margin pair.
type RawAccount struct {
	Num      AccountNum
	Name     string
	Ticker   string
	IsMargin bool
}

// BaseTicker returns the ticker up to (not including) the first underscore,
// which is what two differently-suffixed margin tickers are compared on
// when the classifier decides ToSelf vs. Exchange.
func (ra *RawAccount) BaseTicker() string {
	if i := strings.IndexByte(ra.Ticker, '_'); i >= 0 {
		return ra.Ticker[:i]
	}
	return ra.Ticker
}

// IsQuoteTicker reports whether this ticker encodes the quote side of a
// margin pair (i.e. contains an underscore).
func (ra *RawAccount) IsQuoteTicker() bool {
	return strings.IndexByte(ra.Ticker, '_') >= 0
}

// Account is the mutable per-account state: the raw identity plus an
// append-only, creation-ordered sequence of Lots. Lot position in the slice
// (0-based) plus 1 equals the lot's Number.
type Account struct {
	RawKey AccountNum
	Raw    *RawAccount
	Lots   []*Lot
}

// LastLot returns the most recently opened lot, or nil if none exist yet.
func (a *Account) LastLot() *Lot {
	if len(a.Lots) == 0 {
		return nil
	}
	return a.Lots[len(a.Lots)-1]
}

// Balance sums the amounts of every movement across every lot in the
// account. For non-home, non-margin accounts this must never go negative.
func (a *Account) Balance() decimal.Decimal {
	total := zeroDecimal
	for _, lot := range a.Lots {
		total = total.Add(lot.Balance())
	}
	return total
}

func (a *Account) pushLot(lot *Lot) {
	lot.Number = len(a.Lots) + 1
	a.Lots = append(a.Lots, lot)
}

// Lot is an append-only inventory bucket within one account.
type Lot struct {
	Number       int
	AccountKey   AccountNum
	CreationDate time.Time
	BasisDate    time.Time
	Movements    []*Movement
}

// NewLot constructs a lot; CreationDate is always the date of its first
// movement, BasisDate may differ when inherited via self-transfer or
// like-kind flow.
func NewLot(accountKey AccountNum, creationDate, basisDate time.Time) *Lot {
	return &Lot{
		AccountKey:   accountKey,
		CreationDate: creationDate,
		BasisDate:    basisDate,
	}
}

// Balance sums the signed amounts of every movement posted to the lot.
func (l *Lot) Balance() decimal.Decimal {
	total := zeroDecimal
	for _, m := range l.Movements {
		total = total.Add(m.Amount)
	}
	return total
}

// FirstMovement returns the lot's first posted movement, the reference
// point the basis pass uses to apportion outgoing disposals.
func (l *Lot) FirstMovement() *Movement {
	if len(l.Movements) == 0 {
		return nil
	}
	return l.Movements[0]
}

// PositiveMovements returns the lot's movements with a strictly positive
// amount, in posting order, used by the margin dual-AR flow split.
func (l *Lot) PositiveMovements() []*Movement {
	return lo.Filter(l.Movements, func(m *Movement, _ int) bool { return m.Amount.IsPositive() })
}

func (l *Lot) push(m *Movement) {
	m.LotNum = l.Number
	l.Movements = append(l.Movements, m)
}

// Movement is a single posting of a signed amount to exactly one lot,
// derived from exactly one action record. CostBasis/Proceeds/CostBasisLK/
// ProceedsLK start at zero and are only ever written by the basis,
// proceeds, and like-kind passes (in that order); Amount, once posted by
// the builder, never changes again.
type Movement struct {
	Amount decimal.Decimal

	TxDate time.Time
	TxKey  TxNum
	ARKey  ActionRecordKey
	LotNum int

	CostBasis   decimal.Decimal
	Proceeds    decimal.Decimal
	CostBasisLK decimal.Decimal
	ProceedsLK  decimal.Decimal

	// RatioToIncomingInAR is this movement's share of its incoming action
	// record's total amount; the last movement of a multi-lot incoming
	// allocation absorbs rounding drift so these ratios sum to exactly 1.
	RatioToIncomingInAR decimal.Decimal
	// RatioToOutgoingInAR is the symmetric ratio for outgoing movements.
	// Informational only; no basis/proceeds rule consumes it.
	RatioToOutgoingInAR decimal.Decimal
}

// NewMovement constructs a movement with zeroed monetary cells, ready to be
// posted to a lot and an action record by the builder.
func NewMovement(amount decimal.Decimal, txDate time.Time, txKey TxNum, arKey ActionRecordKey) *Movement {
	return &Movement{
		Amount: amount,
		TxDate: txDate,
		TxKey:  txKey,
		ARKey:  arKey,
	}
}

// Polarity reports the movement's direction from the sign of its amount.
func (m *Movement) Polarity() Polarity {
	if m.Amount.IsNegative() {
		return Outgoing
	}
	return Incoming
}

// ActionRecord is one leg of a transaction.
type ActionRecord struct {
	Key        ActionRecordKey
	AccountKey AccountNum
	Amount     decimal.Decimal
	TxKey      TxNum
	SelfKey    ActionRecordKey
	Movements  []*Movement
}

// Polarity reports the action record's direction from the sign of its
// amount.
func (ar *ActionRecord) Polarity() Polarity {
	if ar.Amount.IsNegative() {
		return Outgoing
	}
	return Incoming
}

func (ar *ActionRecord) pushMovement(m *Movement) {
	ar.Movements = append(ar.Movements, m)
}

// MovementsInLotDateOrder returns the action record's movements ordered by
// the creation date of the lot each was posted into, a fetch order several
// basis/proceeds rules depend on explicitly.
func (ar *ActionRecord) MovementsInLotDateOrder(acct *Account) []*Movement {
	out := make([]*Movement, len(ar.Movements))
	copy(out, ar.Movements)
	sortMovementsByLotCreationDate(out, acct)
	return out
}

// Transaction is a single user ledger row.
type Transaction struct {
	Num              TxNum
	Date             time.Time
	Memo             string
	Proceeds         decimal.Decimal
	ActionRecordKeys []ActionRecordKey
}

// HasMargin classifies the transaction by how many of its action records
// reference margin accounts (0, 1, or 2), not by the raw count of ARs.
func (tx *Transaction) HasMargin(l *Ledger) TxHasMargin {
	marginLegs := 0
	for _, arKey := range tx.ActionRecordKeys {
		ar := l.ActionRecords[arKey]
		acct := l.Accounts[ar.AccountKey]
		if acct.Raw.IsMargin {
			marginLegs++
		}
	}
	switch marginLegs {
	case 0:
		return NoARs
	case 1:
		return OneAR
	default:
		return TwoARs
	}
}

func (ra *RawAccount) String() string {
	return fmt.Sprintf("#%d %s (%s)", ra.Num, ra.Name, ra.Ticker)
}
