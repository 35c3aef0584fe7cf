package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Term classifies a movement's holding period. For incoming movements in
// a single-AR transaction there is no paired outgoing leg to measure
// against, so the classification is prospective: it measures from the
// lot's basis date up to asOf, a caller-supplied date rather than the
// wall clock.
func (l *Ledger) Term(mvmt *Movement, asOf time.Time) Term {
	ar := l.ActionRecords[mvmt.ARKey]
	acct := l.Accounts[ar.AccountKey]
	lot := acct.Lots[mvmt.LotNum-1]

	if mvmt.Polarity() == Outgoing {
		return termFromDates(mvmt.TxDate, lot.BasisDate)
	}

	tx := l.Transactions[mvmt.TxKey]
	if len(tx.ActionRecordKeys) == 2 {
		return termFromDates(mvmt.TxDate, lot.BasisDate)
	}
	return termFromDates(asOf, lot.BasisDate)
}

func termFromDates(date, basisDate time.Time) Term {
	if date.Sub(basisDate) > oneYear {
		return LT
	}
	return ST
}

// Income returns the home-currency income represented by a movement:
// positive for a non-margin incoming Flow movement (proceeds are negative
// on incoming, so income is the negation), zero otherwise.
func (l *Ledger) Income(mvmt *Movement) decimal.Decimal {
	ar := l.ActionRecords[mvmt.ARKey]
	acct := l.Accounts[ar.AccountKey]
	if acct.Raw.IsMargin || mvmt.Polarity() != Incoming {
		return zeroDecimal
	}
	tx := l.Transactions[mvmt.TxKey]
	txType, err := Classify(tx, l)
	if err != nil || txType != Flow {
		return zeroDecimal
	}
	return neg(mvmt.ProceedsLK)
}

// Expense returns the home-currency expense represented by a movement:
// the negation of proceeds_lk for a non-margin outgoing Flow movement
// (outgoing proceeds are non-negative, so the result is zero or
// negative), zero otherwise (including margin Flow outgoing).
func (l *Ledger) Expense(mvmt *Movement) decimal.Decimal {
	ar := l.ActionRecords[mvmt.ARKey]
	acct := l.Accounts[ar.AccountKey]
	if acct.Raw.IsMargin || mvmt.Polarity() != Outgoing {
		return zeroDecimal
	}
	tx := l.Transactions[mvmt.TxKey]
	txType, err := Classify(tx, l)
	if err != nil || txType != Flow {
		return zeroDecimal
	}
	return neg(mvmt.ProceedsLK)
}

// AutoMemo derives a textual summary of a transaction from its action
// records' tickers and amounts, branching on TxType.
func (l *Ledger) AutoMemo(tx *Transaction) string {
	txType, err := Classify(tx, l)
	if err != nil {
		return fmt.Sprintf("tx #%d: %v", tx.Num, err)
	}

	legs := lo.Map(tx.ActionRecordKeys, func(arKey ActionRecordKey, _ int) string {
		ar := l.ActionRecords[arKey]
		acct := l.Accounts[ar.AccountKey]
		amt := round8(ar.Amount)
		sign := ""
		if amt.IsPositive() {
			sign = "+"
		}
		return fmt.Sprintf("%s%s %s", sign, amt.String(), acct.Raw.Ticker)
	})

	switch txType {
	case Exchange:
		return fmt.Sprintf("Exchange: %s", strings.Join(legs, " for "))
	case ToSelf:
		return fmt.Sprintf("Transfer to self: %s", strings.Join(legs, ", "))
	default:
		if len(legs) == 1 {
			if tx.ActionRecordKeys != nil {
				ar := l.ActionRecords[tx.ActionRecordKeys[0]]
				if ar.Amount.IsPositive() {
					return fmt.Sprintf("Income: %s", legs[0])
				}
			}
			return fmt.Sprintf("Expense: %s", legs[0])
		}
		return fmt.Sprintf("Margin settlement: %s", strings.Join(legs, ", "))
	}
}

// AccountBalance sums the amount across every lot of an account.
func (l *Ledger) AccountBalance(acctKey AccountNum) decimal.Decimal {
	return l.Accounts[acctKey].Balance()
}

// AllMovementsForAccount returns every movement ever posted to an account,
// across all of its lots, in lot-then-posting order.
func (l *Ledger) AllMovementsForAccount(acctKey AccountNum) []*Movement {
	acct := l.Accounts[acctKey]
	var out []*Movement
	for _, lot := range acct.Lots {
		out = append(out, lot.Movements...)
	}
	return out
}

// TotalCostBasis sums cost_basis across every movement of an account. Pass
// useLK=true to sum cost_basis_lk instead.
func (l *Ledger) TotalCostBasis(acctKey AccountNum, useLK bool) decimal.Decimal {
	total := zeroDecimal
	for _, m := range l.AllMovementsForAccount(acctKey) {
		if useLK {
			total = total.Add(m.CostBasisLK)
		} else {
			total = total.Add(m.CostBasis)
		}
	}
	return total
}

// TotalProceeds sums proceeds across every movement of an account. Pass
// useLK=true to sum proceeds_lk instead.
func (l *Ledger) TotalProceeds(acctKey AccountNum, useLK bool) decimal.Decimal {
	total := zeroDecimal
	for _, m := range l.AllMovementsForAccount(acctKey) {
		if useLK {
			total = total.Add(m.ProceedsLK)
		} else {
			total = total.Add(m.Proceeds)
		}
	}
	return total
}

// NonMarginAccountKeys returns every account key whose raw account is not
// a margin account, in ascending order.
func (l *Ledger) NonMarginAccountKeys() []AccountNum {
	keys := lo.Filter(lo.Keys(l.Accounts), func(k AccountNum, _ int) bool {
		return !l.Accounts[k].Raw.IsMargin
	})
	sortAccountNums(keys)
	return keys
}
