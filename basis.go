package ledger

import "github.com/shopspring/decimal"

// AddCostBasis sweeps every transaction in order, every action record, and
// every movement (fetched in lot-creation order), assigning cost_basis
// and, identically in this pass, the lk variant; the like-kind pass
// diverges them later only when the election is active.
func (l *Ledger) AddCostBasis() error {
	for _, txNum := range l.orderedTxNums() {
		tx := l.Transactions[txNum]
		for arIdx, arKey := range tx.ActionRecordKeys {
			ar := l.ActionRecords[arKey]
			acct := l.Accounts[ar.AccountKey]
			movements := ar.MovementsInLotDateOrder(acct)
			for mvmtIdx, mvmt := range movements {
				basis, err := l.computeCostBasis(tx, ar, acct, mvmt, arIdx, mvmtIdx)
				if err != nil {
					return err
				}
				mvmt.CostBasis = basis
				mvmt.CostBasisLK = basis
			}
		}
	}
	return nil
}

func (l *Ledger) computeCostBasis(tx *Transaction, ar *ActionRecord, acct *Account, mvmt *Movement, arIdx, mvmtIdx int) (decimal.Decimal, error) {
	if acct.Raw.IsMargin {
		return zeroDecimal, nil
	}
	if l.IsHomeAccount(ar.AccountKey) {
		return mvmt.Amount, nil
	}

	var basis decimal.Decimal
	switch mvmt.Polarity() {
	case Outgoing:
		lot := acct.Lots[mvmt.LotNum-1]
		first := lot.FirstMovement()
		ratio := mvmt.Amount.Abs().Div(first.Amount.Abs())
		basis = round2(neg(first.CostBasis).Mul(ratio))
		if basis.IsPositive() {
			return basis, internalAssertion(tx.Num, "outgoing cost basis %s is positive for account %s", basis, acct.Raw.Ticker)
		}
	case Incoming:
		txType, err := Classify(tx, l)
		if err != nil {
			return zeroDecimal, err
		}
		switch txType {
		case Exchange:
			out, _, err := outgoingAndIncomingARs(tx, l)
			if err != nil {
				return zeroDecimal, err
			}
			if l.IsHomeAccount(out.AccountKey) {
				basis = neg(out.Amount)
			} else {
				basis = round2(tx.Proceeds.Mul(mvmt.RatioToIncomingInAR))
			}
		case ToSelf:
			out, _, err := outgoingAndIncomingARs(tx, l)
			if err != nil {
				return zeroDecimal, err
			}
			outAcct := l.Accounts[out.AccountKey]
			outMovements := out.MovementsInLotDateOrder(outAcct)
			if mvmtIdx >= len(outMovements) {
				return zeroDecimal, internalAssertion(tx.Num, "ToSelf incoming movement %d has no corresponding outgoing movement", mvmtIdx)
			}
			basis = neg(round2(outMovements[mvmtIdx].CostBasis))
		default: // Flow
			basis = round2(tx.Proceeds.Mul(mvmt.RatioToIncomingInAR))
		}
		if basis.IsNegative() {
			return basis, internalAssertion(tx.Num, "incoming cost basis %s is negative for account %s", basis, acct.Raw.Ticker)
		}
	}
	return basis, nil
}
