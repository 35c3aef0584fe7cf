package ledger

import "github.com/shopspring/decimal"

// AddProceeds mirrors the basis pass to assign proceeds (and proceeds_lk)
// to every non-margin movement, with incoming proceeds always set to the
// negative of cost basis so same-transaction gain nets to zero on the
// incoming leg. Margin accounts keep all-zero proceeds.
func (l *Ledger) AddProceeds() error {
	for _, txNum := range l.orderedTxNums() {
		tx := l.Transactions[txNum]
		txType, err := Classify(tx, l)
		if err != nil {
			return err
		}
		for _, arKey := range tx.ActionRecordKeys {
			ar := l.ActionRecords[arKey]
			acct := l.Accounts[ar.AccountKey]
			if acct.Raw.IsMargin {
				continue
			}
			for _, mvmt := range ar.Movements {
				proceeds, proceedsLK := computeProceeds(tx, ar, mvmt, txType)
				mvmt.Proceeds = proceeds
				mvmt.ProceedsLK = proceedsLK
			}
		}
	}
	return nil
}

func computeProceeds(tx *Transaction, ar *ActionRecord, mvmt *Movement, txType TxType) (proceeds, proceedsLK decimal.Decimal) {
	if txType == ToSelf {
		p := neg(mvmt.CostBasis)
		return p, p
	}

	switch mvmt.Polarity() {
	case Outgoing:
		if txType == Flow && len(tx.ActionRecordKeys) == 2 {
			return zeroDecimal, zeroDecimal
		}
		p := round2(tx.Proceeds.Mul(mvmt.Amount.Div(ar.Amount)))
		return p, p
	default: // Incoming
		return neg(mvmt.CostBasis), neg(mvmt.CostBasisLK)
	}
}
