package ledger

// ApplyLikeKindTreatment only runs when the like-kind election is enabled
// (engine.Run gates the call). For every transaction in order it first
// carries forward any already-accrued lk basis from prior lots, then,
// only for transactions dated on or before the cutoff, applies the
// election itself (deferring gain on qualifying exchanges and margin
// settlements).
func (l *Ledger) ApplyLikeKindTreatment() error {
	for _, txNum := range l.orderedTxNums() {
		tx := l.Transactions[txNum]
		if err := l.likeKindCarryForward(tx); err != nil {
			return err
		}
		if !tx.Date.After(l.Params.LikeKindCutoff) {
			if err := l.likeKindElection(tx); err != nil {
				return err
			}
		}
	}
	return nil
}

// likeKindCarryForward resets cost_basis_lk/proceeds_lk for every movement
// in the transaction to reflect lk-basis already accrued in prior lots.
// It always runs, regardless of the cutoff date.
func (l *Ledger) likeKindCarryForward(tx *Transaction) error {
	txType, err := Classify(tx, l)
	if err != nil {
		return err
	}

	sumOutgoingLKBasis := zeroDecimal
	for _, arKey := range tx.ActionRecordKeys {
		ar := l.ActionRecords[arKey]
		acct := l.Accounts[ar.AccountKey]
		if acct.Raw.IsMargin || l.IsHomeAccount(ar.AccountKey) {
			continue
		}

		switch ar.Polarity() {
		case Outgoing:
			sum := zeroDecimal
			for _, mvmt := range ar.MovementsInLotDateOrder(acct) {
				lot := acct.Lots[mvmt.LotNum-1]
				first := lot.FirstMovement()
				ratio := mvmt.Amount.Abs().Div(first.Amount.Abs())
				lk := round2(neg(first.CostBasisLK).Mul(ratio))
				mvmt.CostBasisLK = lk
				if txType == ToSelf {
					mvmt.ProceedsLK = neg(lk)
				}
				sum = sum.Add(lk)
			}
			sumOutgoingLKBasis = sum
		case Incoming:
			switch txType {
			case Exchange:
				// handled entirely in likeKindElection; no carry-forward
				// change for the incoming leg of an Exchange.
			case Flow:
				if len(tx.ActionRecordKeys) == 2 {
					for _, mvmt := range ar.Movements {
						mvmt.CostBasisLK = zeroDecimal
						mvmt.ProceedsLK = zeroDecimal
					}
				}
			case ToSelf:
				for _, mvmt := range ar.Movements {
					lk := neg(round2(sumOutgoingLKBasis.Mul(mvmt.RatioToIncomingInAR)))
					mvmt.CostBasisLK = lk
					mvmt.ProceedsLK = neg(lk)
				}
			}
		}
	}
	return nil
}

// likeKindElection applies the election itself for a transaction dated on
// or before the cutoff.
func (l *Ledger) likeKindElection(tx *Transaction) error {
	txType, err := Classify(tx, l)
	if err != nil {
		return err
	}

	switch txType {
	case Exchange:
		if len(tx.ActionRecordKeys) != 2 {
			return nil
		}
		out, in, err := outgoingAndIncomingARs(tx, l)
		if err != nil {
			return err
		}
		outAcct := l.Accounts[out.AccountKey]
		inAcct := l.Accounts[in.AccountKey]
		if outAcct.Raw.IsMargin || inAcct.Raw.IsMargin {
			return nil
		}
		if l.IsHomeAccount(out.AccountKey) || l.IsHomeAccount(in.AccountKey) {
			return nil
		}

		sumOutgoingLKBasis := zeroDecimal
		for _, mvmt := range out.Movements {
			mvmt.ProceedsLK = neg(mvmt.CostBasisLK)
			sumOutgoingLKBasis = sumOutgoingLKBasis.Add(mvmt.CostBasisLK)
		}
		for _, mvmt := range in.Movements {
			lk := neg(round2(sumOutgoingLKBasis.Mul(mvmt.RatioToIncomingInAR)))
			mvmt.CostBasisLK = lk
			mvmt.ProceedsLK = neg(lk)
		}

	case Flow:
		if len(tx.ActionRecordKeys) != 2 {
			return nil
		}
		_, in, err := outgoingAndIncomingARs(tx, l)
		if err != nil {
			return err
		}
		inAcct := l.Accounts[in.AccountKey]
		if inAcct.Raw.IsMargin {
			return nil
		}
		for _, mvmt := range in.Movements {
			mvmt.CostBasis = zeroDecimal
			mvmt.Proceeds = zeroDecimal
		}

	case ToSelf:
		// no-op: basis already carried in the builder's allocator and in
		// likeKindCarryForward.
	}
	return nil
}
