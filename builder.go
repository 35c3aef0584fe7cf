package ledger

import "github.com/shopspring/decimal"

// BuildLotsAndMovements is the sequential pass that creates lots and posts
// movements for every transaction, in ascending transaction number. It is
// the largest and most intricate component of the engine.
func (l *Ledger) BuildLotsAndMovements() error {
	for _, txNum := range l.orderedTxNums() {
		tx := l.Transactions[txNum]
		if err := l.buildTransaction(tx); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) buildTransaction(tx *Transaction) error {
	switch len(tx.ActionRecordKeys) {
	case 1:
		ar := l.ActionRecords[tx.ActionRecordKeys[0]]
		return l.buildSingleAR(tx, ar, Flow)
	case 2:
		txType, err := Classify(tx, l)
		if err != nil {
			return err
		}
		if txType == Exchange && tx.HasMargin(l) == TwoARs {
			return l.buildTwoMarginExchange(tx)
		}
		out, in, err := outgoingAndIncomingARs(tx, l)
		if err != nil {
			return err
		}
		// The outgoing leg is always built first: several incoming
		// dispatch rules (ToSelf, like-kind Exchange, margin dual-AR
		// flow) read the outgoing AR's already-posted movements.
		if err := l.buildSingleAR(tx, out, txType); err != nil {
			return err
		}
		return l.buildSingleAR(tx, in, txType)
	default:
		return ledgerFatal(tx.Num, "transaction has %d action records, expected 1 or 2", len(tx.ActionRecordKeys))
	}
}

// buildSingleAR dispatches one action record to its builder rule, given
// the already-derived type of the transaction it belongs to.
func (l *Ledger) buildSingleAR(tx *Transaction, ar *ActionRecord, txType TxType) error {
	acct := l.Accounts[ar.AccountKey]

	if l.IsHomeAccount(ar.AccountKey) {
		return l.buildHomeCurrencyAR(tx, ar, acct)
	}

	polarity := ar.Polarity()

	if acct.Raw.IsMargin {
		if polarity == Outgoing {
			return l.buildMarginOutgoing(tx, ar, acct)
		}
		if txType != Flow {
			return ledgerFatal(tx.Num, "margin account %s cannot receive an incoming %s movement", acct.Raw.Ticker, txType)
		}
		return l.buildMarginIncomingFlow(tx, ar, acct)
	}

	if polarity == Outgoing {
		return l.buildNonMarginOutgoing(tx, ar, acct)
	}

	switch txType {
	case Flow:
		if len(tx.ActionRecordKeys) == 2 {
			return l.buildNonMarginIncomingFlowDualAR(tx, ar, acct)
		}
		return l.buildNonMarginIncomingFlowSingleAR(tx, ar, acct)
	case Exchange:
		return l.buildNonMarginIncomingExchange(tx, ar, acct)
	case ToSelf:
		return l.buildNonMarginIncomingToSelf(tx, ar, acct)
	default:
		return ledgerFatal(tx.Num, "unreachable transaction type %s for incoming non-margin account", txType)
	}
}

// buildTwoMarginExchange is branch (a): a two-margin Exchange where both
// legs reference margin accounts (e.g. opening or adjusting a margin
// position). A shared pair of lots is opened only when both sides are
// flat; otherwise the existing last lot on each side is reused.
func (l *Ledger) buildTwoMarginExchange(tx *Transaction) error {
	base, quote, err := baseAndQuoteARs(tx, l)
	if err != nil {
		return err
	}
	baseAcct := l.Accounts[base.AccountKey]
	quoteAcct := l.Accounts[quote.AccountKey]

	if len(baseAcct.Lots) != len(quoteAcct.Lots) {
		return internalAssertion(tx.Num, "margin pair lot-count mismatch: %s has %d lots, %s has %d",
			baseAcct.Raw.Ticker, len(baseAcct.Lots), quoteAcct.Raw.Ticker, len(quoteAcct.Lots))
	}

	baseFlat := baseAcct.LastLot() == nil || baseAcct.LastLot().Balance().IsZero()
	quoteFlat := quoteAcct.LastLot() == nil || quoteAcct.LastLot().Balance().IsZero()
	if baseFlat && quoteFlat {
		baseAcct.pushLot(NewLot(baseAcct.RawKey, tx.Date, tx.Date))
		quoteAcct.pushLot(NewLot(quoteAcct.RawKey, tx.Date, tx.Date))
	}

	baseLot := baseAcct.LastLot()
	quoteLot := quoteAcct.LastLot()

	baseMvmt := NewMovement(base.Amount, tx.Date, tx.Num, base.Key)
	baseLot.push(baseMvmt)
	base.pushMovement(baseMvmt)

	quoteMvmt := NewMovement(quote.Amount, tx.Date, tx.Num, quote.Key)
	quoteLot.push(quoteMvmt)
	quote.pushMovement(quoteMvmt)

	return nil
}

// buildHomeCurrencyAR is branch (b): the home-currency account has at
// most one lot ever, created lazily on first use, and every movement
// posts to that single lot (which may go negative).
func (l *Ledger) buildHomeCurrencyAR(tx *Transaction, ar *ActionRecord, acct *Account) error {
	if len(acct.Lots) == 0 {
		acct.pushLot(NewLot(acct.RawKey, tx.Date, tx.Date))
	}
	lot := acct.LastLot()
	mvmt := NewMovement(ar.Amount, tx.Date, tx.Num, ar.Key)
	lot.push(mvmt)
	ar.pushMovement(mvmt)
	return nil
}

// buildMarginOutgoing posts a single movement of the full AR amount to the
// margin account's last lot, closing its balance toward (or further past)
// zero.
func (l *Ledger) buildMarginOutgoing(tx *Transaction, ar *ActionRecord, acct *Account) error {
	lot := acct.LastLot()
	if lot == nil {
		return ledgerFatal(tx.Num, "margin account %s has no lot to post an outgoing movement to", acct.Raw.Ticker)
	}
	mvmt := NewMovement(ar.Amount, tx.Date, tx.Num, ar.Key)
	lot.push(mvmt)
	ar.pushMovement(mvmt)
	return nil
}

// buildMarginIncomingFlow posts a single movement of the full AR amount to
// the margin account's last lot (e.g. the margin side of a profit/loss
// settlement).
func (l *Ledger) buildMarginIncomingFlow(tx *Transaction, ar *ActionRecord, acct *Account) error {
	lot := acct.LastLot()
	if lot == nil {
		return ledgerFatal(tx.Num, "margin account %s has no lot to post an incoming movement to", acct.Raw.Ticker)
	}
	mvmt := NewMovement(ar.Amount, tx.Date, tx.Num, ar.Key)
	lot.push(mvmt)
	ar.pushMovement(mvmt)
	return nil
}

// buildNonMarginOutgoing consumes the outgoing amount through the
// account's lots in costing-method order, splitting across as many lots
// as needed, walked iteratively with a running remainder.
func (l *Ledger) buildNonMarginOutgoing(tx *Transaction, ar *ActionRecord, acct *Account) error {
	if len(acct.Lots) == 0 {
		return ledgerFatal(tx.Num, "no lots available in account %s to satisfy outgoing amount %s", acct.Raw.Ticker, round8(ar.Amount))
	}

	totalBefore := acct.Balance()
	order := orderedLotIndices(acct, l.Params.CostingMethod)
	remaining := ar.Amount

	for _, idx := range order {
		if remaining.IsZero() {
			break
		}
		lot := acct.Lots[idx]
		balance := lot.Balance()
		if balance.IsZero() {
			continue
		}
		if remaining.Add(balance).GreaterThanOrEqual(zeroDecimal) {
			mvmt := NewMovement(remaining, tx.Date, tx.Num, ar.Key)
			mvmt.RatioToOutgoingInAR = round8(remaining.Abs().Div(ar.Amount.Abs()))
			lot.push(mvmt)
			ar.pushMovement(mvmt)
			remaining = zeroDecimal
			break
		}
		mvmt := NewMovement(neg(balance), tx.Date, tx.Num, ar.Key)
		mvmt.RatioToOutgoingInAR = round8(balance.Abs().Div(ar.Amount.Abs()))
		lot.push(mvmt)
		ar.pushMovement(mvmt)
		remaining = remaining.Add(balance)
	}

	if !remaining.IsZero() {
		return ledgerFatal(tx.Num, "overdraft: cannot satisfy outgoing amount %s %s, balance is only %s",
			round8(ar.Amount.Abs()), acct.Raw.Ticker, round8(totalBefore).StringFixed(amountPrecision))
	}
	return nil
}

// buildNonMarginIncomingFlowSingleAR is the incoming Flow base case: open
// one new lot with basis-date = the transaction date and post the full
// amount to it.
func (l *Ledger) buildNonMarginIncomingFlowSingleAR(tx *Transaction, ar *ActionRecord, acct *Account) error {
	lot := NewLot(acct.RawKey, tx.Date, tx.Date)
	acct.pushLot(lot)
	mvmt := NewMovement(ar.Amount, tx.Date, tx.Num, ar.Key)
	mvmt.RatioToIncomingInAR = oneDecimal
	lot.push(mvmt)
	ar.pushMovement(mvmt)
	return nil
}

// buildNonMarginIncomingFlowDualAR handles a margin profit/loss withdrawal
// to spot. When like-kind is elected, within the cutoff, and basis-date
// preservation is requested, the incoming amount is split proportionally
// across the positive movements of the margin base account's current lot,
// so each new spot lot inherits the corresponding buy's date as its basis
// date. Otherwise it falls back to a single new lot dated at the
// transaction date.
func (l *Ledger) buildNonMarginIncomingFlowDualAR(tx *Transaction, ar *ActionRecord, acct *Account) error {
	splitEligible := l.Params.LikeKindElection && l.Params.PreserveBasisDate && !tx.Date.After(l.Params.LikeKindCutoff)
	if !splitEligible {
		return l.buildNonMarginIncomingFlowSingleAR(tx, ar, acct)
	}

	out, _, err := outgoingAndIncomingARs(tx, l)
	if err != nil {
		return err
	}
	if len(out.Movements) == 0 {
		return internalAssertion(tx.Num, "outgoing margin action record has no movements yet")
	}
	outAcct := l.Accounts[out.AccountKey]
	firstOutMvmt := out.Movements[0]
	settlingLot := outAcct.Lots[firstOutMvmt.LotNum-1]
	firstLotMvmt := settlingLot.FirstMovement()
	originTx := l.Transactions[firstLotMvmt.TxKey]

	baseAR, _, err := baseAndQuoteARs(originTx, l)
	if err != nil {
		return l.buildNonMarginIncomingFlowSingleAR(tx, ar, acct)
	}
	baseAcct := l.Accounts[baseAR.AccountKey]
	baseLot := baseAcct.LastLot()
	if baseLot == nil {
		return l.buildNonMarginIncomingFlowSingleAR(tx, ar, acct)
	}
	positives := baseLot.PositiveMovements()
	if len(positives) == 0 {
		return l.buildNonMarginIncomingFlowSingleAR(tx, ar, acct)
	}

	total := zeroDecimal
	for _, p := range positives {
		total = total.Add(p.Amount)
	}

	amountsUsed := zeroDecimal
	percentagesUsed := zeroDecimal
	for i, pos := range positives {
		lot := NewLot(acct.RawKey, tx.Date, pos.TxDate)
		acct.pushLot(lot)

		var amt, pct decimal.Decimal
		if i == len(positives)-1 {
			amt = round8(ar.Amount.Sub(amountsUsed))
			pct = round8(oneDecimal.Sub(percentagesUsed))
		} else {
			pct = round8(pos.Amount.Div(total))
			amt = round8(ar.Amount.Mul(pct))
		}

		mvmt := NewMovement(amt, tx.Date, tx.Num, ar.Key)
		mvmt.RatioToIncomingInAR = pct
		lot.push(mvmt)
		ar.pushMovement(mvmt)

		amountsUsed = amountsUsed.Add(amt)
		percentagesUsed = percentagesUsed.Add(pct)
	}
	return nil
}

// buildNonMarginIncomingExchange opens one new lot (basis-date = tx date)
// unless like-kind is elected, within the cutoff, and both legs of the
// exchange are non-home-currency, in which case the self-transfer
// allocator splits the incoming amount across lots inheriting the
// outgoing movements' lot creation dates.
func (l *Ledger) buildNonMarginIncomingExchange(tx *Transaction, ar *ActionRecord, acct *Account) error {
	out, _, err := outgoingAndIncomingARs(tx, l)
	if err != nil {
		return err
	}
	if l.Params.LikeKindElection && !tx.Date.After(l.Params.LikeKindCutoff) &&
		!l.IsHomeAccount(out.AccountKey) && !l.IsHomeAccount(ar.AccountKey) {
		return l.allocateIncomingAcrossLots(tx, out, ar, acct)
	}
	lot := NewLot(acct.RawKey, tx.Date, tx.Date)
	acct.pushLot(lot)
	mvmt := NewMovement(ar.Amount, tx.Date, tx.Num, ar.Key)
	mvmt.RatioToIncomingInAR = oneDecimal
	lot.push(mvmt)
	ar.pushMovement(mvmt)
	return nil
}

// buildNonMarginIncomingToSelf always invokes the self-transfer allocator.
// Margin accounts must never appear on either side of a ToSelf.
func (l *Ledger) buildNonMarginIncomingToSelf(tx *Transaction, ar *ActionRecord, acct *Account) error {
	out, _, err := outgoingAndIncomingARs(tx, l)
	if err != nil {
		return err
	}
	if l.Accounts[out.AccountKey].Raw.IsMargin {
		return ledgerFatal(tx.Num, "margin account cannot appear in a ToSelf transaction")
	}
	return l.allocateIncomingAcrossLots(tx, out, ar, acct)
}

// allocateIncomingAcrossLots is the self-transfer / like-kind incoming
// allocator, shared by ToSelf and like-kind-eligible Exchange
// transactions. It walks the outgoing AR's movements in lot-creation
// order and opens one new incoming lot per outgoing movement, each
// inheriting that movement's lot's creation date as its basis-date; an
// outgoing movement other than the last whose incoming share rounds to
// zero gets no lot. The last movement absorbs any rounding drift so the allocated amounts and
// ratios sum exactly to the incoming AR's amount and 1, respectively.
func (l *Ledger) allocateIncomingAcrossLots(tx *Transaction, outAR, inAR *ActionRecord, inAcct *Account) error {
	outAcct := l.Accounts[outAR.AccountKey]
	movements := outAR.MovementsInLotDateOrder(outAcct)
	if len(movements) == 0 {
		return internalAssertion(tx.Num, "outgoing action record has no movements to allocate the incoming amount against")
	}
	outARAmountAbs := outAR.Amount.Abs()

	cumAmt := zeroDecimal
	cumRatio := zeroDecimal
	for i, outMvmt := range movements {
		sourceLot := outAcct.Lots[outMvmt.LotNum-1]

		if i == len(movements)-1 {
			incAmt := round8(inAR.Amount.Sub(cumAmt))
			ratio := round8(oneDecimal.Sub(cumRatio))
			newLot := NewLot(inAcct.RawKey, tx.Date, sourceLot.CreationDate)
			inAcct.pushLot(newLot)
			mvmt := NewMovement(incAmt, tx.Date, tx.Num, inAR.Key)
			mvmt.RatioToIncomingInAR = ratio
			newLot.push(mvmt)
			inAR.pushMovement(mvmt)
			break
		}

		ratio := round8(outMvmt.Amount.Abs().Div(outARAmountAbs))
		incAmt := round8(ratio.Mul(inAR.Amount))
		if incAmt.IsZero() {
			continue
		}
		newLot := NewLot(inAcct.RawKey, tx.Date, sourceLot.CreationDate)
		inAcct.pushLot(newLot)
		mvmt := NewMovement(incAmt, tx.Date, tx.Num, inAR.Key)
		mvmt.RatioToIncomingInAR = ratio
		newLot.push(mvmt)
		inAR.pushMovement(mvmt)

		cumAmt = cumAmt.Add(incAmt)
		cumRatio = cumRatio.Add(ratio)
	}
	return nil
}
