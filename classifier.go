package ledger

// Classify derives a transaction's TxType from its action-record count and
// the tickers of the accounts the ARs reference.
func Classify(tx *Transaction, l *Ledger) (TxType, error) {
	switch len(tx.ActionRecordKeys) {
	case 1:
		return Flow, nil
	case 2:
		return classifyTwoARs(tx, l)
	default:
		return 0, ledgerFatal(tx.Num, "transaction has %d action records, expected 1 or 2", len(tx.ActionRecordKeys))
	}
}

func classifyTwoARs(tx *Transaction, l *Ledger) (TxType, error) {
	out, in, err := outgoingAndIncomingARs(tx, l)
	if err != nil {
		return 0, err
	}
	outAcct := l.Accounts[out.AccountKey]
	inAcct := l.Accounts[in.AccountKey]

	if outAcct.Raw.BaseTicker() == inAcct.Raw.BaseTicker() {
		if outAcct.Raw.IsMargin != inAcct.Raw.IsMargin {
			return Flow, nil
		}
		return ToSelf, nil
	}
	return Exchange, nil
}

// outgoingAndIncomingARs returns a two-AR transaction's legs as (outgoing,
// incoming), asserting they have opposite polarity. Callers are expected
// to list the outgoing AR first when two ARs are present, but this looks
// at the signs directly rather than trusting position, so a malformed
// same-polarity pair is still caught here.
func outgoingAndIncomingARs(tx *Transaction, l *Ledger) (out, in *ActionRecord, err error) {
	if len(tx.ActionRecordKeys) != 2 {
		return nil, nil, ledgerFatal(tx.Num, "expected exactly 2 action records, got %d", len(tx.ActionRecordKeys))
	}
	a := l.ActionRecords[tx.ActionRecordKeys[0]]
	b := l.ActionRecords[tx.ActionRecordKeys[1]]
	if a.Polarity() == b.Polarity() {
		return nil, nil, ledgerFatal(tx.Num, "both action records have polarity %s", a.Polarity())
	}
	if a.Polarity() == Outgoing {
		return a, b, nil
	}
	return b, a, nil
}

// baseAndQuoteARs identifies, for a two-margin Exchange, which AR is the
// base and which is the quote. The quote account's ticker contains an
// underscore (e.g. "BTC_xmr"); the other account is the base.
func baseAndQuoteARs(tx *Transaction, l *Ledger) (base, quote *ActionRecord, err error) {
	if len(tx.ActionRecordKeys) != 2 {
		return nil, nil, ledgerFatal(tx.Num, "expected exactly 2 action records for a margin exchange, got %d", len(tx.ActionRecordKeys))
	}
	a := l.ActionRecords[tx.ActionRecordKeys[0]]
	b := l.ActionRecords[tx.ActionRecordKeys[1]]
	aAcct := l.Accounts[a.AccountKey]
	bAcct := l.Accounts[b.AccountKey]

	switch {
	case aAcct.Raw.IsQuoteTicker() && !bAcct.Raw.IsQuoteTicker():
		return b, a, nil
	case bAcct.Raw.IsQuoteTicker() && !aAcct.Raw.IsQuoteTicker():
		return a, b, nil
	default:
		return nil, nil, ledgerFatal(tx.Num, "margin exchange requires exactly one account with an underscore in its ticker (accounts %q, %q)",
			aAcct.Raw.Ticker, bAcct.Raw.Ticker)
	}
}
