package ledger

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
)

func simpleExchangeAndSaleParams() Params {
	return Params{HomeCurrencyTicker: "USD", CostingMethod: LIFOByLotCreationDate}
}

// A BTC purchase followed by a full sale of the same lot nets to zero
// balance, with the sale's cost basis equal to the original purchase
// price and a short-term gain equal to proceeds minus basis.
func TestSimpleExchangeAndSale(t *testing.T) {
	g := NewGomegaWithT(t)

	fb := newFixtureBuilder()
	btc := fb.account("Bitcoin", "BTC", false)
	usd := fb.account("US Dollar", "USD", false)

	fb.tx(1, d("2016-01-01"), "buy BTC", dec("220"),
		leg{btc, dec("0.25")}, leg{usd, dec("-220")})
	fb.tx(2, d("2016-02-01"), "sell BTC", dec("250"),
		leg{btc, dec("-0.25")}, leg{usd, dec("250")})

	l, err := fb.build(simpleExchangeAndSaleParams())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run()).To(Succeed())

	btcAcct := l.Accounts[btc]
	g.Expect(btcAcct.Lots).To(HaveLen(1))
	lot := btcAcct.Lots[0]
	g.Expect(lot.Movements).To(HaveLen(2))
	g.Expect(lot.Balance().IsZero()).To(BeTrue())

	lotCostBasisSum := lot.Movements[0].CostBasis.Add(lot.Movements[1].CostBasis)
	g.Expect(lotCostBasisSum.IsZero()).To(BeTrue())

	sellMvmt := lot.Movements[1]
	g.Expect(sellMvmt.CostBasis.Equal(dec("-220"))).To(BeTrue())
	g.Expect(sellMvmt.Proceeds.Equal(dec("250"))).To(BeTrue())
	gain := sellMvmt.Proceeds.Add(sellMvmt.CostBasis)
	g.Expect(gain.Equal(dec("30"))).To(BeTrue())
	g.Expect(l.Term(sellMvmt, d("2016-02-01"))).To(Equal(ST))
}

// A disposal larger than any single lot draws down three FIFO lots in
// order, splitting proceeds proportionally across each partial movement.
func TestMultiLotFIFODisposal(t *testing.T) {
	g := NewGomegaWithT(t)

	fb := newFixtureBuilder()
	btc := fb.account("Bitcoin", "BTC", false)
	usd := fb.account("US Dollar", "USD", false)

	fb.tx(1, d("2016-01-01"), "buy 1", dec("220"), leg{btc, dec("0.25")}, leg{usd, dec("-220")})
	fb.tx(2, d("2016-03-01"), "buy 2", dec("160"), leg{btc, dec("0.3")}, leg{usd, dec("-160")})
	fb.tx(3, d("2016-04-01"), "buy 3", dec("210"), leg{btc, dec("0.3")}, leg{usd, dec("-210")})
	fb.tx(4, d("2016-07-01"), "sell", dec("200"), leg{btc, dec("-0.6")}, leg{usd, dec("200")})

	params := Params{HomeCurrencyTicker: "USD", CostingMethod: FIFOByLotCreationDate}
	l, err := fb.build(params)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run()).To(Succeed())

	sellAR := l.ActionRecords[l.Transactions[4].ActionRecordKeys[0]]
	g.Expect(sellAR.Movements).To(HaveLen(3))

	m1, m2, m3 := sellAR.Movements[0], sellAR.Movements[1], sellAR.Movements[2]
	g.Expect(m1.Amount.Equal(dec("-0.25"))).To(BeTrue())
	g.Expect(m1.CostBasis.Equal(dec("-220"))).To(BeTrue())
	g.Expect(m1.Proceeds.Equal(dec("83.33"))).To(BeTrue())

	g.Expect(m2.Amount.Equal(dec("-0.3"))).To(BeTrue())
	g.Expect(m2.CostBasis.Equal(dec("-160"))).To(BeTrue())
	g.Expect(m2.Proceeds.Equal(dec("100.00"))).To(BeTrue())

	g.Expect(m3.Amount.Equal(dec("-0.05"))).To(BeTrue())
	g.Expect(m3.CostBasis.Equal(dec("-35.00"))).To(BeTrue())
	g.Expect(m3.Proceeds.Equal(dec("16.67"))).To(BeTrue())

	totalProceeds := m1.Proceeds.Add(m2.Proceeds).Add(m3.Proceeds)
	totalBasis := m1.CostBasis.Add(m2.CostBasis).Add(m3.CostBasis)
	g.Expect(totalProceeds.Equal(dec("200.00"))).To(BeTrue())
	g.Expect(totalBasis.Equal(dec("-415.00"))).To(BeTrue())
	g.Expect(totalProceeds.Add(totalBasis).Equal(dec("-215.00"))).To(BeTrue())
}

// A self-transfer that loses a small fee in transit nets to zero gain on
// the outgoing leg, with the destination wallet's new lot taking the
// source lot's creation date as its basis date and carrying its basis.
func TestToSelfWithFee(t *testing.T) {
	g := NewGomegaWithT(t)

	fb := newFixtureBuilder()
	acctA := fb.account("Wallet A", "BTC", false)
	acctB := fb.account("Wallet B", "BTC", false)
	usd := fb.account("US Dollar", "USD", false)
	_ = usd

	fb.tx(1, d("2016-01-01"), "fund A", dec("500"), leg{acctA, dec("1.0")}, leg{usd, dec("-500")})
	fb.tx(2, d("2016-06-01"), "move to B, fee taken", zeroDecimal, leg{acctA, dec("-1.0")}, leg{acctB, dec("0.99")})

	l, err := fb.build(simpleExchangeAndSaleParams())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run()).To(Succeed())

	outAR := l.ActionRecords[l.Transactions[2].ActionRecordKeys[0]]
	inAR := l.ActionRecords[l.Transactions[2].ActionRecordKeys[1]]
	g.Expect(outAR.Movements).To(HaveLen(1))
	g.Expect(inAR.Movements).To(HaveLen(1))

	outMvmt := outAR.Movements[0]
	inMvmt := inAR.Movements[0]

	// ToSelf nets to zero gain on the outgoing leg: proceeds = -cost_basis.
	g.Expect(outMvmt.CostBasis.Equal(dec("-500"))).To(BeTrue())
	g.Expect(outMvmt.Proceeds.Equal(dec("500"))).To(BeTrue())
	g.Expect(outMvmt.Proceeds.Add(outMvmt.CostBasis).IsZero()).To(BeTrue())

	g.Expect(inMvmt.CostBasis.Equal(dec("500.00"))).To(BeTrue())
	g.Expect(inMvmt.Proceeds.Equal(dec("-500.00"))).To(BeTrue())

	bAcct := l.Accounts[acctB]
	g.Expect(bAcct.Lots).To(HaveLen(1))
	g.Expect(bAcct.Lots[0].BasisDate).To(Equal(d("2016-01-01")))
}

// Two buys accumulate into a single XMR margin-base lot (the pair's shared
// lot opens automatically on the first buy, since both sides start flat).
// Settling the BTC quote side out to a spot BTC wallet splits the incoming
// amount across two new spot lots, one per buy, each inheriting that buy's
// date as its basis date. Because the election is active and the
// settlement falls within the cutoff, the election zeroes the incoming
// leg's basis/proceeds outright (gain deferred), on top of the
// carry-forward already zeroing the lk pair.
func TestMarginProfitWithdrawalDualARFlow(t *testing.T) {
	g := NewGomegaWithT(t)

	fb := newFixtureBuilder()
	usd := fb.account("US Dollar", "USD", false)
	xmrBase := fb.account("XMR margin base", "XMR", true)
	btcQuote := fb.account("BTC_xmr margin quote", "BTC_xmr", true)
	btcSpot := fb.account("BTC spot", "BTC", false)
	_ = usd

	fb.tx(1, d("2017-03-01"), "buy 1", zeroDecimal, leg{xmrBase, dec("0.2")}, leg{btcQuote, dec("-0.2")})
	fb.tx(2, d("2017-04-01"), "buy 2", zeroDecimal, leg{xmrBase, dec("0.3")}, leg{btcQuote, dec("-0.3")})
	// settle: withdraw quote-currency profit from the margin position to spot.
	fb.tx(3, d("2017-06-01"), "settle to spot", dec("1000"),
		leg{btcQuote, dec("-0.5")}, leg{btcSpot, dec("0.5")})

	params := Params{
		HomeCurrencyTicker: "USD",
		CostingMethod:      LIFOByLotCreationDate,
		LikeKindElection:   true,
		LikeKindCutoff:     d("2017-12-31"),
		PreserveBasisDate:  true,
	}
	l, err := fb.build(params)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(l.Run()).To(Succeed())

	spotAcct := l.Accounts[btcSpot]
	g.Expect(spotAcct.Lots).To(HaveLen(2))

	lotA, lotB := spotAcct.Lots[0], spotAcct.Lots[1]
	g.Expect(lotA.BasisDate).To(Equal(d("2017-03-01")))
	g.Expect(lotA.Movements[0].Amount.Equal(dec("0.2"))).To(BeTrue())

	g.Expect(lotB.BasisDate).To(Equal(d("2017-04-01")))
	g.Expect(lotB.Movements[0].Amount.Equal(dec("0.3"))).To(BeTrue())

	for _, lot := range []*Lot{lotA, lotB} {
		m := lot.Movements[0]
		g.Expect(m.CostBasis.IsZero()).To(BeTrue())
		g.Expect(m.Proceeds.IsZero()).To(BeTrue())
		g.Expect(m.CostBasisLK.IsZero()).To(BeTrue())
		g.Expect(m.ProceedsLK.IsZero()).To(BeTrue())
	}
}

// An outgoing disposal larger than the account's total balance is rejected
// as an overdraft naming the transaction and the current balance.
func TestOverdraft(t *testing.T) {
	g := NewGomegaWithT(t)

	fb := newFixtureBuilder()
	btc := fb.account("Bitcoin", "BTC", false)
	usd := fb.account("US Dollar", "USD", false)

	fb.tx(1, d("2016-01-01"), "buy", dec("264"), leg{btc, dec("0.3")}, leg{usd, dec("-264")})
	fb.tx(2, d("2016-02-01"), "oversell", dec("400"), leg{btc, dec("-0.5")}, leg{usd, dec("400")})

	l, err := fb.build(simpleExchangeAndSaleParams())
	g.Expect(err).NotTo(HaveOccurred())

	err = l.Run()
	g.Expect(err).To(HaveOccurred())

	var engineErr *EngineError
	g.Expect(errors.As(err, &engineErr)).To(BeTrue())
	g.Expect(engineErr.Kind).To(Equal(LedgerFatal))
	g.Expect(engineErr.TxNum).To(Equal(TxNum(2)))
	g.Expect(engineErr.Error()).To(ContainSubstring("0.30000000"))
}
