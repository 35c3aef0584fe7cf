package ledger

import (
	"sort"
	"strings"
	"time"
)

// Params are the import parameters that drive the builder and like-kind
// passes. HomeCurrencyTicker is matched case-insensitively against
// raw-account tickers and is stored uppercased.
type Params struct {
	HomeCurrencyTicker string
	CostingMethod      InventoryCostingMethod
	LikeKindElection   bool
	LikeKindCutoff     time.Time
	PreserveBasisDate  bool
}

// Ledger is the whole-ledger container the four-phase pipeline operates
// over: raw accounts, mutable accounts, action records, and transactions,
// each keyed by the integer id the importer assigned. The core never
// mints new account/AR/tx ids; it only appends lots and movements.
type Ledger struct {
	RawAccounts   map[AccountNum]*RawAccount
	Accounts      map[AccountNum]*Account
	ActionRecords map[ActionRecordKey]*ActionRecord
	Transactions  map[TxNum]*Transaction

	Params Params

	homeAccountKey AccountNum
}

// NewLedger validates and assembles a Ledger from the importer's pre-built
// entities. rawAccounts must be keyed densely from 1; actionRecords and
// transactions are taken as already validated.
func NewLedger(
	rawAccounts map[AccountNum]*RawAccount,
	actionRecords map[ActionRecordKey]*ActionRecord,
	transactions map[TxNum]*Transaction,
	params Params,
) (*Ledger, error) {
	if len(rawAccounts) == 0 {
		return nil, parameterFatal("no raw accounts supplied")
	}
	for i := 1; i <= len(rawAccounts); i++ {
		if _, ok := rawAccounts[AccountNum(i)]; !ok {
			return nil, parameterFatal("raw account numbers must be dense starting at 1, missing #%d", i)
		}
	}

	params.HomeCurrencyTicker = strings.ToUpper(params.HomeCurrencyTicker)

	l := &Ledger{
		RawAccounts:   rawAccounts,
		Accounts:      make(map[AccountNum]*Account, len(rawAccounts)),
		ActionRecords: actionRecords,
		Transactions:  transactions,
		Params:        params,
	}

	var homeKey AccountNum
	var foundHome bool
	for num, ra := range rawAccounts {
		ra.Num = num
		l.Accounts[num] = &Account{RawKey: num, Raw: ra}
		if strings.ToUpper(ra.Ticker) == params.HomeCurrencyTicker {
			homeKey = num
			foundHome = true
		}
	}
	if !foundHome {
		return nil, parameterFatal("home currency ticker %q does not match any raw account", params.HomeCurrencyTicker)
	}
	l.homeAccountKey = homeKey

	for key, ar := range actionRecords {
		ar.Key = key
	}
	for num, tx := range transactions {
		tx.Num = num
	}

	return l, nil
}

// IsHomeAccount reports whether the given account is the home-currency
// account.
func (l *Ledger) IsHomeAccount(acctKey AccountNum) bool {
	return acctKey == l.homeAccountKey
}

// orderedTxNums returns every transaction number in ascending order. Every
// pass sweeps transactions in this order and none re-orders them.
func (l *Ledger) orderedTxNums() []TxNum {
	nums := make([]TxNum, 0, len(l.Transactions))
	for n := range l.Transactions {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Run executes the full four-phase pipeline: lot-and-movement builder,
// basis pass, proceeds pass, and (if elected) the like-kind pass. It
// aborts at the first offending transaction; callers must not treat
// partially-populated results as valid on error.
func (l *Ledger) Run() error {
	logger := GetLogger()
	logger.Debug("running lot-and-movement builder")
	if err := l.BuildLotsAndMovements(); err != nil {
		logger.Error("builder failed", "error", err)
		return err
	}
	logger.Debug("running basis pass")
	if err := l.AddCostBasis(); err != nil {
		logger.Error("basis pass failed", "error", err)
		return err
	}
	logger.Debug("running proceeds pass")
	if err := l.AddProceeds(); err != nil {
		logger.Error("proceeds pass failed", "error", err)
		return err
	}
	if l.Params.LikeKindElection {
		logger.Debug("running like-kind pass")
		if err := l.ApplyLikeKindTreatment(); err != nil {
			logger.Error("like-kind pass failed", "error", err)
			return err
		}
	}
	return nil
}
