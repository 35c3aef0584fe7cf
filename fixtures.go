package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// yamlAccount, yamlLeg, and yamlTransaction mirror a human-authored YAML
// description of a whole ledger, the same role the blinklabs-io-shai
// config package's YAML file plays for its configuration: a readable
// document parsed straight into the engine's own types, useful for
// building larger regression fixtures than a Go literal comfortably
// expresses.
type yamlAccount struct {
	Num    int    `yaml:"num"`
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
	Margin bool   `yaml:"margin"`
}

type yamlLeg struct {
	Account int    `yaml:"account"`
	Amount  string `yaml:"amount"`
}

type yamlTransaction struct {
	Num      int       `yaml:"num"`
	Date     string    `yaml:"date"`
	Memo     string    `yaml:"memo"`
	Proceeds string    `yaml:"proceeds"`
	Legs     []yamlLeg `yaml:"legs"`
}

type transactionSetYAML struct {
	Accounts     []yamlAccount     `yaml:"accounts"`
	Transactions []yamlTransaction `yaml:"transactions"`
}

// LoadTransactionSetYAML parses a YAML document describing raw accounts
// and transactions into the maps NewLedger expects. Action record keys are
// assigned densely in the order legs appear, transaction by transaction.
// Leg amounts and transaction proceeds are decimal strings (e.g. "0.25",
// "-220.00").
func LoadTransactionSetYAML(data []byte) (
	map[AccountNum]*RawAccount,
	map[ActionRecordKey]*ActionRecord,
	map[TxNum]*Transaction,
	error,
) {
	var doc transactionSetYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, parameterFatal("invalid transaction set YAML: %s", err)
	}

	rawAccounts := make(map[AccountNum]*RawAccount, len(doc.Accounts))
	for _, a := range doc.Accounts {
		rawAccounts[AccountNum(a.Num)] = &RawAccount{
			Num:      AccountNum(a.Num),
			Name:     a.Name,
			Ticker:   a.Ticker,
			IsMargin: a.Margin,
		}
	}

	actionRecords := make(map[ActionRecordKey]*ActionRecord)
	transactions := make(map[TxNum]*Transaction, len(doc.Transactions))
	var nextARKey ActionRecordKey = 1

	for _, t := range doc.Transactions {
		date, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return nil, nil, nil, parameterFatal("tx #%d: invalid date %q: %s", t.Num, t.Date, err)
		}
		proceeds := zeroDecimal
		if t.Proceeds != "" {
			proceeds, err = decimal.NewFromString(t.Proceeds)
			if err != nil {
				return nil, nil, nil, parameterFatal("tx #%d: invalid proceeds %q: %s", t.Num, t.Proceeds, err)
			}
		}

		tx := &Transaction{
			Num:      TxNum(t.Num),
			Date:     date,
			Memo:     t.Memo,
			Proceeds: proceeds,
		}
		for _, leg := range t.Legs {
			amt, err := decimal.NewFromString(leg.Amount)
			if err != nil {
				return nil, nil, nil, parameterFatal("tx #%d: invalid leg amount %q: %s", t.Num, leg.Amount, err)
			}
			ar := &ActionRecord{
				Key:        nextARKey,
				AccountKey: AccountNum(leg.Account),
				Amount:     amt,
				TxKey:      tx.Num,
			}
			actionRecords[nextARKey] = ar
			tx.ActionRecordKeys = append(tx.ActionRecordKeys, nextARKey)
			nextARKey++
		}
		transactions[tx.Num] = tx
	}

	return rawAccounts, actionRecords, transactions, nil
}
