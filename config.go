package ledger

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EngineConfig mirrors Params as environment-loadable defaults, for
// callers that want to drive the engine from the process environment
// rather than constructing Params programmatically. The CSV/wizard/CLI
// layer that would normally populate this lives outside this package;
// this loader exists so that boundary has somewhere to plug in.
type EngineConfig struct {
	HomeCurrencyTicker string `envconfig:"HOME_CURRENCY_TICKER" default:"USD"`
	CostingMethod      string `envconfig:"COSTING_METHOD" default:"LIFObyLotCreationDate"`
	LikeKindElection   bool   `envconfig:"LIKE_KIND_ELECTION" default:"false"`
	LikeKindCutoff     string `envconfig:"LIKE_KIND_CUTOFF" default:"2017-12-31"`
	PreserveBasisDate  bool   `envconfig:"PRESERVE_BASIS_DATE" default:"false"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfigFromEnv reads an EngineConfig from the process environment
// using "LEDGER" as the envconfig prefix (e.g. LEDGER_HOME_CURRENCY_TICKER).
func LoadConfigFromEnv() (*EngineConfig, error) {
	cfg := &EngineConfig{}
	if err := envconfig.Process("ledger", cfg); err != nil {
		return nil, parameterFatal("error processing environment: %s", err)
	}
	return cfg, nil
}

// ToParams converts the loaded configuration into Params, resolving the
// costing-method name and cutoff date. Callers still own AccountNum keys,
// action records, and transactions; this only resolves the scalar import
// parameters.
func (c *EngineConfig) ToParams() (Params, error) {
	method, err := ParseInventoryCostingMethod(c.CostingMethod)
	if err != nil {
		return Params{}, err
	}
	cutoff, err := time.Parse("2006-01-02", c.LikeKindCutoff)
	if err != nil {
		return Params{}, parameterFatal("invalid like-kind cutoff date %q: %s", c.LikeKindCutoff, err)
	}
	return Params{
		HomeCurrencyTicker: c.HomeCurrencyTicker,
		CostingMethod:      method,
		LikeKindElection:   c.LikeKindElection,
		LikeKindCutoff:     cutoff,
		PreserveBasisDate:  c.PreserveBasisDate,
	}, nil
}
