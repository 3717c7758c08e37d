// Package config provides configuration management for the strategy runner.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultStdDevWindow is the daily log-return window used for sigma
	// write thresholds when constants.daily_stddev_window is unset.
	defaultStdDevWindow = 30
	// defaultCashFund is used when cash_management.cash_fund is unset.
	defaultCashFund = "SGOV"
	// defaultCashThreshold is used for unset cash buy/sell thresholds.
	defaultCashThreshold = 10000
)

// ConfigurationError is a config problem that prevents a run from starting.
// Nothing is submitted when one of these is raised.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

// Errorf builds a ConfigurationError with fmt semantics.
func Errorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// Config represents the complete application configuration.
type Config struct {
	Environment     EnvironmentConfig     `yaml:"environment"`
	Account         AccountConfig         `yaml:"account"`
	Orders          OrdersConfig          `yaml:"orders"`
	Database        DatabaseConfig        `yaml:"database"`
	ExchangeHours   ExchangeHoursConfig   `yaml:"exchange_hours"`
	Constants       ConstantsConfig       `yaml:"constants"`
	Target          TargetConfig          `yaml:"target"`
	RollWhen        RollWhenConfig        `yaml:"roll_when"`
	WriteWhen       WriteWhenConfig       `yaml:"write_when"`
	Symbols         SymbolsConfig         `yaml:"symbols"`
	CashManagement  CashManagementConfig  `yaml:"cash_management"`
	VIXCallHedge    VIXCallHedgeConfig    `yaml:"vix_call_hedge"`
	RegimeRebalance RegimeRebalanceConfig `yaml:"regime_rebalance"`
	Run             RunConfig             `yaml:"run"`
}

// EnvironmentConfig defines process-level settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// AccountConfig identifies the trading account and its margin posture.
type AccountConfig struct {
	AccountID    string  `yaml:"account_id"`
	MarginUsage  float64 `yaml:"margin_usage"`
	CancelOrders *bool   `yaml:"cancel_orders"`
}

// AlgoConfig selects the execution algorithm for submitted orders.
type AlgoConfig struct {
	Strategy string `yaml:"strategy"` // limit | adaptive | vwap
}

// OrdersConfig defines order construction settings.
type OrdersConfig struct {
	MinimumCredit float64    `yaml:"minimum_credit"`
	Exchange      string     `yaml:"exchange"`
	Algo          AlgoConfig `yaml:"algo"`
	TIF           string     `yaml:"tif"`
}

// DatabaseConfig defines the local datastore.
type DatabaseConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ExchangeHoursConfig controls whether and when a run is allowed to act.
type ExchangeHoursConfig struct {
	Timezone         string `yaml:"timezone"`
	Open             string `yaml:"open"`  // "HH:MM"
	Close            string `yaml:"close"` // "HH:MM"
	ActionWhenClosed string `yaml:"action_when_closed"` // exit | continue | wait
	DelayAfterOpen   int    `yaml:"delay_after_open"`   // seconds
	DelayBeforeClose int    `yaml:"delay_before_close"` // seconds
	MaxWaitUntilOpen int    `yaml:"max_wait_until_open"` // seconds
}

// WriteThresholdOverride carries per-right overrides for the global write
// thresholds.
type WriteThresholdOverride struct {
	WriteThreshold      *float64 `yaml:"write_threshold"`
	WriteThresholdSigma *float64 `yaml:"write_threshold_sigma"`
}

// ConstantsConfig defines global strategy constants.
type ConstantsConfig struct {
	WriteThreshold      *float64                `yaml:"write_threshold"`
	WriteThresholdSigma *float64                `yaml:"write_threshold_sigma"`
	DailyStdDevWindow   int                     `yaml:"daily_stddev_window"` // days
	Calls               *WriteThresholdOverride `yaml:"calls"`
	Puts                *WriteThresholdOverride `yaml:"puts"`
}

// TargetConfig defines global contract targets.
type TargetConfig struct {
	DTE                        int      `yaml:"dte"`
	MaxDTE                     *int     `yaml:"max_dte"`
	Delta                      float64  `yaml:"delta"`
	MaximumNewContracts        *int     `yaml:"maximum_new_contracts"`
	MaximumNewContractsPercent *float64 `yaml:"maximum_new_contracts_percent"`
	Puts                       *struct {
		Delta *float64 `yaml:"delta"`
	} `yaml:"puts"`
	Calls *struct {
		Delta *float64 `yaml:"delta"`
	} `yaml:"calls"`
}

// RollWhenConfig defines the roll triggers.
type RollWhenConfig struct {
	DTE                 int      `yaml:"dte"`
	Pnl                 float64  `yaml:"pnl"`
	MinPnl              float64  `yaml:"min_pnl"`
	CloseAtPnl          *float64 `yaml:"close_at_pnl"`
	CloseIfUnableToRoll bool     `yaml:"close_if_unable_to_roll"`
	MaxDTE              *int     `yaml:"max_dte"`
	Calls               RollWhenCalls `yaml:"calls"`
	Puts                RollWhenPuts  `yaml:"puts"`
}

// RollWhenCalls are the call-specific roll triggers.
type RollWhenCalls struct {
	ITM                   *bool `yaml:"itm"`
	AlwaysWhenITM         bool  `yaml:"always_when_itm"`
	CreditOnly            bool  `yaml:"credit_only"`
	HasExcess             *bool `yaml:"has_excess"`
	MaintainHighWaterMark bool  `yaml:"maintain_high_water_mark"`
}

// RollWhenPuts are the put-specific roll triggers.
type RollWhenPuts struct {
	ITM           bool  `yaml:"itm"`
	AlwaysWhenITM bool  `yaml:"always_when_itm"`
	CreditOnly    bool  `yaml:"credit_only"`
	HasExcess     *bool `yaml:"has_excess"`
}

// WriteWhenConfig gates when new contracts may be written.
type WriteWhenConfig struct {
	CalculateNetContracts bool           `yaml:"calculate_net_contracts"`
	Calls                 WriteWhenCalls `yaml:"calls"`
	Puts                  WriteWhenPuts  `yaml:"puts"`
}

// WriteWhenCalls are call-side write gates.
type WriteWhenCalls struct {
	Green          *bool    `yaml:"green"`
	Red            *bool    `yaml:"red"`
	CapFactor      *float64 `yaml:"cap_factor"`
	CapTargetFloor *float64 `yaml:"cap_target_floor"`
	ExcessOnly     bool     `yaml:"excess_only"`
}

// WriteWhenPuts are put-side write gates.
type WriteWhenPuts struct {
	Green *bool `yaml:"green"`
	Red   *bool `yaml:"red"`
}

// SymbolWriteWhen overrides the green/red gates for one symbol and right.
type SymbolWriteWhen struct {
	Green *bool `yaml:"green"`
	Red   *bool `yaml:"red"`
}

// SymbolCalls are per-symbol call overrides.
type SymbolCalls struct {
	Delta                 *float64         `yaml:"delta"`
	WriteThreshold        *float64         `yaml:"write_threshold"`
	WriteThresholdSigma   *float64         `yaml:"write_threshold_sigma"`
	StrikeLimit           *float64         `yaml:"strike_limit"`
	CapFactor             *float64         `yaml:"cap_factor"`
	CapTargetFloor        *float64         `yaml:"cap_target_floor"`
	ExcessOnly            *bool            `yaml:"excess_only"`
	MaintainHighWaterMark *bool            `yaml:"maintain_high_water_mark"`
	WriteWhen             *SymbolWriteWhen `yaml:"write_when"`
}

// SymbolPuts are per-symbol put overrides.
type SymbolPuts struct {
	Delta               *float64         `yaml:"delta"`
	WriteThreshold      *float64         `yaml:"write_threshold"`
	WriteThresholdSigma *float64         `yaml:"write_threshold_sigma"`
	StrikeLimit         *float64         `yaml:"strike_limit"`
	WriteWhen           *SymbolWriteWhen `yaml:"write_when"`
}

// SymbolConfig defines one managed symbol.
type SymbolConfig struct {
	Weight              float64      `yaml:"weight"`
	PrimaryExchange     string       `yaml:"primary_exchange"`
	Delta               *float64     `yaml:"delta"`
	WriteThreshold      *float64     `yaml:"write_threshold"`
	WriteThresholdSigma *float64     `yaml:"write_threshold_sigma"`
	DTE                 *int         `yaml:"dte"`
	MaxDTE              *int         `yaml:"max_dte"`
	CloseIfUnableToRoll *bool        `yaml:"close_if_unable_to_roll"`
	NoTrading           *bool        `yaml:"no_trading"`
	Calls               *SymbolCalls `yaml:"calls"`
	Puts                *SymbolPuts  `yaml:"puts"`

	BuyOnlyRebalancing              *bool    `yaml:"buy_only_rebalancing"`
	BuyOnlyMinThresholdShares       *int     `yaml:"buy_only_min_threshold_shares"`
	BuyOnlyMinThresholdAmount       *float64 `yaml:"buy_only_min_threshold_amount"`
	BuyOnlyMinThresholdPercent      *float64 `yaml:"buy_only_min_threshold_percent"`
	SellOnlyRebalancing             *bool    `yaml:"sell_only_rebalancing"`
	SellOnlyMinThresholdShares      *int     `yaml:"sell_only_min_threshold_shares"`
	SellOnlyMinThresholdAmount      *float64 `yaml:"sell_only_min_threshold_amount"`
	SellOnlyMinThresholdPercent     *float64 `yaml:"sell_only_min_threshold_percent"`
}

// SymbolsConfig holds the managed symbols in declaration order. Order
// matters downstream: sequencing and stage resolution break ties by it.
type SymbolsConfig struct {
	Order    []string
	BySymbol map[string]*SymbolConfig
}

// UnmarshalYAML decodes the symbols mapping while preserving key order.
func (s *SymbolsConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("symbols must be a mapping of symbol to settings")
	}
	s.Order = nil
	s.BySymbol = make(map[string]*SymbolConfig, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, dup := s.BySymbol[key]; dup {
			return fmt.Errorf("symbols.%s declared twice", key)
		}
		var sc SymbolConfig
		if err := node.Content[i+1].Decode(&sc); err != nil {
			return fmt.Errorf("symbols.%s: %w", key, err)
		}
		s.Order = append(s.Order, key)
		s.BySymbol[key] = &sc
	}
	return nil
}

// Get returns the config for a symbol, or nil when unmanaged.
func (s *SymbolsConfig) Get(symbol string) *SymbolConfig {
	return s.BySymbol[symbol]
}

// CashManagementConfig sweeps excess cash into a fund.
type CashManagementConfig struct {
	Enabled           bool     `yaml:"enabled"`
	CashFund          string   `yaml:"cash_fund"`
	TargetCashBalance float64  `yaml:"target_cash_balance"`
	BuyThreshold      *float64 `yaml:"buy_threshold"`
	SellThreshold     *float64 `yaml:"sell_threshold"`
	PrimaryExchange   string   `yaml:"primary_exchange"`
}

// VIXAllocation is one tier of the VIX hedge allocation table, keyed on the
// VIXMO price.
type VIXAllocation struct {
	Weight     float64  `yaml:"weight"`
	LowerBound *float64 `yaml:"lower_bound"`
	UpperBound *float64 `yaml:"upper_bound"`
}

// VIXCallHedgeConfig buys long VIX calls as a tail hedge.
type VIXCallHedgeConfig struct {
	Enabled                   bool            `yaml:"enabled"`
	Delta                     float64         `yaml:"delta"`
	TargetDTE                 int             `yaml:"target_dte"`
	IgnoreDTE                 int             `yaml:"ignore_dte"`
	MaxDTE                    *int            `yaml:"max_dte"`
	CloseHedgesWhenVIXExceeds *float64        `yaml:"close_hedges_when_vix_exceeds"`
	Allocation                []VIXAllocation `yaml:"allocation"`
}

// RegimeWeightBase selects the denominator for rebalance weights.
type RegimeWeightBase string

const (
	// WeightBaseBuyingPower uses account buying power.
	WeightBaseBuyingPower RegimeWeightBase = "buying_power"
	// WeightBaseManagedStocks uses the value of managed stock positions.
	WeightBaseManagedStocks RegimeWeightBase = "managed_stocks"
	// WeightBaseNetLiqExOptions uses net liquidation minus option value.
	WeightBaseNetLiqExOptions RegimeWeightBase = "net_liq_ex_options"
)

// Valid returns true if the RegimeWeightBase is one of the defined constants.
func (b RegimeWeightBase) Valid() bool {
	switch b {
	case WeightBaseBuyingPower, WeightBaseManagedStocks, WeightBaseNetLiqExOptions:
		return true
	default:
		return false
	}
}

// RegimeRebalanceConfig drives regime-aware share rebalancing.
type RegimeRebalanceConfig struct {
	Enabled                   bool             `yaml:"enabled"`
	Symbols                   []string         `yaml:"symbols"`
	LookbackDays              int              `yaml:"lookback_days"`
	SoftBand                  float64          `yaml:"soft_band"`
	HardBand                  float64          `yaml:"hard_band"`
	HardBandRebalanceFraction float64          `yaml:"hard_band_rebalance_fraction"`
	CooldownDays              *int             `yaml:"cooldown_days"`
	ChoppinessMin             float64          `yaml:"choppiness_min"`
	EfficiencyMax             float64          `yaml:"efficiency_max"`
	FlowTradeMin              float64          `yaml:"flow_trade_min"`
	FlowImbalanceTau          float64          `yaml:"flow_imbalance_tau"`
	Eps                       float64          `yaml:"eps"`
	SharesOnly                bool             `yaml:"shares_only"`
	WeightBase                RegimeWeightBase `yaml:"weight_base"`
	OrderHistoryLookbackDays  int              `yaml:"order_history_lookback_days"`
}

// StageConfig declares one pipeline stage.
type StageConfig struct {
	ID        string   `yaml:"id"`
	DependsOn []string `yaml:"depends_on"`
	Enabled   *bool    `yaml:"enabled"`
}

// IsEnabled treats an unset enabled flag as true.
func (s *StageConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// RunConfig selects what a run executes: the strategies shorthand or an
// explicit stage graph, never both.
type RunConfig struct {
	Strategies []string      `yaml:"strategies"`
	Stages     []StageConfig `yaml:"stages"`
}

// Load reads, expands, parses, and validates the configuration file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, Errorf("parsing config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent,
// applying defaults along the way.
func (c *Config) Validate() error {
	c.normalize()

	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return Errorf("environment.log_level must be debug, info, warn, or error")
	}

	if c.Account.AccountID == "" {
		return Errorf("account.account_id is required")
	}
	if c.Account.MarginUsage < 0 {
		return Errorf("account.margin_usage must be >= 0")
	}

	switch c.Orders.Algo.Strategy {
	case "limit", "adaptive", "vwap":
	default:
		return Errorf("orders.algo.strategy must be limit, adaptive, or vwap")
	}
	if c.Orders.MinimumCredit < 0 {
		return Errorf("orders.minimum_credit must be >= 0")
	}

	switch c.ExchangeHours.ActionWhenClosed {
	case "exit", "continue", "wait":
	default:
		return Errorf("exchange_hours.action_when_closed must be exit, continue, or wait")
	}
	if _, err := time.LoadLocation(c.ExchangeHours.Timezone); err != nil {
		return Errorf("exchange_hours.timezone invalid: %v", err)
	}
	for _, hm := range []string{c.ExchangeHours.Open, c.ExchangeHours.Close} {
		if _, err := time.Parse("15:04", hm); err != nil {
			return Errorf("exchange_hours open/close must be HH:MM: %v", err)
		}
	}
	if c.ExchangeHours.DelayAfterOpen < 0 || c.ExchangeHours.DelayBeforeClose < 0 || c.ExchangeHours.MaxWaitUntilOpen < 0 {
		return Errorf("exchange_hours delays must be >= 0")
	}

	if err := c.validateThresholds(); err != nil {
		return err
	}

	if c.Target.DTE < 0 {
		return Errorf("target.dte must be >= 0")
	}
	if c.Target.Delta <= 0 || c.Target.Delta > 1 {
		return Errorf("target.delta must be in (0,1]")
	}
	if c.Target.MaxDTE != nil && *c.Target.MaxDTE < 1 {
		return Errorf("target.max_dte must be >= 1")
	}
	if c.Target.MaximumNewContracts != nil && *c.Target.MaximumNewContracts < 1 {
		return Errorf("target.maximum_new_contracts must be >= 1")
	}
	if p := *c.Target.MaximumNewContractsPercent; p < 0 || p > 1 {
		return Errorf("target.maximum_new_contracts_percent must be in [0,1]")
	}

	if c.RollWhen.DTE < 0 {
		return Errorf("roll_when.dte must be >= 0")
	}
	if c.RollWhen.Pnl < 0 || c.RollWhen.Pnl > 1 {
		return Errorf("roll_when.pnl must be in [0,1]")
	}
	if c.RollWhen.MaxDTE != nil && *c.RollWhen.MaxDTE < 1 {
		return Errorf("roll_when.max_dte must be >= 1")
	}

	if err := c.validateSymbols(); err != nil {
		return err
	}

	if c.CashManagement.Enabled && c.CashManagement.CashFund == "" {
		return Errorf("cash_management.cash_fund is required when enabled")
	}
	if c.CashManagement.TargetCashBalance < 0 {
		return Errorf("cash_management.target_cash_balance must be >= 0")
	}
	if *c.CashManagement.BuyThreshold < 0 || *c.CashManagement.SellThreshold < 0 {
		return Errorf("cash_management thresholds must be >= 0")
	}

	if err := c.validateVIXHedge(); err != nil {
		return err
	}
	if err := c.validateRegimeRebalance(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateThresholds() error {
	check := func(name string, threshold, sigma *float64) error {
		if threshold != nil && (*threshold < 0 || *threshold > 1) {
			return Errorf("%s.write_threshold must be in [0,1]", name)
		}
		if sigma != nil && *sigma <= 0 {
			return Errorf("%s.write_threshold_sigma must be > 0", name)
		}
		return nil
	}
	if err := check("constants", c.Constants.WriteThreshold, c.Constants.WriteThresholdSigma); err != nil {
		return err
	}
	if c.Constants.Calls != nil {
		if err := check("constants.calls", c.Constants.Calls.WriteThreshold, c.Constants.Calls.WriteThresholdSigma); err != nil {
			return err
		}
	}
	if c.Constants.Puts != nil {
		if err := check("constants.puts", c.Constants.Puts.WriteThreshold, c.Constants.Puts.WriteThresholdSigma); err != nil {
			return err
		}
	}
	if c.Constants.DailyStdDevWindow < 3 {
		return Errorf("constants.daily_stddev_window must be >= 3")
	}
	return nil
}

func (c *Config) validateSymbols() error {
	if len(c.Symbols.Order) == 0 {
		return Errorf("symbols must declare at least one symbol")
	}
	var totalWeight float64
	for _, symbol := range c.Symbols.Order {
		sc := c.Symbols.BySymbol[symbol]
		if sc.Weight < 0 || sc.Weight > 1 {
			return Errorf("symbols.%s.weight must be in [0,1]", symbol)
		}
		totalWeight += sc.Weight
		if sc.Delta != nil && (*sc.Delta <= 0 || *sc.Delta > 1) {
			return Errorf("symbols.%s.delta must be in (0,1]", symbol)
		}
		if sc.WriteThreshold != nil && (*sc.WriteThreshold < 0 || *sc.WriteThreshold > 1) {
			return Errorf("symbols.%s.write_threshold must be in [0,1]", symbol)
		}
		if sc.WriteThresholdSigma != nil && *sc.WriteThresholdSigma <= 0 {
			return Errorf("symbols.%s.write_threshold_sigma must be > 0", symbol)
		}
		if sc.DTE != nil && *sc.DTE < 0 {
			return Errorf("symbols.%s.dte must be >= 0", symbol)
		}
		if sc.MaxDTE != nil && *sc.MaxDTE < 1 {
			return Errorf("symbols.%s.max_dte must be >= 1", symbol)
		}
		if sc.Calls != nil {
			if sc.Calls.CapFactor != nil && (*sc.Calls.CapFactor < 0 || *sc.Calls.CapFactor > 1) {
				return Errorf("symbols.%s.calls.cap_factor must be in [0,1]", symbol)
			}
			if sc.Calls.StrikeLimit != nil && *sc.Calls.StrikeLimit <= 0 {
				return Errorf("symbols.%s.calls.strike_limit must be > 0", symbol)
			}
		}
		if sc.Puts != nil && sc.Puts.StrikeLimit != nil && *sc.Puts.StrikeLimit <= 0 {
			return Errorf("symbols.%s.puts.strike_limit must be > 0", symbol)
		}
	}
	if totalWeight > 1.0+1e-9 {
		return Errorf("symbols weights sum to %.4f, must be <= 1.0", totalWeight)
	}
	return nil
}

func (c *Config) validateVIXHedge() error {
	h := &c.VIXCallHedge
	if !h.Enabled {
		return nil
	}
	if h.Delta <= 0 || h.Delta > 1 {
		return Errorf("vix_call_hedge.delta must be in (0,1]")
	}
	if h.TargetDTE <= 0 {
		return Errorf("vix_call_hedge.target_dte must be > 0")
	}
	if h.IgnoreDTE < 0 {
		return Errorf("vix_call_hedge.ignore_dte must be >= 0")
	}
	for i, a := range h.Allocation {
		if a.Weight < 0 {
			return Errorf("vix_call_hedge.allocation[%d].weight must be >= 0", i)
		}
		if a.LowerBound != nil && a.UpperBound != nil && *a.LowerBound >= *a.UpperBound {
			return Errorf("vix_call_hedge.allocation[%d] bounds must satisfy lower < upper", i)
		}
	}
	return nil
}

func (c *Config) validateRegimeRebalance() error {
	r := &c.RegimeRebalance
	if !r.Enabled {
		return nil
	}
	if len(r.Symbols) == 0 {
		return Errorf("regime_rebalance.symbols must not be empty when enabled")
	}
	for _, symbol := range r.Symbols {
		if c.Symbols.Get(symbol) == nil {
			return Errorf("regime_rebalance.symbols includes %s which is not in symbols", symbol)
		}
	}
	if r.LookbackDays < 1 {
		return Errorf("regime_rebalance.lookback_days must be >= 1")
	}
	if r.SoftBand < 0 || r.SoftBand > 1 {
		return Errorf("regime_rebalance.soft_band must be in [0,1]")
	}
	if r.HardBand < r.SoftBand {
		return Errorf("regime_rebalance.hard_band must be >= soft_band")
	}
	if r.HardBandRebalanceFraction <= 0 || r.HardBandRebalanceFraction > 1 {
		return Errorf("regime_rebalance.hard_band_rebalance_fraction must be in (0,1]")
	}
	if *r.CooldownDays < 0 {
		return Errorf("regime_rebalance.cooldown_days must be >= 0")
	}
	if r.ChoppinessMin < 0 {
		return Errorf("regime_rebalance.choppiness_min must be >= 0")
	}
	if r.EfficiencyMax < 0 || r.EfficiencyMax > 1 {
		return Errorf("regime_rebalance.efficiency_max must be in [0,1]")
	}
	if r.FlowImbalanceTau < 0 || r.FlowImbalanceTau > 1 {
		return Errorf("regime_rebalance.flow_imbalance_tau must be in [0,1]")
	}
	if r.Eps <= 0 {
		return Errorf("regime_rebalance.eps must be > 0")
	}
	if !r.WeightBase.Valid() {
		return Errorf("regime_rebalance.weight_base must be buying_power, managed_stocks, or net_liq_ex_options")
	}
	return nil
}

func (c *Config) validateRun() error {
	if len(c.Run.Strategies) > 0 && len(c.Run.Stages) > 0 {
		return Errorf("run.strategies and run.stages are mutually exclusive")
	}
	var wheel, regime bool
	for _, s := range c.Run.Strategies {
		switch s {
		case "wheel":
			wheel = true
		case "regime_rebalance":
			regime = true
		default:
			return Errorf("run.strategies contains unknown strategy %q", s)
		}
	}
	if wheel && regime && !c.RegimeRebalance.SharesOnly {
		return Errorf("run.strategies cannot combine wheel and regime_rebalance unless regime_rebalance.shares_only is set")
	}
	seen := make(map[string]bool, len(c.Run.Stages))
	for _, st := range c.Run.Stages {
		if st.ID == "" {
			return Errorf("run.stages entries require an id")
		}
		if seen[st.ID] {
			return Errorf("run.stages declares %s twice", st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// normalize fills defaults for unset optional fields.
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Account.CancelOrders == nil {
		c.Account.CancelOrders = boolPtr(true)
	}
	if c.Orders.Exchange == "" {
		c.Orders.Exchange = "SMART"
	}
	if c.Orders.Algo.Strategy == "" {
		c.Orders.Algo.Strategy = "adaptive"
	}
	if c.Orders.TIF == "" {
		c.Orders.TIF = "day"
	}
	if c.Database.Enabled == nil {
		c.Database.Enabled = boolPtr(true)
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/wheelhouse.db"
	}
	if c.ExchangeHours.Timezone == "" {
		c.ExchangeHours.Timezone = "America/New_York"
	}
	if c.ExchangeHours.Open == "" {
		c.ExchangeHours.Open = "09:30"
	}
	if c.ExchangeHours.Close == "" {
		c.ExchangeHours.Close = "16:00"
	}
	if c.ExchangeHours.ActionWhenClosed == "" {
		c.ExchangeHours.ActionWhenClosed = "exit"
	}
	if c.Constants.DailyStdDevWindow == 0 {
		c.Constants.DailyStdDevWindow = defaultStdDevWindow
	}
	if c.Target.Delta == 0 {
		c.Target.Delta = 0.3
	}
	if c.Target.MaximumNewContractsPercent == nil {
		c.Target.MaximumNewContractsPercent = floatPtr(0.05)
	}
	if c.RollWhen.CloseAtPnl == nil {
		c.RollWhen.CloseAtPnl = floatPtr(1.0)
	}
	if c.RollWhen.Calls.ITM == nil {
		c.RollWhen.Calls.ITM = boolPtr(true)
	}
	if c.RollWhen.Calls.HasExcess == nil {
		c.RollWhen.Calls.HasExcess = boolPtr(true)
	}
	if c.RollWhen.Puts.HasExcess == nil {
		c.RollWhen.Puts.HasExcess = boolPtr(true)
	}
	if c.WriteWhen.Calls.Green == nil {
		c.WriteWhen.Calls.Green = boolPtr(true)
	}
	if c.WriteWhen.Calls.Red == nil {
		c.WriteWhen.Calls.Red = boolPtr(false)
	}
	if c.WriteWhen.Calls.CapFactor == nil {
		c.WriteWhen.Calls.CapFactor = floatPtr(1.0)
	}
	if c.WriteWhen.Calls.CapTargetFloor == nil {
		c.WriteWhen.Calls.CapTargetFloor = floatPtr(0.0)
	}
	if c.WriteWhen.Puts.Green == nil {
		c.WriteWhen.Puts.Green = boolPtr(false)
	}
	if c.WriteWhen.Puts.Red == nil {
		c.WriteWhen.Puts.Red = boolPtr(true)
	}
	if c.CashManagement.CashFund == "" {
		c.CashManagement.CashFund = defaultCashFund
	}
	if c.CashManagement.BuyThreshold == nil {
		c.CashManagement.BuyThreshold = floatPtr(defaultCashThreshold)
	}
	if c.CashManagement.SellThreshold == nil {
		c.CashManagement.SellThreshold = floatPtr(defaultCashThreshold)
	}
	if c.VIXCallHedge.Delta == 0 {
		c.VIXCallHedge.Delta = 0.3
	}
	if c.VIXCallHedge.TargetDTE == 0 {
		c.VIXCallHedge.TargetDTE = 30
	}
	r := &c.RegimeRebalance
	if r.LookbackDays == 0 {
		r.LookbackDays = 40
	}
	if r.SoftBand == 0 {
		r.SoftBand = 0.10
	}
	if r.HardBand == 0 {
		r.HardBand = 0.50
	}
	if r.HardBandRebalanceFraction == 0 {
		r.HardBandRebalanceFraction = 1.0
	}
	if r.ChoppinessMin == 0 {
		r.ChoppinessMin = 3.0
	}
	if r.EfficiencyMax == 0 {
		r.EfficiencyMax = 0.30
	}
	if r.FlowTradeMin == 0 {
		r.FlowTradeMin = 0.025
	}
	if r.FlowImbalanceTau == 0 {
		r.FlowImbalanceTau = 0.70
	}
	if r.Eps == 0 {
		r.Eps = 1e-8
	}
	if r.WeightBase == "" {
		r.WeightBase = WeightBaseNetLiqExOptions
	}
	if r.OrderHistoryLookbackDays == 0 {
		r.OrderHistoryLookbackDays = 30
	}
	if r.CooldownDays == nil {
		r.CooldownDays = intPtr(5)
	}
	if len(c.Run.Strategies) == 0 && len(c.Run.Stages) == 0 {
		c.Run.Strategies = []string{"wheel"}
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
