package config

import "github.com/pdswan/wheelhouse/internal/models"

// The resolvers below collapse the override chain for per-symbol settings:
// symbol per-right > symbol > global per-right > global.

// Weight returns the target portfolio weight for a symbol.
func (c *Config) Weight(symbol string) float64 {
	if sc := c.Symbols.Get(symbol); sc != nil {
		return sc.Weight
	}
	return 0
}

// NoTrading reports whether all order generation is suppressed for a symbol.
func (c *Config) NoTrading(symbol string) bool {
	sc := c.Symbols.Get(symbol)
	return sc != nil && sc.NoTrading != nil && *sc.NoTrading
}

// TradingDTE returns the target DTE for newly written contracts.
func (c *Config) TradingDTE(symbol string) int {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.DTE != nil {
		return *sc.DTE
	}
	return c.Target.DTE
}

// MaxDTE returns the maximum DTE beyond which positions are never rolled,
// or (0, false) when no cap applies.
func (c *Config) MaxDTE(symbol string) (int, bool) {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.MaxDTE != nil {
		return *sc.MaxDTE, true
	}
	if c.Target.MaxDTE != nil {
		return *c.Target.MaxDTE, true
	}
	return 0, false
}

// Delta returns the target delta for a symbol and right.
func (c *Config) Delta(symbol string, right models.Right) float64 {
	if sc := c.Symbols.Get(symbol); sc != nil {
		if right == models.RightPut && sc.Puts != nil && sc.Puts.Delta != nil {
			return *sc.Puts.Delta
		}
		if right == models.RightCall && sc.Calls != nil && sc.Calls.Delta != nil {
			return *sc.Calls.Delta
		}
		if sc.Delta != nil {
			return *sc.Delta
		}
	}
	if right == models.RightPut && c.Target.Puts != nil && c.Target.Puts.Delta != nil {
		return *c.Target.Puts.Delta
	}
	if right == models.RightCall && c.Target.Calls != nil && c.Target.Calls.Delta != nil {
		return *c.Target.Calls.Delta
	}
	return c.Target.Delta
}

// WriteThresholdSigma returns the sigma write threshold for a symbol and
// right. Sigma takes precedence over the percentage threshold wherever both
// are configured at the same level.
func (c *Config) WriteThresholdSigma(symbol string, right models.Right) (float64, bool) {
	if sc := c.Symbols.Get(symbol); sc != nil {
		if right == models.RightPut && sc.Puts != nil && sc.Puts.WriteThresholdSigma != nil {
			return *sc.Puts.WriteThresholdSigma, true
		}
		if right == models.RightCall && sc.Calls != nil && sc.Calls.WriteThresholdSigma != nil {
			return *sc.Calls.WriteThresholdSigma, true
		}
		if sc.WriteThresholdSigma != nil {
			return *sc.WriteThresholdSigma, true
		}
	}
	if right == models.RightPut && c.Constants.Puts != nil && c.Constants.Puts.WriteThresholdSigma != nil {
		return *c.Constants.Puts.WriteThresholdSigma, true
	}
	if right == models.RightCall && c.Constants.Calls != nil && c.Constants.Calls.WriteThresholdSigma != nil {
		return *c.Constants.Calls.WriteThresholdSigma, true
	}
	if c.Constants.WriteThresholdSigma != nil {
		return *c.Constants.WriteThresholdSigma, true
	}
	return 0, false
}

// WriteThreshold returns the fractional daily-move write threshold for a
// symbol and right. Unset everywhere means no gate (0, false).
func (c *Config) WriteThreshold(symbol string, right models.Right) (float64, bool) {
	if sc := c.Symbols.Get(symbol); sc != nil {
		if right == models.RightPut && sc.Puts != nil && sc.Puts.WriteThreshold != nil {
			return *sc.Puts.WriteThreshold, true
		}
		if right == models.RightCall && sc.Calls != nil && sc.Calls.WriteThreshold != nil {
			return *sc.Calls.WriteThreshold, true
		}
		if sc.WriteThreshold != nil {
			return *sc.WriteThreshold, true
		}
	}
	if right == models.RightPut && c.Constants.Puts != nil && c.Constants.Puts.WriteThreshold != nil {
		return *c.Constants.Puts.WriteThreshold, true
	}
	if right == models.RightCall && c.Constants.Calls != nil && c.Constants.Calls.WriteThreshold != nil {
		return *c.Constants.Calls.WriteThreshold, true
	}
	if c.Constants.WriteThreshold != nil {
		return *c.Constants.WriteThreshold, true
	}
	return 0, false
}

// StrikeLimit returns the configured strike bound for a symbol and right,
// or (0, false) when unset. For puts it is a ceiling, for calls a floor.
func (c *Config) StrikeLimit(symbol string, right models.Right) (float64, bool) {
	sc := c.Symbols.Get(symbol)
	if sc == nil {
		return 0, false
	}
	if right == models.RightPut && sc.Puts != nil && sc.Puts.StrikeLimit != nil {
		return *sc.Puts.StrikeLimit, true
	}
	if right == models.RightCall && sc.Calls != nil && sc.Calls.StrikeLimit != nil {
		return *sc.Calls.StrikeLimit, true
	}
	return 0, false
}

// WriteAllowed applies the green/red day gate: a green day means the
// underlying is trading above its previous close.
func (c *Config) WriteAllowed(symbol string, right models.Right, green bool) bool {
	var allowGreen, allowRed bool
	if right == models.RightPut {
		allowGreen = *c.WriteWhen.Puts.Green
		allowRed = *c.WriteWhen.Puts.Red
	} else {
		allowGreen = *c.WriteWhen.Calls.Green
		allowRed = *c.WriteWhen.Calls.Red
	}
	if sc := c.Symbols.Get(symbol); sc != nil {
		var ww *SymbolWriteWhen
		if right == models.RightPut && sc.Puts != nil {
			ww = sc.Puts.WriteWhen
		}
		if right == models.RightCall && sc.Calls != nil {
			ww = sc.Calls.WriteWhen
		}
		if ww != nil {
			if ww.Green != nil {
				allowGreen = *ww.Green
			}
			if ww.Red != nil {
				allowRed = *ww.Red
			}
		}
	}
	if green {
		return allowGreen
	}
	return allowRed
}

// CapFactor returns the covered-call cap factor for a symbol.
func (c *Config) CapFactor(symbol string) float64 {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.Calls != nil && sc.Calls.CapFactor != nil {
		return *sc.Calls.CapFactor
	}
	return *c.WriteWhen.Calls.CapFactor
}

// CapTargetFloor returns the floor applied to the share target when capping
// covered calls.
func (c *Config) CapTargetFloor(symbol string) float64 {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.Calls != nil && sc.Calls.CapTargetFloor != nil {
		return *sc.Calls.CapTargetFloor
	}
	return *c.WriteWhen.Calls.CapTargetFloor
}

// ExcessOnly reports whether calls may only be written against shares above
// the symbol's target.
func (c *Config) ExcessOnly(symbol string) bool {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.Calls != nil && sc.Calls.ExcessOnly != nil {
		return *sc.Calls.ExcessOnly
	}
	return c.WriteWhen.Calls.ExcessOnly
}

// MaintainHighWaterMark reports whether call rolls must never lower the
// strike.
func (c *Config) MaintainHighWaterMark(symbol string) bool {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.Calls != nil && sc.Calls.MaintainHighWaterMark != nil {
		return *sc.Calls.MaintainHighWaterMark
	}
	return c.RollWhen.Calls.MaintainHighWaterMark
}

// CloseIfUnableToRoll reports whether an unrollable position should be
// closed instead of held.
func (c *Config) CloseIfUnableToRoll(symbol string) bool {
	if sc := c.Symbols.Get(symbol); sc != nil && sc.CloseIfUnableToRoll != nil {
		return *sc.CloseIfUnableToRoll
	}
	return c.RollWhen.CloseIfUnableToRoll
}

// BuyOnlyRebalancing reports whether rebalance orders for a symbol may only
// buy.
func (c *Config) BuyOnlyRebalancing(symbol string) bool {
	sc := c.Symbols.Get(symbol)
	return sc != nil && sc.BuyOnlyRebalancing != nil && *sc.BuyOnlyRebalancing
}

// SellOnlyRebalancing reports whether rebalance orders for a symbol may only
// sell.
func (c *Config) SellOnlyRebalancing(symbol string) bool {
	sc := c.Symbols.Get(symbol)
	return sc != nil && sc.SellOnlyRebalancing != nil && *sc.SellOnlyRebalancing
}

// RebalanceMinThresholds returns the per-symbol minimum-size filters for a
// rebalance order in the given direction: whole shares, absolute notional,
// and a fraction of the symbol's target value. A zero disables that filter.
func (c *Config) RebalanceMinThresholds(symbol string, buy bool) (shares int, amount, percent float64) {
	sc := c.Symbols.Get(symbol)
	if sc == nil {
		return 0, 0, 0
	}
	if buy {
		if sc.BuyOnlyMinThresholdShares != nil {
			shares = *sc.BuyOnlyMinThresholdShares
		}
		if sc.BuyOnlyMinThresholdAmount != nil {
			amount = *sc.BuyOnlyMinThresholdAmount
		}
		if sc.BuyOnlyMinThresholdPercent != nil {
			percent = *sc.BuyOnlyMinThresholdPercent
		}
		return shares, amount, percent
	}
	if sc.SellOnlyMinThresholdShares != nil {
		shares = *sc.SellOnlyMinThresholdShares
	}
	if sc.SellOnlyMinThresholdAmount != nil {
		amount = *sc.SellOnlyMinThresholdAmount
	}
	if sc.SellOnlyMinThresholdPercent != nil {
		percent = *sc.SellOnlyMinThresholdPercent
	}
	return shares, amount, percent
}
