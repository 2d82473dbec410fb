package main

import (
	"github.com/alejandrodnm/velabot/config"
	"github.com/alejandrodnm/velabot/internal/backtest"
	"github.com/alejandrodnm/velabot/internal/levels"
	"github.com/alejandrodnm/velabot/internal/patterns"
	"github.com/alejandrodnm/velabot/internal/signals"
)

// buildOptions traduce la configuración externa a las opciones internas de
// cada componente del run.
func buildOptions(cfg *config.Config, workers int) backtest.Options {
	return backtest.Options{
		Patterns: patterns.Config{
			DojiEpsilon:   cfg.Patterns.DojiEpsilon,
			MarubozuDelta: cfg.Patterns.MarubozuDelta,
		},
		Levels: levels.Config{
			MAWindows:    cfg.Levels.MAWindows,
			FibLookback:  cfg.Levels.FibLookback,
			ToleranceATR: cfg.Levels.ToleranceATR,
		},
		Indicators: signals.IndicatorParams{
			RSIPeriod:        cfg.Indicators.RSIPeriod,
			MACDFast:         cfg.Indicators.MACDFast,
			MACDSlow:         cfg.Indicators.MACDSlow,
			MACDSignal:       cfg.Indicators.MACDSignal,
			ATRPeriod:        cfg.Indicators.ATRPeriod,
			TrendPeriod:      cfg.Indicators.TrendPeriod,
			VolumeWindow:     cfg.Signals.VolumeWindow,
			MomentumShort:    cfg.Indicators.MomentumShort,
			MomentumMedium:   cfg.Indicators.MomentumMedium,
			BreakoutLookback: cfg.Indicators.BreakoutLookback,
		},
		Signals: signals.Config{
			StrengthCutoff:   cfg.Signals.StrengthCutoff,
			VolumeMultiplier: cfg.Signals.VolumeMultiplier,
			AllowLong:        cfg.Signals.Direction == "long" || cfg.Signals.Direction == "both",
			AllowShort:       cfg.Signals.Direction == "short" || cfg.Signals.Direction == "both",
		},
		Risk: backtest.Config{
			InitialEquity:  cfg.Risk.InitialEquity,
			SizingFraction: cfg.Risk.SizingFraction,
			ATRMultiplier:  cfg.Risk.ATRMultiplier,
			RiskReward:     cfg.Risk.RiskReward,
			Commission:     cfg.Risk.Commission,
			Slippage:       cfg.Risk.Slippage,
			BreakevenAt:    cfg.Risk.BreakevenAt,
		},
		PeriodsPerYear: cfg.Metrics.PeriodsPerYear,
		Workers:        workers,
	}
}
