package main

// selfcheck.go — verificación operacional de dos propiedades del engine:
//
//  1. Determinismo: dos runs con la misma serie y configuración producen
//     ledgers idénticos.
//  2. No-look-ahead: re-ejecutar sobre un prefijo de la serie produce las
//     mismas señales que el run completo hasta el punto de truncado.

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/velabot/internal/backtest"
	"github.com/alejandrodnm/velabot/internal/domain"
)

func runSelfcheck(opts backtest.Options, series *domain.Series) error {
	full := backtest.Simulate(opts, series)
	again := backtest.Simulate(opts, series)

	if err := compareTrades(full.Trades, again.Trades); err != nil {
		return fmt.Errorf("determinism: %w", err)
	}
	slog.Info("determinism check passed", "trades", len(full.Trades))

	// Truncar a la mitad y comparar las señales del prefijo común.
	cut := series.Len() / 2
	if cut < 2 {
		slog.Warn("series too short for truncation check", "bars", series.Len())
		return nil
	}
	prefix := backtest.Simulate(opts, series.Prefix(cut))

	fullUpToCut := signalsBefore(full.Signals, cut)
	if len(prefix.Signals) != len(fullUpToCut) {
		return fmt.Errorf("no-look-ahead: prefix produced %d signals, full run %d before bar %d",
			len(prefix.Signals), len(fullUpToCut), cut)
	}
	for i := range prefix.Signals {
		a, b := prefix.Signals[i], fullUpToCut[i]
		if a.BarIndex != b.BarIndex || a.Kind != b.Kind {
			return fmt.Errorf("no-look-ahead: signal %d differs: prefix (%d %s) vs full (%d %s)",
				i, a.BarIndex, a.Kind, b.BarIndex, b.Kind)
		}
	}
	slog.Info("no-look-ahead check passed", "cut", cut, "signals", len(prefix.Signals))
	return nil
}

func signalsBefore(sigs []domain.Signal, cut int) []domain.Signal {
	out := make([]domain.Signal, 0, len(sigs))
	for _, s := range sigs {
		if s.BarIndex < cut {
			out = append(out, s)
		}
	}
	return out
}

// compareTrades exige igualdad campo a campo salvo el ID, que es un uuid
// aleatorio por trade.
func compareTrades(a, b []domain.Trade) error {
	if len(a) != len(b) {
		return fmt.Errorf("trade count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		x.ID, y.ID = "", ""
		if x != y {
			return fmt.Errorf("trade %d differs: %+v vs %+v", i, x, y)
		}
	}
	return nil
}
