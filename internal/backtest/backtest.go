package backtest

// backtest.go — orquestación de un run completo: precómputo de columnas,
// detector de zonas, motor de señales y pase secuencial del gestor.

import (
	"log/slog"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/levels"
	"github.com/alejandrodnm/velabot/internal/patterns"
	"github.com/alejandrodnm/velabot/internal/signals"
)

// Options reúne la configuración de todos los componentes de un run.
type Options struct {
	Patterns   patterns.Config
	Levels     levels.Config
	Indicators signals.IndicatorParams
	Signals    signals.Config
	Risk       Config
	// PeriodsPerYear es el factor de anualización del Sharpe.
	PeriodsPerYear float64
	// Workers para el precómputo paralelo de figuras (0 = NumCPU).
	Workers int
}

// Simulate ejecuta el backtest completo sobre la serie. El flujo de datos es
// estrictamente hacia delante: Series → {indicadores, zonas, figuras} →
// señales → posiciones → métricas.
func Simulate(opts Options, series *domain.Series) *Result {
	bars := series.Bars()
	slog.Info("starting backtest", "bars", len(bars))

	cls := patterns.New(opts.Patterns)
	cols := signals.Precompute(bars, opts.Indicators, cls, opts.Workers)

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	detector := levels.New(opts.Levels, closes)

	engine := signals.NewEngine(opts.Signals, bars, cols, detector)
	runner := NewRunner(opts.Risk, engine, cols, bars)
	res := runner.Run(opts.PeriodsPerYear)

	slog.Info("backtest complete",
		"trades", len(res.Trades),
		"signals", len(res.Signals),
		"final_equity", res.FinalEquity,
		"open_position", res.OpenPosition != nil,
	)
	return res
}
