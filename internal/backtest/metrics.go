package backtest

// metrics.go — agregador de métricas: función pura sobre el ledger
// finalizado. Los casos sin definición (ledger vacío, desviación cero) se
// reportan como sentinelas (NaN → "N/A", +Inf), nunca como error.

import (
	"math"

	"github.com/alejandrodnm/velabot/internal/domain"
)

// ComputeReport computa el reporte de performance sobre el ledger cerrado.
// Camina el ledger en orden cronológico: las posiciones se abren de una en
// una, así que el orden de cierre coincide con el de apertura.
func ComputeReport(trades []domain.Trade, initialEquity, finalEquity, periodsPerYear float64) domain.PerformanceReport {
	report := domain.PerformanceReport{
		TotalTrades:   len(trades),
		InitialEquity: initialEquity,
		FinalEquity:   finalEquity,
		WinRate:       math.NaN(),
		ProfitFactor:  math.NaN(),
		SharpeRatio:   math.NaN(),
		AverageWin:    math.NaN(),
		AverageLoss:   math.NaN(),
		ExitReasons:   make(map[domain.ExitReason]int),
	}
	if len(trades) == 0 {
		return report
	}

	var grossWins, grossLosses, net float64
	best := math.Inf(-1)
	worst := math.Inf(1)
	for _, t := range trades {
		net += t.PnL
		if t.Won() {
			report.WinningTrades++
			grossWins += t.PnL
		} else {
			report.LosingTrades++
			grossLosses += -t.PnL
		}
		if t.Direction == domain.Long {
			report.LongTrades++
		} else {
			report.ShortTrades++
		}
		best = math.Max(best, t.PnL)
		worst = math.Min(worst, t.PnL)
		report.ExitReasons[t.ExitReason]++
	}

	report.NetPnL = net
	report.BestTrade = best
	report.WorstTrade = worst
	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)

	if report.WinningTrades > 0 {
		report.AverageWin = grossWins / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = -grossLosses / float64(report.LosingTrades)
	}

	// Profit Factor: infinito sin perdedores (con al menos un ganador).
	switch {
	case grossLosses > 0:
		report.ProfitFactor = grossWins / grossLosses
	case grossWins > 0:
		report.ProfitFactor = math.Inf(1)
	}

	report.MaxDrawdown = maxDrawdown(trades, initialEquity)
	report.SharpeRatio = sharpe(trades, initialEquity, periodsPerYear)
	return report
}

// maxDrawdown devuelve la mayor caída pico-a-valle, como fracción del pico,
// de la curva de equity construida caminando el ledger.
func maxDrawdown(trades []domain.Trade, initialEquity float64) float64 {
	equity := initialEquity
	peak := equity
	var maxDD float64
	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe devuelve el ratio de Sharpe sobre retornos fraccionales por trade
// (P&L / equity al abrir), con desviación muestral y anualizado por
// √periodsPerYear. NaN con menos de dos trades o desviación cero.
func sharpe(trades []domain.Trade, initialEquity, periodsPerYear float64) float64 {
	if len(trades) < 2 {
		return math.NaN()
	}

	returns := make([]float64, 0, len(trades))
	equity := initialEquity
	for _, t := range trades {
		if equity <= 0 {
			return math.NaN()
		}
		returns = append(returns, t.PnL/equity)
		equity += t.PnL
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(returns)-1))
	if sd == 0 {
		return math.NaN()
	}
	return mean / sd * math.Sqrt(periodsPerYear)
}
