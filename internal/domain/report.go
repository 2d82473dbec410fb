package domain

import (
	"fmt"
	"math"
)

// PerformanceReport se computa una única vez sobre un ledger finalizado.
// Los campos sin definición matemática (ledger vacío, desviación cero)
// valen NaN y se presentan como "N/A"; ProfitFactor puede ser +Inf cuando
// no hay trades perdedores. Nunca son un error.
type PerformanceReport struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	LongTrades    int
	ShortTrades   int

	WinRate      float64 // NaN con ledger vacío
	ProfitFactor float64 // +Inf sin perdedores; NaN sin trades
	MaxDrawdown  float64 // fracción del pico de equity, 0..1
	SharpeRatio  float64 // NaN con <2 trades o stdev cero

	NetPnL        float64
	AverageWin    float64 // NaN sin ganadores
	AverageLoss   float64 // NaN sin perdedores
	BestTrade     float64
	WorstTrade    float64
	InitialEquity float64
	FinalEquity   float64

	ExitReasons map[ExitReason]int
}

// IsNA devuelve true si el valor carece de definición (sentinela NaN).
func IsNA(v float64) bool { return math.IsNaN(v) }

// FormatMetric presenta un valor de métrica para reportes, mapeando los
// sentinelas a texto.
func FormatMetric(v float64, decimals int) string {
	switch {
	case math.IsNaN(v):
		return "N/A"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}
