package signals

// engine.go — combina clasificador de velas, zonas e indicadores en señales
// discretas de entrada/salida, una como máximo por barra.
//
// Reglas de entrada (largo; el corto es el espejo):
//   - figura alcista con fuerza >= strength_cutoff, o vela de ruptura
//     alcista con la misma fuerza mínima
//   - cierre dentro o tocando una zona de soporte
//   - RSI > 50
//   - histograma MACD no contradice la dirección
//   - volumen >= k × media trailing de volumen
//   - momentum score > 0
// Un indicador sin historia suficiente NUNCA confirma: sin RSI no hay entrada.
//
// Reglas de salida (con posición abierta):
//   - figura de reversión contra la posición (engulfing opuesto, estrella
//     fugaz contra largos, martillo contra cortos)
//   - momentum score contra la posición más allá de +-0.3 con la pendiente
//     de tendencia en contra
//   - cruce del histograma MACD contra la posición
//   - RSI en extremo contra la posición (>= 70 largos, <= 30 cortos)
// Los stops y targets no son señales: los vigila el gestor de posiciones.

import (
	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/indicators"
	"github.com/alejandrodnm/velabot/internal/levels"
)

const (
	rsiOverbought = 70
	rsiOversold   = 30
	// momentumExitThreshold es el momentum score adverso a partir del cual
	// se cierra la posición si la tendencia también va en contra.
	momentumExitThreshold = 0.3
)

// Config son los parámetros de confirmación del motor.
type Config struct {
	StrengthCutoff   float64
	VolumeMultiplier float64
	AllowLong        bool
	AllowShort       bool
}

// Engine evalúa señales barra a barra sobre columnas precomputadas.
// Toda columna en el índice i es función pura de las barras [0..i], así que
// la precomputación no introduce look-ahead.
type Engine struct {
	cfg      Config
	bars     []domain.Bar
	cols     *Columns
	detector *levels.Detector
}

// NewEngine construye el motor sobre la serie y sus columnas.
func NewEngine(cfg Config, bars []domain.Bar, cols *Columns, detector *levels.Detector) *Engine {
	return &Engine{cfg: cfg, bars: bars, cols: cols, detector: detector}
}

// Evaluate devuelve la señal de la barra i, o nil. Si hay una posición
// abierta solo se consideran salidas; las entradas solo se evalúan en plano
// (la salida manda y nunca coexisten en una misma barra).
func (e *Engine) Evaluate(i int, open *domain.Position) *domain.Signal {
	if i < 0 || i >= len(e.bars) {
		return nil
	}
	if open != nil {
		return e.evaluateExit(i, open)
	}
	return e.evaluateEntry(i)
}

func (e *Engine) evaluateExit(i int, pos *domain.Position) *domain.Signal {
	match := e.cols.Pattern[i]
	rsi := e.cols.RSI[i]
	hist := e.cols.MACDHist[i]

	var reason string
	switch {
	case match.IsReversalAgainst(pos.Direction) && match.Strength >= e.cfg.StrengthCutoff:
		reason = "reversal pattern " + string(match.Type)
	case e.adverseMomentum(i, pos.Direction):
		reason = "adverse momentum"
	case e.macdCrossAgainst(i, pos.Direction):
		reason = "macd cross against position"
	case indicators.Valid(rsi) && pos.Direction == domain.Long && rsi >= rsiOverbought:
		reason = "rsi overbought"
	case indicators.Valid(rsi) && pos.Direction == domain.Short && rsi <= rsiOversold:
		reason = "rsi oversold"
	default:
		return nil
	}

	return &domain.Signal{
		BarIndex: i,
		Kind:     domain.Exit,
		Rationale: domain.Rationale{
			Pattern:       match,
			RSI:           rsi,
			MACDHistogram: hist,
			MomentumScore: e.cols.Momentum[i],
			Reason:        reason,
		},
	}
}

// adverseMomentum se cumple cuando el momentum score cruza el umbral contra
// la posición y la pendiente de la tendencia apunta en la misma dirección
// adversa. Cualquiera de los dos sin historia suficiente nunca confirma.
func (e *Engine) adverseMomentum(i int, dir domain.Direction) bool {
	score := e.cols.Momentum[i]
	slope := e.cols.TrendSlope[i]
	if !indicators.Valid(score) || !indicators.Valid(slope) {
		return false
	}
	if dir == domain.Long {
		return score < -momentumExitThreshold && slope < 0
	}
	return score > momentumExitThreshold && slope > 0
}

// macdCrossAgainst detecta un cruce del histograma contra la posición:
// positivo→negativo para largos, negativo→positivo para cortos.
func (e *Engine) macdCrossAgainst(i int, dir domain.Direction) bool {
	if i < 1 {
		return false
	}
	prev, cur := e.cols.MACDHist[i-1], e.cols.MACDHist[i]
	if !indicators.Valid(prev) || !indicators.Valid(cur) {
		return false
	}
	if dir == domain.Long {
		return prev > 0 && cur < 0
	}
	return prev < 0 && cur > 0
}

// entryTrigger elige el disparador de entrada de la barra i: la figura de
// vela si es direccional y suficientemente fuerte, y si no la vela de
// ruptura. Las figuras de indecisión no abren posiciones ni bloquean la
// ruptura.
func (e *Engine) entryTrigger(i int) domain.PatternMatch {
	for _, m := range [2]domain.PatternMatch{e.cols.Pattern[i], e.cols.Breakout[i]} {
		if m.Type == domain.PatternNone || m.Strength < e.cfg.StrengthCutoff {
			continue
		}
		if m.Bias != domain.BiasBullish && m.Bias != domain.BiasBearish {
			continue
		}
		return m
	}
	return domain.NoMatch
}

func (e *Engine) evaluateEntry(i int) *domain.Signal {
	match := e.entryTrigger(i)
	if match.Type == domain.PatternNone {
		return nil
	}

	var kind domain.SignalKind
	var zoneKind domain.ZoneKind
	if match.Bias == domain.BiasBullish {
		if !e.cfg.AllowLong {
			return nil
		}
		kind = domain.EntryLong
		zoneKind = domain.ZoneSupport
	} else {
		if !e.cfg.AllowShort {
			return nil
		}
		kind = domain.EntryShort
		zoneKind = domain.ZoneResistance
	}

	bar := e.bars[i]

	// Confirmación de zona: el cierre debe estar dentro o tocando una zona
	// del tipo adecuado. Sin zonas disponibles no hay confirmación.
	zones := e.detector.ZonesAt(e.bars, i, e.cols.ATR[i])
	zone := levels.NearZone(zones, zoneKind, bar.Close)
	if zone == nil {
		return nil
	}

	// Gates de indicadores: un valor no disponible nunca confirma.
	rsi := e.cols.RSI[i]
	if !indicators.Valid(rsi) {
		return nil
	}
	if kind == domain.EntryLong && rsi <= 50 {
		return nil
	}
	if kind == domain.EntryShort && rsi >= 50 {
		return nil
	}

	hist := e.cols.MACDHist[i]
	if !indicators.Valid(hist) {
		return nil
	}
	if kind == domain.EntryLong && hist < 0 {
		return nil
	}
	if kind == domain.EntryShort && hist > 0 {
		return nil
	}

	volMean := e.cols.VolumeMean[i]
	if !indicators.Valid(volMean) || volMean <= 0 {
		return nil
	}
	volRatio := bar.Volume / volMean
	if volRatio < e.cfg.VolumeMultiplier {
		return nil
	}

	momentum := e.cols.Momentum[i]
	if !indicators.Valid(momentum) {
		return nil
	}
	if kind == domain.EntryLong && momentum <= 0 {
		return nil
	}
	if kind == domain.EntryShort && momentum >= 0 {
		return nil
	}

	return &domain.Signal{
		BarIndex: i,
		Kind:     kind,
		Rationale: domain.Rationale{
			Pattern:       match,
			Zone:          zone,
			RSI:           rsi,
			MACDHistogram: hist,
			VolumeRatio:   volRatio,
			MomentumScore: momentum,
		},
	}
}
