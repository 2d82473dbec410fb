package backtest

// runner.go — pase secuencial del gestor de posiciones.
//
// El pase es estrictamente secuencial: el estado de la posición en la barra
// i+1 depende del resultado en i. Las ejecuciones se modelan sin look-ahead:
// una señal en la barra i se llena en la apertura de la barra i+1 (el cierre
// de i ya es conocido, el fill no puede ocurrir dentro de esa misma barra).
// Los stops y targets sí se llenan al precio del nivel en la barra que lo
// cruza, porque el nivel quedó fijado en barras anteriores.

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/indicators"
	"github.com/alejandrodnm/velabot/internal/signals"
)

// Config controla el riesgo y los costes de ejecución del gestor.
type Config struct {
	InitialEquity  float64
	SizingFraction float64 // fracción de equity por trade
	ATRMultiplier  float64 // m: distancia del stop en múltiplos de ATR
	RiskReward     float64 // r: target a r×(entrada−stop)
	Commission     float64 // fracción del nocional por fill
	Slippage       float64 // fracción adversa aplicada a fills de mercado
	BreakevenAt    float64 // fracción del recorrido al target que promociona el stop
}

// Result es el artefacto final de un run: ledger cerrado, curva de equity
// por barra (realizada), señales emitidas y, si quedó, la posición abierta.
type Result struct {
	Trades       []domain.Trade
	Signals      []domain.Signal
	EquityCurve  []float64
	OpenPosition *domain.Position
	FinalEquity  float64
	Start, End   time.Time
	Report       domain.PerformanceReport
}

// Runner ejecuta la simulación sobre una serie y columnas precomputadas.
type Runner struct {
	cfg    Config
	engine *signals.Engine
	cols   *signals.Columns
	bars   []domain.Bar
}

// NewRunner construye un Runner.
func NewRunner(cfg Config, engine *signals.Engine, cols *signals.Columns, bars []domain.Bar) *Runner {
	return &Runner{cfg: cfg, engine: engine, cols: cols, bars: bars}
}

// Run ejecuta el pase completo. Determinista: la misma serie y configuración
// producen siempre el mismo ledger y reporte.
func (r *Runner) Run(periodsPerYear float64) *Result {
	res := &Result{
		EquityCurve: make([]float64, 0, len(r.bars)),
		FinalEquity: r.cfg.InitialEquity,
	}
	if len(r.bars) > 0 {
		res.Start = r.bars[0].Time
		res.End = r.bars[len(r.bars)-1].Time
	}

	equity := r.cfg.InitialEquity
	var pos *domain.Position
	var pendingEntry *domain.Signal
	pendingExit := false

	for i, bar := range r.bars {
		// 1. Salida por reversión pendiente: fill en la apertura de esta barra.
		if pendingExit && pos != nil {
			price := r.fillPrice(bar.Open, pos.Direction, true)
			equity += r.closePosition(res, pos, i, bar.Time, price, domain.ExitReversalSignal)
			pos = nil
			pendingExit = false
		}

		// 2. Vigilancia de stop/target contra el stop vigente al cierre de la
		// barra ANTERIOR: una barra no puede ser parada por el ratchet que
		// ella misma genera. Si stop y target se cruzan en la misma barra
		// gana el stop (supuesto conservador).
		if pos != nil {
			if price, reason, hit := r.checkBreach(pos, bar); hit {
				equity += r.closePosition(res, pos, i, bar.Time, price, reason)
				pos = nil
				pendingExit = false
			}
		}

		// 3. Ratchet del trailing stop con el extremo favorable de esta barra.
		if pos != nil {
			r.updateTrailing(pos, bar, r.cols.ATR[i])
		}

		// 4. Entrada pendiente: fill en la apertura de esta barra si seguimos
		// en plano. Como la vigilancia del paso 2 ya pasó, la barra de entrada
		// no se comprueba contra su propio stop inicial: la primera vigilancia
		// de una posición llena en la barra i ocurre en la barra i+1.
		if pendingEntry != nil {
			if pos == nil {
				pos = r.openPosition(pendingEntry, i, bar, equity)
			}
			pendingEntry = nil
		}

		// 5. Señal de esta barra. Con posición abierta solo salidas; las
		// entradas requieren estar en plano. Como máximo una señal por barra.
		if sig := r.engine.Evaluate(i, pos); sig != nil {
			res.Signals = append(res.Signals, *sig)
			if sig.Kind == domain.Exit {
				pendingExit = true
			} else {
				pendingEntry = sig
			}
		}

		res.EquityCurve = append(res.EquityCurve, equity)
	}

	res.FinalEquity = equity
	res.OpenPosition = pos
	res.Report = ComputeReport(res.Trades, r.cfg.InitialEquity, equity, periodsPerYear)
	return res
}

// openPosition abre una posición en la apertura de la barra idx. El stop se
// calcula con el ATR de la barra de la señal (la última completamente
// conocida al decidir), a m múltiplos; el target con el risk-reward r.
func (r *Runner) openPosition(sig *domain.Signal, idx int, bar domain.Bar, equity float64) *domain.Position {
	atr := r.cols.ATR[sig.BarIndex]
	if !indicators.Valid(atr) || atr <= 0 {
		// Sin ATR no hay stop definible; la entrada se descarta. El motor ya
		// exige ATR para las zonas, así que esto solo protege configuraciones
		// extremas.
		slog.Debug("entry skipped, no ATR available", "bar", sig.BarIndex)
		return nil
	}

	dir := domain.Long
	if sig.Kind == domain.EntryShort {
		dir = domain.Short
	}
	entry := r.fillPrice(bar.Open, dir, false)
	if entry <= 0 {
		return nil
	}

	risk := r.cfg.ATRMultiplier * atr
	var stop, target, best float64
	if dir == domain.Long {
		stop = entry - risk
		target = entry + r.cfg.RiskReward*(entry-stop)
		best = bar.Open
	} else {
		stop = entry + risk
		target = entry - r.cfg.RiskReward*(stop-entry)
		best = bar.Open
	}

	size := equity * r.cfg.SizingFraction / entry
	pos := &domain.Position{
		ID:            uuid.New().String(),
		Direction:     dir,
		EntryIndex:    idx,
		EntryTime:     bar.Time,
		EntryPrice:    entry,
		Size:          size,
		StopLoss:      stop,
		TakeProfit:    target,
		BestFavorable: best,
		ATRMultiple:   r.cfg.ATRMultiplier,
	}
	slog.Debug("position opened",
		"id", pos.ID,
		"dir", dir,
		"bar", idx,
		"entry", entry,
		"stop", stop,
		"target", target,
	)
	return pos
}

// checkBreach comprueba si la barra cruza el stop o el target vigentes.
func (r *Runner) checkBreach(pos *domain.Position, bar domain.Bar) (price float64, reason domain.ExitReason, hit bool) {
	if pos.Direction == domain.Long {
		if bar.Low <= pos.StopLoss {
			return pos.StopLoss, domain.ExitStopLoss, true
		}
		if bar.High >= pos.TakeProfit {
			return pos.TakeProfit, domain.ExitTakeProfit, true
		}
		return 0, "", false
	}
	if bar.High >= pos.StopLoss {
		return pos.StopLoss, domain.ExitStopLoss, true
	}
	if bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, domain.ExitTakeProfit, true
	}
	return 0, "", false
}

// updateTrailing aplica el ratchet: el stop mantiene la distancia m×ATR
// respecto al mejor precio favorable alcanzado y nunca se afloja. Cuando el
// precio ha recorrido la fracción configurada hacia el target, el stop se
// promociona al menos a breakeven.
func (r *Runner) updateTrailing(pos *domain.Position, bar domain.Bar, atr float64) {
	if pos.Direction == domain.Long {
		pos.BestFavorable = math.Max(pos.BestFavorable, bar.High)
		if indicators.Valid(atr) && atr > 0 {
			pos.StopLoss = math.Max(pos.StopLoss, pos.BestFavorable-pos.ATRMultiple*atr)
		}
		if !pos.BreakevenSet && r.cfg.BreakevenAt > 0 {
			trigger := pos.EntryPrice + r.cfg.BreakevenAt*(pos.TakeProfit-pos.EntryPrice)
			if bar.High >= trigger {
				pos.StopLoss = math.Max(pos.StopLoss, pos.EntryPrice)
				pos.BreakevenSet = true
			}
		}
		return
	}

	pos.BestFavorable = math.Min(pos.BestFavorable, bar.Low)
	if indicators.Valid(atr) && atr > 0 {
		pos.StopLoss = math.Min(pos.StopLoss, pos.BestFavorable+pos.ATRMultiple*atr)
	}
	if !pos.BreakevenSet && r.cfg.BreakevenAt > 0 {
		trigger := pos.EntryPrice - r.cfg.BreakevenAt*(pos.EntryPrice-pos.TakeProfit)
		if bar.Low <= trigger {
			pos.StopLoss = math.Min(pos.StopLoss, pos.EntryPrice)
			pos.BreakevenSet = true
		}
	}
}

// closePosition cierra la posición, añade el Trade al ledger y devuelve el
// P&L neto a sumar al equity.
func (r *Runner) closePosition(res *Result, pos *domain.Position, idx int, at time.Time, price float64, reason domain.ExitReason) float64 {
	var gross float64
	if pos.Direction == domain.Long {
		gross = (price - pos.EntryPrice) * pos.Size
	} else {
		gross = (pos.EntryPrice - price) * pos.Size
	}
	commission := r.cfg.Commission * pos.Size * (pos.EntryPrice + price)
	pnl := gross - commission

	trade := domain.Trade{
		ID:         pos.ID,
		Direction:  pos.Direction,
		EntryIndex: pos.EntryIndex,
		EntryTime:  pos.EntryTime,
		EntryPrice: pos.EntryPrice,
		ExitIndex:  idx,
		ExitTime:   at,
		ExitPrice:  price,
		Size:       pos.Size,
		PnL:        pnl,
		Commission: commission,
		ExitReason: reason,
	}
	res.Trades = append(res.Trades, trade)
	slog.Debug("position closed",
		"id", pos.ID,
		"bar", idx,
		"exit", price,
		"reason", reason,
		"pnl", pnl,
	)
	return pnl
}

// fillPrice aplica el slippage adverso a un fill de mercado (entradas y
// salidas por reversión). Los fills de stop/target se ejecutan al nivel.
func (r *Runner) fillPrice(open float64, dir domain.Direction, closing bool) float64 {
	adverse := r.cfg.Slippage
	buy := dir == domain.Long
	if closing {
		buy = !buy
	}
	if buy {
		return open * (1 + adverse)
	}
	return open * (1 - adverse)
}
