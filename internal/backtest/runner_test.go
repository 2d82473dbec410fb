package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/levels"
	"github.com/alejandrodnm/velabot/internal/signals"
)

// scenario monta un run completo sobre una serie fija de cinco barras donde
// la barra 1 genera una entrada larga que se llena en la apertura de la
// barra 2 a 100: stop = 100 − 1.5×2 = 97, target = 100 + 2×3 = 106, tamaño
// = 10000×0.1/100 = 10. Los tests mutan columnas o barras para recorrer cada
// camino de salida.
type scenario struct {
	bars []domain.Bar
	cols *signals.Columns
	rcfg Config
}

func newScenario() *scenario {
	day := func(d int) time.Time {
		return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	}
	bars := []domain.Bar{
		{Time: day(1), Open: 99, High: 100, Low: 98, Close: 99, Volume: 100},
		{Time: day(2), Open: 98, High: 101.5, Low: 97.9, Close: 101, Volume: 200},
		{Time: day(3), Open: 100, High: 100.5, Low: 99, Close: 100, Volume: 100},
		{Time: day(4), Open: 100, High: 103, Low: 99.8, Close: 102, Volume: 100},
		{Time: day(5), Open: 101, High: 101.2, Low: 99.5, Close: 100, Volume: 100},
	}
	nan := math.NaN()
	none := make([]domain.PatternMatch, len(bars))
	for i := range none {
		none[i] = domain.NoMatch
	}
	none[1] = domain.PatternMatch{Type: domain.PatternBullishEngulfing, Bias: domain.BiasBullish, Strength: 1, Span: 2}
	noBreak := make([]domain.PatternMatch, len(bars))
	for i := range noBreak {
		noBreak[i] = domain.NoMatch
	}
	cols := &signals.Columns{
		Pattern:    none,
		Breakout:   noBreak,
		RSI:        []float64{nan, 55, nan, nan, nan},
		MACD:       []float64{nan, nan, nan, nan, nan},
		MACDSignal: []float64{nan, nan, nan, nan, nan},
		MACDHist:   []float64{0.5, 0.5, 0.5, 0.5, 0.5},
		ATR:        []float64{2, 2, 2, 2, 2},
		VolumeMean: []float64{nan, 100, nan, nan, nan},
		Momentum:   []float64{nan, 0.3, nan, nan, nan},
		TrendSlope: []float64{nan, nan, nan, nan, nan},
	}
	return &scenario{
		bars: bars,
		cols: cols,
		rcfg: Config{
			InitialEquity:  10000,
			SizingFraction: 0.1,
			ATRMultiplier:  1.5,
			RiskReward:     2,
			Commission:     0,
			Slippage:       0,
			BreakevenAt:    0.5,
		},
	}
}

func (s *scenario) run(t *testing.T) *Result {
	t.Helper()
	closes := make([]float64, len(s.bars))
	for i, b := range s.bars {
		closes[i] = b.Close
	}
	det := levels.New(levels.Config{MAWindows: []int{2}, FibLookback: 100, ToleranceATR: 0.5}, closes)
	ecfg := signals.Config{StrengthCutoff: 0.5, VolumeMultiplier: 1.5, AllowLong: true, AllowShort: true}
	engine := signals.NewEngine(ecfg, s.bars, s.cols, det)
	return NewRunner(s.rcfg, engine, s.cols, s.bars).Run(252)
}

func TestRun_TrailingStopLifecycle(t *testing.T) {
	s := newScenario()
	res := s.run(t)

	// Entrada en la apertura de la barra 2. El máximo 103 de la barra 3
	// sube el ratchet a 103 − 3 = 100 y dispara el breakeven; el mínimo
	// 99.5 de la barra 5 cruza el stop subido y cierra a 100, P&L cero.
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.Long, tr.Direction)
	assert.Equal(t, 2, tr.EntryIndex)
	assert.InDelta(t, 100, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 10, tr.Size, 1e-9)
	assert.Equal(t, 4, tr.ExitIndex)
	assert.InDelta(t, 100, tr.ExitPrice, 1e-9)
	assert.Equal(t, domain.ExitStopLoss, tr.ExitReason)
	assert.InDelta(t, 0, tr.PnL, 1e-9)

	assert.Nil(t, res.OpenPosition)
	assert.InDelta(t, 10000, res.FinalEquity, 1e-9)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, domain.EntryLong, res.Signals[0].Kind)
	assert.Equal(t, 1, res.Signals[0].BarIndex)
	assert.Len(t, res.EquityCurve, 5)
}

func TestRun_InitialStopBeforeRatchet(t *testing.T) {
	// Una barra que cruza stop y target a la vez se resuelve por el stop, y
	// contra el stop vigente al cierre de la barra anterior (97, no el
	// ratchet que generaría su propio máximo).
	s := newScenario()
	s.bars[3] = domain.Bar{Time: s.bars[3].Time, Open: 100, High: 107, Low: 96, Close: 100, Volume: 100}
	res := s.run(t)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, 3, tr.ExitIndex)
	assert.InDelta(t, 97, tr.ExitPrice, 1e-9)
	assert.Equal(t, domain.ExitStopLoss, tr.ExitReason)
	assert.InDelta(t, -30, tr.PnL, 1e-9)
	assert.InDelta(t, 9970, res.FinalEquity, 1e-9)
}

func TestRun_EntryBarNotStoppedSameBar(t *testing.T) {
	// La posición se llena en la apertura de la barra 2 con stop 97. Aunque
	// el mínimo 96 de esa misma barra cruza el stop inicial, la vigilancia
	// empieza en la barra siguiente: el cierre llega en la barra 3.
	s := newScenario()
	s.bars[2] = domain.Bar{Time: s.bars[2].Time, Open: 100, High: 100.5, Low: 96, Close: 100, Volume: 100}
	s.bars[3] = domain.Bar{Time: s.bars[3].Time, Open: 100, High: 100.5, Low: 96.5, Close: 100, Volume: 100}
	res := s.run(t)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, 2, tr.EntryIndex)
	assert.Equal(t, 3, tr.ExitIndex)
	assert.InDelta(t, 97, tr.ExitPrice, 1e-9)
	assert.Equal(t, domain.ExitStopLoss, tr.ExitReason)
	assert.InDelta(t, -30, tr.PnL, 1e-9)
}

func TestRun_TakeProfitAtLevel(t *testing.T) {
	s := newScenario()
	s.bars[3] = domain.Bar{Time: s.bars[3].Time, Open: 100, High: 106.5, Low: 99.8, Close: 106, Volume: 100}
	res := s.run(t)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitTakeProfit, tr.ExitReason)
	assert.InDelta(t, 106, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 60, tr.PnL, 1e-9)
}

func TestRun_ReversalExitFillsAtNextOpen(t *testing.T) {
	s := newScenario()
	s.cols.Pattern[3] = domain.PatternMatch{Type: domain.PatternBearishEngulfing, Bias: domain.BiasBearish, Strength: 0.8, Span: 2}
	res := s.run(t)

	// La señal de la barra 3 se llena en la apertura de la barra 4 (101),
	// antes de vigilar el stop de esa barra.
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, domain.ExitReversalSignal, tr.ExitReason)
	assert.Equal(t, 4, tr.ExitIndex)
	assert.InDelta(t, 101, tr.ExitPrice, 1e-9)
	assert.InDelta(t, 10, tr.PnL, 1e-9)
	assert.InDelta(t, 10010, res.FinalEquity, 1e-9)
	require.Len(t, res.Signals, 2)
	assert.Equal(t, domain.Exit, res.Signals[1].Kind)
}

func TestRun_OpenPositionExcludedFromLedger(t *testing.T) {
	s := newScenario()
	s.bars = s.bars[:3]
	s.cols.Pattern = s.cols.Pattern[:3]
	s.cols.Breakout = s.cols.Breakout[:3]
	s.cols.RSI = s.cols.RSI[:3]
	s.cols.MACD = s.cols.MACD[:3]
	s.cols.MACDSignal = s.cols.MACDSignal[:3]
	s.cols.MACDHist = s.cols.MACDHist[:3]
	s.cols.ATR = s.cols.ATR[:3]
	s.cols.VolumeMean = s.cols.VolumeMean[:3]
	s.cols.Momentum = s.cols.Momentum[:3]
	s.cols.TrendSlope = s.cols.TrendSlope[:3]
	res := s.run(t)

	assert.Empty(t, res.Trades)
	require.NotNil(t, res.OpenPosition)
	assert.InDelta(t, 100, res.OpenPosition.EntryPrice, 1e-9)
	assert.InDelta(t, 97, res.OpenPosition.StopLoss, 1e-9)
	assert.InDelta(t, 106, res.OpenPosition.TakeProfit, 1e-9)
	assert.InDelta(t, 10000, res.FinalEquity, 1e-9)
	assert.Equal(t, 0, res.Report.TotalTrades)
	assert.True(t, domain.IsNA(res.Report.WinRate))
}

func TestRun_SlippageAndCommission(t *testing.T) {
	s := newScenario()
	s.bars = s.bars[:3]
	s.cols.Pattern = s.cols.Pattern[:3]
	s.cols.Breakout = s.cols.Breakout[:3]
	s.cols.RSI = s.cols.RSI[:3]
	s.cols.MACD = s.cols.MACD[:3]
	s.cols.MACDSignal = s.cols.MACDSignal[:3]
	s.cols.MACDHist = s.cols.MACDHist[:3]
	s.cols.ATR = s.cols.ATR[:3]
	s.cols.VolumeMean = s.cols.VolumeMean[:3]
	s.cols.Momentum = s.cols.Momentum[:3]
	s.cols.TrendSlope = s.cols.TrendSlope[:3]
	s.rcfg.Slippage = 0.01
	s.rcfg.Commission = 0.001
	res := s.run(t)

	// El fill de mercado paga el slippage adverso: 100 × 1.01 = 101. El
	// stop y el target se anclan al precio realmente pagado.
	require.NotNil(t, res.OpenPosition)
	pos := res.OpenPosition
	assert.InDelta(t, 101, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 98, pos.StopLoss, 1e-9)
	assert.InDelta(t, 107, pos.TakeProfit, 1e-9)
	assert.InDelta(t, 10000*0.1/101, pos.Size, 1e-9)
}

func TestRun_EmptySeries(t *testing.T) {
	s := newScenario()
	s.bars = nil
	empty := &signals.Columns{}
	det := levels.New(levels.DefaultConfig(), nil)
	engine := signals.NewEngine(signals.Config{AllowLong: true, AllowShort: true}, nil, empty, det)
	res := NewRunner(s.rcfg, engine, empty, nil).Run(252)

	assert.Empty(t, res.Trades)
	assert.Empty(t, res.Signals)
	assert.Nil(t, res.OpenPosition)
	assert.InDelta(t, 10000, res.FinalEquity, 1e-9)
	assert.Equal(t, 0, res.Report.TotalTrades)
}

func TestFillPrice_AdverseSlippage(t *testing.T) {
	r := &Runner{cfg: Config{Slippage: 0.01}}

	// Comprar paga más caro, vender recibe menos, tanto al abrir como al cerrar.
	assert.InDelta(t, 101, r.fillPrice(100, domain.Long, false), 1e-9)
	assert.InDelta(t, 99, r.fillPrice(100, domain.Long, true), 1e-9)
	assert.InDelta(t, 99, r.fillPrice(100, domain.Short, false), 1e-9)
	assert.InDelta(t, 101, r.fillPrice(100, domain.Short, true), 1e-9)
}
