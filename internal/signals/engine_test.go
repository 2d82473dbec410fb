package signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/levels"
)

// testFixture monta un motor con columnas sintéticas sobre dos barras: la
// barra 1 cumple todas las condiciones de entrada larga salvo que un test
// las rompa una a una.
type testFixture struct {
	bars []domain.Bar
	cols *Columns
}

func newFixture() *testFixture {
	bars := []domain.Bar{
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 100, High: 101, Low: 98.9, Close: 99, Volume: 100},
		{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 98, High: 101.5, Low: 97.9, Close: 101, Volume: 200},
	}
	nan := math.NaN()
	cols := &Columns{
		Pattern: []domain.PatternMatch{
			{Type: domain.PatternNone, Bias: domain.BiasNeutral},
			{Type: domain.PatternBullishEngulfing, Bias: domain.BiasBullish, Strength: 1, Span: 2},
		},
		Breakout:   []domain.PatternMatch{domain.NoMatch, domain.NoMatch},
		RSI:        []float64{nan, 55},
		MACDHist:   []float64{0.2, 0.3},
		MACD:       []float64{nan, nan},
		MACDSignal: []float64{nan, nan},
		ATR:        []float64{2, 2},
		VolumeMean: []float64{nan, 100},
		Momentum:   []float64{nan, 0.4},
		TrendSlope: []float64{nan, nan},
	}
	return &testFixture{bars: bars, cols: cols}
}

func (f *testFixture) engine(cfg Config) *Engine {
	// Media de 2 barras: SMA(99, 101) = 100, el cierre 101 queda por encima
	// (soporte) y dentro de la banda 100 ± 0.5×ATR.
	det := levels.New(levels.Config{MAWindows: []int{2}, FibLookback: 100, ToleranceATR: 0.5}, []float64{99, 101})
	return NewEngine(cfg, f.bars, f.cols, det)
}

func defaultCfg() Config {
	return Config{StrengthCutoff: 0.5, VolumeMultiplier: 1.5, AllowLong: true, AllowShort: true}
}

func TestEvaluate_EntryLong(t *testing.T) {
	f := newFixture()
	sig := f.engine(defaultCfg()).Evaluate(1, nil)

	require.NotNil(t, sig)
	assert.Equal(t, domain.EntryLong, sig.Kind)
	assert.Equal(t, 1, sig.BarIndex)
	assert.Equal(t, domain.PatternBullishEngulfing, sig.Rationale.Pattern.Type)
	require.NotNil(t, sig.Rationale.Zone)
	assert.Equal(t, domain.ZoneSupport, sig.Rationale.Zone.Kind)
	assert.InDelta(t, 2.0, sig.Rationale.VolumeRatio, 1e-9)
	assert.InDelta(t, 55, sig.Rationale.RSI, 1e-9)
}

func TestEvaluate_NoEntryBelowStrengthCutoff(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1].Strength = 0.4
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_NoEntryWithRSIBelow50(t *testing.T) {
	f := newFixture()
	f.cols.RSI[1] = 45
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_UnavailableRSINeverConfirms(t *testing.T) {
	f := newFixture()
	f.cols.RSI[1] = math.NaN()
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_UnavailableMACDNeverConfirms(t *testing.T) {
	f := newFixture()
	f.cols.MACDHist[1] = math.NaN()
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_NoEntryOnWeakVolume(t *testing.T) {
	f := newFixture()
	f.bars[1].Volume = 120 // ratio 1.2 < k=1.5
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_NoEntryWithoutZone(t *testing.T) {
	f := newFixture()
	f.cols.ATR[1] = math.NaN() // sin ATR no hay zonas disponibles
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_NoEntryAgainstMomentum(t *testing.T) {
	f := newFixture()
	f.cols.Momentum[1] = -0.2
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_DirectionFilter(t *testing.T) {
	f := newFixture()
	cfg := defaultCfg()
	cfg.AllowLong = false
	assert.Nil(t, f.engine(cfg).Evaluate(1, nil))
}

func TestEvaluate_NeutralBiasNeverEnters(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.PatternMatch{Type: domain.PatternDoji, Bias: domain.BiasNeutral, Strength: 1}
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_BreakoutEntersWithoutCandlestickPattern(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Breakout[1] = domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBullish, Strength: 0.8, Span: 1}

	sig := f.engine(defaultCfg()).Evaluate(1, nil)
	require.NotNil(t, sig)
	assert.Equal(t, domain.EntryLong, sig.Kind)
	assert.Equal(t, domain.PatternBreakout, sig.Rationale.Pattern.Type)
}

func TestEvaluate_WeakBreakoutDoesNotEnter(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Breakout[1] = domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBullish, Strength: 0.3, Span: 1}
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func TestEvaluate_NeutralDojiDoesNotBlockBreakout(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.PatternMatch{Type: domain.PatternDoji, Bias: domain.BiasNeutral, Strength: 1}
	f.cols.Breakout[1] = domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBullish, Strength: 0.9, Span: 1}

	sig := f.engine(defaultCfg()).Evaluate(1, nil)
	require.NotNil(t, sig)
	assert.Equal(t, domain.PatternBreakout, sig.Rationale.Pattern.Type)
}

func TestEvaluate_BreakoutEntryKeepsConfirmations(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Breakout[1] = domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBullish, Strength: 0.8, Span: 1}
	f.bars[1].Volume = 120 // ratio 1.2 < k=1.5
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, nil))
}

func openLong() *domain.Position {
	return &domain.Position{ID: "t", Direction: domain.Long, EntryPrice: 100, Size: 1}
}

func TestEvaluate_ExitOnReversalPattern(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.PatternMatch{Type: domain.PatternBearishEngulfing, Bias: domain.BiasBearish, Strength: 0.8, Span: 2}

	sig := f.engine(defaultCfg()).Evaluate(1, openLong())
	require.NotNil(t, sig)
	assert.Equal(t, domain.Exit, sig.Kind)
	assert.Contains(t, sig.Rationale.Reason, "reversal")
}

func TestEvaluate_WeakReversalDoesNotExit(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.PatternMatch{Type: domain.PatternBearishEngulfing, Bias: domain.BiasBearish, Strength: 0.3, Span: 2}
	// RSI 55 y histograma estable: ninguna otra condición de salida.
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, openLong()))
}

func TestEvaluate_ExitOnAdverseMomentum(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Momentum[1] = -0.4
	f.cols.TrendSlope[1] = -0.2

	sig := f.engine(defaultCfg()).Evaluate(1, openLong())
	require.NotNil(t, sig)
	assert.Equal(t, domain.Exit, sig.Kind)
	assert.Contains(t, sig.Rationale.Reason, "momentum")
}

func TestEvaluate_AdverseMomentumNeedsTrendAgainst(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Momentum[1] = -0.4
	f.cols.TrendSlope[1] = 0.2
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, openLong()))
}

func TestEvaluate_ShortExitOnAdverseMomentum(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.Momentum[1] = 0.4
	f.cols.TrendSlope[1] = 0.2
	pos := &domain.Position{ID: "s", Direction: domain.Short, EntryPrice: 100, Size: 1}

	sig := f.engine(defaultCfg()).Evaluate(1, pos)
	require.NotNil(t, sig)
	assert.Contains(t, sig.Rationale.Reason, "momentum")
}

func TestEvaluate_ExitOnMACDCross(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.MACDHist[0] = 0.2
	f.cols.MACDHist[1] = -0.1

	sig := f.engine(defaultCfg()).Evaluate(1, openLong())
	require.NotNil(t, sig)
	assert.Contains(t, sig.Rationale.Reason, "macd")
}

func TestEvaluate_ExitOnRSIExtreme(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	f.cols.RSI[1] = 72

	sig := f.engine(defaultCfg()).Evaluate(1, openLong())
	require.NotNil(t, sig)
	assert.Contains(t, sig.Rationale.Reason, "overbought")
}

func TestEvaluate_ShortExitMirrors(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.PatternMatch{Type: domain.PatternHammer, Bias: domain.BiasBullish, Strength: 0.9}
	pos := &domain.Position{ID: "s", Direction: domain.Short, EntryPrice: 100, Size: 1}

	sig := f.engine(defaultCfg()).Evaluate(1, pos)
	require.NotNil(t, sig)
	assert.Equal(t, domain.Exit, sig.Kind)
}

func TestEvaluate_NoExitWhenNothingFires(t *testing.T) {
	f := newFixture()
	f.cols.Pattern[1] = domain.NoMatch
	assert.Nil(t, f.engine(defaultCfg()).Evaluate(1, openLong()))
}
