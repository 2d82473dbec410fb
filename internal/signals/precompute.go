package signals

// precompute.go — columnas por barra calculadas antes del pase secuencial.
//
// Cada valor en el índice i es función pura del prefijo [0..i], de modo que
// calcularlas por adelantado (y las figuras en paralelo) no altera las
// garantías de no-look-ahead del pase del gestor de posiciones.

import (
	"math"
	"runtime"
	"sync"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/indicators"
	"github.com/alejandrodnm/velabot/internal/patterns"
)

// IndicatorParams son los periodos con los que se computan las columnas.
type IndicatorParams struct {
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	ATRPeriod        int
	TrendPeriod      int
	VolumeWindow     int
	MomentumShort    int
	MomentumMedium   int
	BreakoutLookback int
}

// Columns son las lecturas por barra que consume el motor de señales y el
// gestor de posiciones. NaN marca "no disponible".
type Columns struct {
	Pattern    []domain.PatternMatch
	Breakout   []domain.PatternMatch
	RSI        []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
	ATR        []float64
	VolumeMean []float64
	Momentum   []float64
	TrendSlope []float64
}

// Precompute calcula todas las columnas sobre la serie. Las columnas de
// indicadores son recurrencias (Wilder, EMA) y se calculan secuencialmente;
// la clasificación de figuras es independiente por barra y se reparte entre
// workers. Con workers <= 0 usa runtime.NumCPU().
func Precompute(bars []domain.Bar, params IndicatorParams, cls *patterns.Classifier, workers int) *Columns {
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	cols := &Columns{
		RSI:        indicators.RSI(closes, params.RSIPeriod),
		ATR:        indicators.ATR(bars, params.ATRPeriod),
		VolumeMean: indicators.RollingMean(volumes, params.VolumeWindow),
		Momentum:   indicators.MomentumScore(closes, params.MomentumShort, params.MomentumMedium),
		TrendSlope: indicators.Slope(closes, params.TrendPeriod),
		Pattern:    make([]domain.PatternMatch, len(bars)),
		Breakout:   make([]domain.PatternMatch, len(bars)),
	}
	cols.MACD, cols.MACDSignal, cols.MACDHist = indicators.MACD(closes, params.MACDFast, params.MACDSlow, params.MACDSignal)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Worker pool: cada worker clasifica un subconjunto de índices. El sesgo
	// de tendencia de la barra i usa la pendiente en i-1 (previa a la barra).
	idxCh := make(chan int, len(bars))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				var prev *domain.Bar
				if i > 0 {
					p := bars[i-1]
					prev = &p
				}
				trendUp, trendDown := trendBias(cols.TrendSlope, i)
				cols.Pattern[i] = cls.Classify(prev, bars[i], trendUp, trendDown, cols.ATR[i])
				cols.Breakout[i] = breakoutAt(bars, i, params.BreakoutLookback)
			}
		}()
	}
	for i := range bars {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	return cols
}

const (
	// breakoutBodyMultiple es cuántas veces debe superar el cuerpo de la
	// vela de ruptura al cuerpo medio de la ventana previa.
	breakoutBodyMultiple = 2.0
	// consolidationFraction acota el rango de la ventana previa respecto al
	// cierre medio para considerarla una consolidación.
	consolidationFraction = 0.2
)

// breakoutAt detecta una vela de ruptura en la barra i: la ventana previa
// [i-lookback, i) forma una consolidación estrecha y la vela actual cierra
// fuera de su rango con un cuerpo grande. La ventana excluye la barra actual.
// La fuerza llega a 0.5 justo en el umbral de cuerpo y satura en el doble.
func breakoutAt(bars []domain.Bar, i, lookback int) domain.PatternMatch {
	if lookback <= 0 || i < lookback {
		return domain.NoMatch
	}
	var bodySum, closeSum float64
	hi, lo := math.Inf(-1), math.Inf(1)
	for j := i - lookback; j < i; j++ {
		bodySum += bars[j].Body()
		closeSum += bars[j].Close
		hi = math.Max(hi, bars[j].High)
		lo = math.Min(lo, bars[j].Low)
	}
	avgBody := bodySum / float64(lookback)
	avgClose := closeSum / float64(lookback)

	cur := bars[i]
	if avgBody <= 0 || cur.Body() <= breakoutBodyMultiple*avgBody {
		return domain.NoMatch
	}
	if hi-lo >= consolidationFraction*avgClose {
		return domain.NoMatch
	}

	strength := cur.Body() / (2 * breakoutBodyMultiple * avgBody)
	if strength > 1 {
		strength = 1
	}
	switch {
	case cur.IsBullish() && cur.Close > hi:
		return domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBullish, Strength: strength, Span: 1}
	case cur.IsBearish() && cur.Close < lo:
		return domain.PatternMatch{Type: domain.PatternBreakout, Bias: domain.BiasBearish, Strength: strength, Span: 1}
	}
	return domain.NoMatch
}

// trendBias devuelve la dirección de la tendencia previa a la barra i según
// la pendiente de la media corta en i-1. Sin pendiente disponible no hay
// sesgo y las figuras dependientes de tendencia no se emiten.
func trendBias(slope []float64, i int) (up, down bool) {
	if i == 0 {
		return false, false
	}
	s := slope[i-1]
	if !indicators.Valid(s) {
		return false, false
	}
	return s > 0, s < 0
}
