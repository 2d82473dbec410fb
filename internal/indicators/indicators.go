package indicators

// indicators.go — funciones puras sobre la serie de barras.
//
// Convención: cada función devuelve un slice de la misma longitud que su
// entrada, con math.NaN() en el prefijo de warmup donde el indicador aún no
// tiene historia suficiente. Los consumidores deben tratar NaN como
// "no disponible" y nunca como confirmación (ver Valid).

import (
	"math"

	"github.com/alejandrodnm/velabot/internal/domain"
)

// Valid devuelve true si la lectura del indicador está disponible.
func Valid(v float64) bool { return !math.IsNaN(v) }

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA devuelve la media móvil simple de periodo n. Disponible desde el
// índice n-1.
func SMA(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA devuelve la media móvil exponencial de periodo n, sembrada con la SMA
// de las primeras n muestras. Disponible desde el índice n-1.
func EMA(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	var seed float64
	for _, v := range values[:n] {
		seed += v
	}
	seed /= float64(n)
	out[n-1] = seed

	alpha := 2.0 / float64(n+1)
	prev := seed
	for i := n; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// RollingMean devuelve la media trailing de las n muestras ANTERIORES a cada
// índice (excluye la muestra actual). Se usa para el filtro de volumen: el
// volumen de la barra actual se compara contra la media de las previas.
func RollingMean(values []float64, n int) []float64 {
	out := nans(len(values))
	if n <= 0 || len(values) <= n {
		return out
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += values[i]
	}
	for i := n; i < len(values); i++ {
		out[i] = sum / float64(n)
		sum += values[i] - values[i-n]
	}
	return out
}

// RSI devuelve el Relative Strength Index de periodo n con suavizado de
// Wilder. Disponible desde el índice n.
func RSI(closes []float64, n int) []float64 {
	out := nans(len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = rsiValue(avgGain, avgLoss)

	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // sin movimiento en la ventana
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD devuelve la línea MACD (EMA rápida − EMA lenta), su línea de señal
// (EMA del MACD) y el histograma (MACD − señal). El histograma está
// disponible desde el índice slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	n := len(closes)
	macd = nans(n)
	signalLine = nans(n)
	histogram = nans(n)
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow {
		return
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	// EMA de la línea MACD, sembrada sobre su tramo disponible.
	sig := EMA(macd[slow-1:], signal)
	for i, v := range sig {
		signalLine[slow-1+i] = v
		if Valid(v) {
			histogram[slow-1+i] = macd[slow-1+i] - v
		}
	}
	return
}

// TrueRange devuelve el true range por barra; la primera barra usa high-low.
func TrueRange(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.Range()
		if i > 0 {
			prevClose := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
		}
		out[i] = tr
	}
	return out
}

// ATR devuelve el Average True Range de periodo n con suavizado de Wilder.
// Disponible desde el índice n.
func ATR(bars []domain.Bar, n int) []float64 {
	out := nans(len(bars))
	if n <= 0 || len(bars) <= n {
		return out
	}
	tr := TrueRange(bars)
	var sum float64
	for i := 1; i <= n; i++ {
		sum += tr[i]
	}
	prev := sum / float64(n)
	out[n] = prev
	for i := n + 1; i < len(bars); i++ {
		prev = (prev*float64(n-1) + tr[i]) / float64(n)
		out[i] = prev
	}
	return out
}

// Bollinger devuelve las bandas de Bollinger: SMA de periodo n ± k
// desviaciones estándar (poblacional). Disponibles desde el índice n-1.
func Bollinger(closes []float64, n int, k float64) (upper, middle, lower []float64) {
	m := len(closes)
	upper = nans(m)
	lower = nans(m)
	middle = SMA(closes, n)
	if n <= 1 || m < n {
		return
	}
	for i := n - 1; i < m; i++ {
		mean := middle[i]
		var ss float64
		for j := i - n + 1; j <= i; j++ {
			d := closes[j] - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(n))
		upper[i] = mean + k*sd
		lower[i] = mean - k*sd
	}
	return
}

// Slope devuelve la pendiente de la SMA de periodo n como diferencia simple
// entre valores consecutivos. Sirve de sesgo de tendencia para figuras de
// reversión. Disponible desde el índice n.
func Slope(values []float64, n int) []float64 {
	out := nans(len(values))
	sma := SMA(values, n)
	for i := n; i < len(values); i++ {
		if Valid(sma[i]) && Valid(sma[i-1]) {
			out[i] = sma[i] - sma[i-1]
		}
	}
	return out
}

// MomentumScore devuelve un score de momentum en [-1, 1] combinando el
// retorno de corto plazo (peso 0.7) y el de medio plazo (peso 0.3).
// Disponible desde el índice medium.
func MomentumScore(closes []float64, short, medium int) []float64 {
	out := nans(len(closes))
	if short <= 0 || medium <= short {
		return out
	}
	for i := medium; i < len(closes); i++ {
		if closes[i-short] == 0 || closes[i-medium] == 0 {
			continue
		}
		st := (closes[i] - closes[i-short]) / closes[i-short]
		mt := (closes[i] - closes[i-medium]) / closes[i-medium]
		score := 0.7*st + 0.3*mt
		out[i] = math.Max(-1, math.Min(1, score))
	}
	return out
}
