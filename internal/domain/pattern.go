package domain

// PatternType identifica la figura de velas detectada.
type PatternType string

const (
	PatternNone             PatternType = "None"
	PatternBullishEngulfing PatternType = "BullishEngulfing"
	PatternBearishEngulfing PatternType = "BearishEngulfing"
	PatternDoji             PatternType = "Doji"
	PatternHammer           PatternType = "Hammer"
	PatternShootingStar     PatternType = "ShootingStar"
	PatternMarubozu         PatternType = "Marubozu"
	// PatternBreakout es una vela de ruptura de consolidación: cuerpo grande
	// que cierra fuera del rango de la ventana previa. No es geometría de una
	// vela aislada, así que lo emite el precómputo y no el clasificador.
	PatternBreakout PatternType = "Breakout"
)

// Bias es el sesgo direccional de una figura.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// PatternMatch es el resultado de clasificar la geometría de una o dos velas.
type PatternMatch struct {
	Type     PatternType
	Bias     Bias
	Strength float64 // 0..1
	Span     int     // barras que cubre la figura: 1 o 2
}

// NoMatch es el resultado nulo del clasificador.
var NoMatch = PatternMatch{Type: PatternNone, Bias: BiasNeutral, Span: 1}

// IsReversalAgainst devuelve true si la figura es una señal de reversión
// contra una posición abierta en la dirección dada: engulfing opuesto,
// shooting star contra un largo o hammer contra un corto.
func (m PatternMatch) IsReversalAgainst(dir Direction) bool {
	switch dir {
	case Long:
		return m.Type == PatternBearishEngulfing || m.Type == PatternShootingStar
	case Short:
		return m.Type == PatternBullishEngulfing || m.Type == PatternHammer
	}
	return false
}
