package patterns

// classifier.go — clasificación determinista de geometría de velas.
//
// El clasificador es una función pura de la barra actual y, para engulfing,
// de la barra anterior. El sesgo de Hammer/ShootingStar depende además de la
// dirección de la tendencia previa, que el llamante calcula con la pendiente
// de una media corta (nunca con barras futuras).

import (
	"math"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/indicators"
)

// Config son los umbrales del clasificador.
type Config struct {
	// DojiEpsilon: |close-open| <= ε × (high-low) para clasificar doji.
	DojiEpsilon float64
	// MarubozuDelta: cada mecha <= δ × cuerpo para clasificar marubozu.
	MarubozuDelta float64
}

// DefaultConfig devuelve los umbrales por defecto de la estrategia.
func DefaultConfig() Config {
	return Config{DojiEpsilon: 0.1, MarubozuDelta: 0.05}
}

// Classifier clasifica figuras de velas con los umbrales configurados.
type Classifier struct {
	cfg Config
}

// New crea un Classifier.
func New(cfg Config) *Classifier {
	if cfg.DojiEpsilon <= 0 {
		cfg.DojiEpsilon = 0.1
	}
	if cfg.MarubozuDelta <= 0 {
		cfg.MarubozuDelta = 0.05
	}
	return &Classifier{cfg: cfg}
}

// Classify inspecciona cur (y prev si existe) y devuelve la figura de mayor
// fuerza. trendUp/trendDown es el sesgo de tendencia previo a la barra; atr
// es la lectura de ATR en la barra (NaN si no disponible) y solo escala la
// fuerza del marubozu.
//
// Empates: gana la mayor fuerza; a igualdad, el orden de prioridad es
// Engulfing > Hammer/ShootingStar > Marubozu > Doji (las señales de
// reversión/continuación mandan sobre las de indecisión).
func (c *Classifier) Classify(prev *domain.Bar, cur domain.Bar, trendUp, trendDown bool, atr float64) domain.PatternMatch {
	if cur.Range() <= 0 {
		// Barra degenerada (high == low): sin geometría que clasificar.
		return domain.NoMatch
	}

	candidates := make([]domain.PatternMatch, 0, 4)
	if prev != nil {
		if m, ok := c.matchEngulfing(*prev, cur); ok {
			candidates = append(candidates, m)
		}
	}
	if m, ok := c.matchHammerOrStar(cur, trendUp, trendDown); ok {
		candidates = append(candidates, m)
	}
	if m, ok := c.matchMarubozu(cur, atr); ok {
		candidates = append(candidates, m)
	}
	if m, ok := c.matchDoji(cur); ok {
		candidates = append(candidates, m)
	}

	best := domain.NoMatch
	bestRank := -1
	for _, m := range candidates {
		rank := priority(m.Type)
		if m.Strength > best.Strength || (m.Strength == best.Strength && rank > bestRank) {
			best = m
			bestRank = rank
		}
	}
	return best
}

// priority ordena los tipos para desempates; mayor es más prioritario.
func priority(t domain.PatternType) int {
	switch t {
	case domain.PatternBullishEngulfing, domain.PatternBearishEngulfing:
		return 4
	case domain.PatternHammer, domain.PatternShootingStar:
		return 3
	case domain.PatternMarubozu:
		return 2
	case domain.PatternDoji:
		return 1
	}
	return 0
}

// matchEngulfing detecta engulfing alcista/bajista: el cuerpo actual contiene
// y excede al cuerpo previo de color opuesto. La fuerza escala con el ratio
// de cuerpos, con tope en 1.
func (c *Classifier) matchEngulfing(prev, cur domain.Bar) (domain.PatternMatch, bool) {
	bullish := prev.IsBearish() && cur.IsBullish() &&
		cur.Open < prev.Close && cur.Close > prev.Open
	bearish := prev.IsBullish() && cur.IsBearish() &&
		cur.Open > prev.Close && cur.Close < prev.Open
	if !bullish && !bearish {
		return domain.NoMatch, false
	}

	strength := 1.0
	if prev.Body() > 0 {
		strength = clamp01(cur.Body() / prev.Body())
	}
	m := domain.PatternMatch{Strength: strength, Span: 2}
	if bullish {
		m.Type = domain.PatternBullishEngulfing
		m.Bias = domain.BiasBullish
	} else {
		m.Type = domain.PatternBearishEngulfing
		m.Bias = domain.BiasBearish
	}
	return m, true
}

// matchDoji detecta indecisión: cuerpo despreciable frente al rango. La
// fuerza crece cuanto menor es el cuerpo relativo.
func (c *Classifier) matchDoji(cur domain.Bar) (domain.PatternMatch, bool) {
	bodyFrac := cur.Body() / cur.Range()
	if bodyFrac > c.cfg.DojiEpsilon {
		return domain.NoMatch, false
	}
	return domain.PatternMatch{
		Type:     domain.PatternDoji,
		Bias:     domain.BiasNeutral,
		Strength: clamp01(1 - bodyFrac/c.cfg.DojiEpsilon),
		Span:     1,
	}, true
}

// matchHammerOrStar detecta martillo (cuerpo en el tercio superior, mecha
// inferior >= 2× cuerpo) y estrella fugaz (espejo). El sesgo es de reversión:
// martillo tras tendencia bajista es alcista; estrella tras alcista, bajista.
// Sin tendencia previa clara la figura no tiene sesgo y se descarta.
func (c *Classifier) matchHammerOrStar(cur domain.Bar, trendUp, trendDown bool) (domain.PatternMatch, bool) {
	body := cur.Body()
	if body <= 0 {
		return domain.NoMatch, false
	}
	rng := cur.Range()
	third := rng / 3
	bodyTop := math.Max(cur.Open, cur.Close)
	bodyBottom := math.Min(cur.Open, cur.Close)

	hammer := bodyBottom >= cur.High-third && cur.LowerWick() >= 2*body
	star := bodyTop <= cur.Low+third && cur.UpperWick() >= 2*body

	switch {
	case hammer && trendDown:
		return domain.PatternMatch{
			Type:     domain.PatternHammer,
			Bias:     domain.BiasBullish,
			Strength: clamp01(cur.LowerWick() / (2 * body) / 2),
			Span:     1,
		}, true
	case star && trendUp:
		return domain.PatternMatch{
			Type:     domain.PatternShootingStar,
			Bias:     domain.BiasBearish,
			Strength: clamp01(cur.UpperWick() / (2 * body) / 2),
			Span:     1,
		}, true
	}
	return domain.NoMatch, false
}

// matchMarubozu detecta velas de convicción: ambas mechas <= δ × cuerpo.
// La fuerza escala con el cuerpo relativo al ATR reciente; sin ATR
// disponible se usa el rango propio de la barra como referencia.
func (c *Classifier) matchMarubozu(cur domain.Bar, atr float64) (domain.PatternMatch, bool) {
	body := cur.Body()
	if body <= 0 {
		return domain.NoMatch, false
	}
	maxWick := c.cfg.MarubozuDelta * body
	if cur.UpperWick() > maxWick || cur.LowerWick() > maxWick {
		return domain.NoMatch, false
	}

	ref := atr
	if !indicators.Valid(ref) || ref <= 0 {
		ref = cur.Range()
	}
	bias := domain.BiasBullish
	if cur.IsBearish() {
		bias = domain.BiasBearish
	}
	return domain.PatternMatch{
		Type:     domain.PatternMarubozu,
		Bias:     bias,
		Strength: clamp01(body / ref),
		Span:     1,
	}, true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
