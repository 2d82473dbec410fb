package levels

// detector.go — zonas de soporte/resistencia a partir de medias móviles y
// retrocesos de Fibonacci sobre ventanas trailing. Las zonas se recomputan
// en cada barra; el conjunto activo en la barra i depende solo de [0..i].

import (
	"math"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/indicators"
)

// fibRatios son los ratios de retroceso estándar.
var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// Config controla las ventanas y la tolerancia del detector.
type Config struct {
	// MAWindows son los periodos de las medias que generan zonas (50 y 200
	// por defecto, medias dobles).
	MAWindows []int
	// FibLookback es la ventana sobre cuyo high/low se proyectan los
	// retrocesos.
	FibLookback int
	// ToleranceATR es la fracción de ATR que forma la banda de cada zona.
	ToleranceATR float64
}

// DefaultConfig devuelve la configuración por defecto del detector.
func DefaultConfig() Config {
	return Config{MAWindows: []int{50, 200}, FibLookback: 120, ToleranceATR: 0.25}
}

// Detector computa el conjunto de zonas activas por barra.
type Detector struct {
	cfg Config
	sma map[int][]float64 // periodo → columna SMA precomputada
}

// New crea un Detector precomputando las columnas SMA sobre la serie.
// Cada valor SMA[i] depende solo de barras <= i, así que la precomputación
// no introduce look-ahead.
func New(cfg Config, closes []float64) *Detector {
	if len(cfg.MAWindows) == 0 {
		cfg.MAWindows = []int{50, 200}
	}
	if cfg.FibLookback <= 0 {
		cfg.FibLookback = 120
	}
	if cfg.ToleranceATR <= 0 {
		cfg.ToleranceATR = 0.25
	}
	d := &Detector{cfg: cfg, sma: make(map[int][]float64, len(cfg.MAWindows))}
	for _, w := range cfg.MAWindows {
		d.sma[w] = indicators.SMA(closes, w)
	}
	return d
}

// ZonesAt devuelve las zonas activas en la barra i. atr es la lectura de ATR
// en i (NaN si no disponible); sin ATR no hay banda de tolerancia definida y
// no se emiten zonas (historia insuficiente nunca se trata como confirmada).
func (d *Detector) ZonesAt(bars []domain.Bar, i int, atr float64) []domain.Zone {
	if i < 0 || i >= len(bars) || !indicators.Valid(atr) || atr <= 0 {
		return nil
	}
	tol := d.cfg.ToleranceATR * atr
	price := bars[i].Close

	var zones []domain.Zone
	for _, w := range d.cfg.MAWindows {
		ma := d.sma[w][i]
		if !indicators.Valid(ma) {
			continue // ventana sin historia suficiente: zona no disponible
		}
		kind := domain.ZoneResistance
		if price > ma {
			kind = domain.ZoneSupport
		}
		zones = append(zones, domain.Zone{
			Lower:  ma - tol,
			Upper:  ma + tol,
			Kind:   kind,
			Source: domain.SourceMovingAverage,
			Window: w,
		})
	}

	zones = append(zones, d.fibZonesAt(bars, i, price, tol)...)
	return zones
}

// fibZonesAt proyecta los retrocesos de Fibonacci del high/low de la ventana
// de lookback que termina en i.
func (d *Detector) fibZonesAt(bars []domain.Bar, i int, price, tol float64) []domain.Zone {
	lb := d.cfg.FibLookback
	if i+1 < lb {
		return nil
	}
	hi, lo := math.Inf(-1), math.Inf(1)
	for j := i - lb + 1; j <= i; j++ {
		hi = math.Max(hi, bars[j].High)
		lo = math.Min(lo, bars[j].Low)
	}
	span := hi - lo
	if span <= 0 {
		return nil
	}

	zones := make([]domain.Zone, 0, len(fibRatios))
	for _, r := range fibRatios {
		level := hi - r*span
		kind := domain.ZoneResistance
		if level < price {
			kind = domain.ZoneSupport
		}
		zones = append(zones, domain.Zone{
			Lower:  level - tol,
			Upper:  level + tol,
			Kind:   kind,
			Source: domain.SourceFibonacci,
			Window: lb,
			Ratio:  r,
		})
	}
	return zones
}

// NearZone devuelve la primera zona del tipo pedido que contiene el precio,
// o nil si ninguna lo contiene.
func NearZone(zones []domain.Zone, kind domain.ZoneKind, price float64) *domain.Zone {
	for i := range zones {
		if zones[i].Kind == kind && zones[i].Contains(price) {
			return &zones[i]
		}
	}
	return nil
}
