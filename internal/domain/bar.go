package domain

import (
	"fmt"
	"math"
	"time"
)

// Bar es una vela OHLCV. Inmutable una vez añadida a una Series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ValidationError identifica una barra malformada. Es fatal para el run:
// el dato corrupto debe corregirse o excluirse aguas arriba.
type ValidationError struct {
	Index  int // índice de la barra en la fuente (fila CSV, posición en la serie)
	Time   time.Time
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bar %d (%s): %s", e.Index, e.Time.Format(time.RFC3339), e.Reason)
}

// Validate comprueba los invariantes geométricos de la vela.
func (b Bar) Validate(index int) error {
	switch {
	case b.Time.IsZero():
		return &ValidationError{Index: index, Time: b.Time, Reason: "zero timestamp"}
	case math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) || math.IsNaN(b.Close) || math.IsNaN(b.Volume):
		return &ValidationError{Index: index, Time: b.Time, Reason: "NaN field"}
	case b.High < math.Max(b.Open, b.Close):
		return &ValidationError{Index: index, Time: b.Time, Reason: fmt.Sprintf("high %.8g < max(open, close) %.8g", b.High, math.Max(b.Open, b.Close))}
	case b.Low > math.Min(b.Open, b.Close):
		return &ValidationError{Index: index, Time: b.Time, Reason: fmt.Sprintf("low %.8g > min(open, close) %.8g", b.Low, math.Min(b.Open, b.Close))}
	case b.Volume < 0:
		return &ValidationError{Index: index, Time: b.Time, Reason: fmt.Sprintf("negative volume %.8g", b.Volume)}
	}
	return nil
}

// Body devuelve el tamaño absoluto del cuerpo de la vela.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range devuelve el rango high-low de la vela.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperWick devuelve la longitud de la mecha superior.
func (b Bar) UpperWick() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerWick devuelve la longitud de la mecha inferior.
func (b Bar) LowerWick() float64 { return math.Min(b.Open, b.Close) - b.Low }

// IsBullish devuelve true si la vela cerró por encima de su apertura.
func (b Bar) IsBullish() bool { return b.Close > b.Open }

// IsBearish devuelve true si la vela cerró por debajo de su apertura.
func (b Bar) IsBearish() bool { return b.Open > b.Close }

// Series es una secuencia ordenada de barras con timestamps estrictamente
// crecientes. Solo crece por Append; los consumidores la leen por índice y
// nunca deben mirar más allá del índice de simulación actual.
type Series struct {
	bars []Bar
}

// NewSeries construye una Series validando cada barra.
func NewSeries(bars []Bar) (*Series, error) {
	s := &Series{bars: make([]Bar, 0, len(bars))}
	for _, b := range bars {
		if err := s.Append(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append añade una barra al final. Rechaza barras malformadas y timestamps
// duplicados o fuera de orden.
func (s *Series) Append(b Bar) error {
	idx := len(s.bars)
	if err := b.Validate(idx); err != nil {
		return err
	}
	if idx > 0 && !b.Time.After(s.bars[idx-1].Time) {
		return &ValidationError{Index: idx, Time: b.Time, Reason: "timestamp not after previous bar"}
	}
	s.bars = append(s.bars, b)
	return nil
}

// Len devuelve el número de barras.
func (s *Series) Len() int { return len(s.bars) }

// At devuelve la barra en el índice i. Panic si está fuera de rango,
// igual que el acceso a slice que reemplaza.
func (s *Series) At(i int) Bar { return s.bars[i] }

// Closes devuelve una copia de los precios de cierre.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// Volumes devuelve una copia de los volúmenes.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Volume
	}
	return out
}

// Bars devuelve una copia del slice completo, para componentes que
// necesitan recorrer la serie sin poder mutarla.
func (s *Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Prefix devuelve una nueva Series con las primeras n barras. Útil para
// verificar la propiedad de no-look-ahead re-ejecutando sobre un prefijo.
func (s *Series) Prefix(n int) *Series {
	if n > len(s.bars) {
		n = len(s.bars)
	}
	bars := make([]Bar, n)
	copy(bars, s.bars[:n])
	return &Series{bars: bars}
}
