package domain

// ZoneKind distingue soporte de resistencia.
type ZoneKind string

const (
	ZoneSupport    ZoneKind = "support"
	ZoneResistance ZoneKind = "resistance"
)

// ZoneSource indica cómo se derivó la zona.
type ZoneSource string

const (
	SourceMovingAverage ZoneSource = "moving_average"
	SourceFibonacci     ZoneSource = "fibonacci"
)

// Zone es un intervalo de precio interpretado como soporte o resistencia.
// Las zonas se recomputan en cada barra a partir de una ventana trailing;
// el conjunto activo en la barra i depende solo de las barras [0..i].
type Zone struct {
	Lower  float64
	Upper  float64
	Kind   ZoneKind
	Source ZoneSource
	// Window es la longitud de la ventana que produjo la zona (periodo de la
	// media o lookback del retroceso). Solo informativo para el rationale.
	Window int
	// Ratio es el ratio de Fibonacci para las zonas de esa fuente; 0 en las demás.
	Ratio float64
}

// Contains devuelve true si el precio está dentro o tocando la zona.
// Los límites ya incorporan la banda de tolerancia con la que se construyó.
func (z Zone) Contains(price float64) bool {
	return price >= z.Lower && price <= z.Upper
}
