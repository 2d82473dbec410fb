package domain

// SignalKind es el tipo de señal emitida por el motor de señales.
type SignalKind string

const (
	EntryLong  SignalKind = "entry_long"
	EntryShort SignalKind = "entry_short"
	Exit       SignalKind = "exit"
)

// Rationale conserva las lecturas que produjeron la señal, para inspección
// y para los reportes. No participa en ninguna decisión posterior.
type Rationale struct {
	Pattern       PatternMatch
	Zone          *Zone // zona que confirmó la entrada; nil en exits
	RSI           float64
	MACDHistogram float64
	VolumeRatio   float64 // volumen actual / media trailing
	MomentumScore float64
	Reason        string // para exits: qué condición disparó la salida
}

// Signal es una señal discreta de entrada o salida en una barra concreta.
// Las señales se derivan determinísticamente de las barras [0..BarIndex];
// no son estado mutable.
type Signal struct {
	BarIndex  int
	Kind      SignalKind
	Rationale Rationale
}
