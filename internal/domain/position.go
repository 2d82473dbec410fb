package domain

import "time"

// Direction es el sentido de una posición.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ExitReason indica qué cerró la posición.
type ExitReason string

const (
	ExitTakeProfit     ExitReason = "TakeProfit"
	ExitStopLoss       ExitReason = "StopLoss"
	ExitReversalSignal ExitReason = "ReversalSignal"
)

// Position es la única posición viva del gestor. Como máximo hay una abierta
// en cualquier barra (sin piramidación).
type Position struct {
	ID         string
	Direction  Direction
	EntryIndex int
	EntryTime  time.Time
	EntryPrice float64
	Size       float64 // unidades fraccionales del activo

	StopLoss   float64 // ratchet: solo se aprieta, nunca se afloja
	TakeProfit float64
	// BestFavorable es el extremo favorable alcanzado desde la entrada:
	// máximo high para largos, mínimo low para cortos.
	BestFavorable float64
	// ATRMultiple es la distancia m×ATR que mantiene el trailing stop.
	ATRMultiple float64
	// BreakevenSet marca que el stop ya se promocionó a breakeven.
	BreakevenSet bool
}

// Trade es la forma cerrada e inmutable de una Position; se añade al ledger
// y es la única entrada del agregador de métricas.
type Trade struct {
	ID         string
	Direction  Direction
	EntryIndex int
	EntryTime  time.Time
	EntryPrice float64
	ExitIndex  int
	ExitTime   time.Time
	ExitPrice  float64
	Size       float64
	PnL        float64 // neto de comisión y slippage
	Commission float64
	ExitReason ExitReason
}

// Won devuelve true si el trade cerró con P&L positivo.
func (t Trade) Won() bool { return t.PnL > 0 }
