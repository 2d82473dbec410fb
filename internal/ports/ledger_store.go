package ports

import (
	"context"

	"github.com/alejandrodnm/velabot/internal/domain"
)

// RunSummary es la fila que describe un run persistido.
type RunSummary struct {
	ID            string
	Source        string // origen de los datos (ruta CSV)
	Bars          int
	InitialEquity float64
	FinalEquity   float64
	Report        domain.PerformanceReport
}

// LedgerStore persiste el ledger y el resumen de cada run.
type LedgerStore interface {
	// SaveRun persiste el resumen del run y todos sus trades.
	SaveRun(ctx context.Context, run RunSummary, trades []domain.Trade) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
