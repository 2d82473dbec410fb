package ports

import (
	"context"

	"github.com/alejandrodnm/velabot/internal/domain"
)

// BarSource es la frontera de entrada del engine: cualquier origen capaz de
// producir una serie de barras validada, ordenada y sin duplicados.
type BarSource interface {
	// Load devuelve la serie completa. Una barra malformada es fatal:
	// devuelve un *domain.ValidationError identificando la barra.
	Load(ctx context.Context) (*domain.Series, error)
}
