package feed

// replay.go — reproducción paceada de una serie histórica.
//
// Reproduce las barras de otra fuente a un ritmo fijo, como haría un feed en
// vivo. Sirve para humo de la variante streaming: la serie que sale de la
// reproducción es idéntica a la de la carga directa, así que el resultado
// del run debe ser idéntico también.

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/ports"
)

// Replay implementa ports.BarSource re-emitiendo otra fuente bajo un
// rate limiter.
type Replay struct {
	source  ports.BarSource
	limiter *rate.Limiter
}

var _ ports.BarSource = (*Replay)(nil)

// NewReplay crea un Replay que emite como máximo barsPerSecond barras por
// segundo.
func NewReplay(source ports.BarSource, barsPerSecond float64) *Replay {
	if barsPerSecond <= 0 {
		barsPerSecond = 100
	}
	return &Replay{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(barsPerSecond), 1),
	}
}

// Load reproduce la fuente barra a barra respetando el limiter. Cancelable
// vía ctx, a diferencia del pase batch que es finito por construcción.
func (r *Replay) Load(ctx context.Context) (*domain.Series, error) {
	src, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed.Replay: load source: %w", err)
	}

	out := &domain.Series{}
	for i := 0; i < src.Len(); i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("feed.Replay: wait at bar %d: %w", i, err)
		}
		if err := out.Append(src.At(i)); err != nil {
			return nil, fmt.Errorf("feed.Replay: %w", err)
		}
	}
	slog.Debug("replay complete", "bars", out.Len())
	return out, nil
}
