package ports

import (
	"context"

	"github.com/alejandrodnm/velabot/internal/backtest"
)

// Reporter presenta el resultado de un run al exterior (consola, etc.).
type Reporter interface {
	Report(ctx context.Context, result *backtest.Result) error
}
