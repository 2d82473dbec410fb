package notify

// console.go — presentación del resultado de un run. Dos modos: resumen
// compacto de una línea, o tablas completas de métricas y trades.

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/velabot/internal/backtest"
	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/ports"
)

// Console implementa ports.Reporter escribiendo al writer configurado.
type Console struct {
	out   io.Writer
	table bool
}

var _ ports.Reporter = (*Console)(nil)

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Report imprime el resultado en el modo configurado.
func (c *Console) Report(_ context.Context, res *backtest.Result) error {
	if c.table {
		c.printFull(res)
	} else {
		c.printCompact(res)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(res *backtest.Result) {
	r := res.Report
	fmt.Fprintf(c.out, "[%s] trades=%d win_rate=%s pf=%s maxdd=%s sharpe=%s pnl=%.2f equity=%.2f\n",
		time.Now().Format("15:04:05"),
		r.TotalTrades,
		domain.FormatMetric(r.WinRate, 3),
		domain.FormatMetric(r.ProfitFactor, 2),
		domain.FormatMetric(r.MaxDrawdown, 4),
		domain.FormatMetric(r.SharpeRatio, 2),
		r.NetPnL,
		r.FinalEquity,
	)
	if res.OpenPosition != nil {
		fmt.Fprintf(c.out, "  open position: %s since bar %d @ %.4f (excluded from ledger)\n",
			res.OpenPosition.Direction, res.OpenPosition.EntryIndex, res.OpenPosition.EntryPrice)
	}
}

// printFull imprime la tabla de métricas y el ledger completo.
func (c *Console) printFull(res *backtest.Result) {
	r := res.Report

	fmt.Fprintf(c.out, "\n=== PERFORMANCE (%s → %s) ===\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))

	metrics := tablewriter.NewWriter(c.out)
	metrics.Header("Metric", "Value")
	metrics.Append("Total trades", fmt.Sprintf("%d (%dL/%dS)", r.TotalTrades, r.LongTrades, r.ShortTrades))
	metrics.Append("Win rate", domain.FormatMetric(r.WinRate, 3))
	metrics.Append("Profit factor", domain.FormatMetric(r.ProfitFactor, 2))
	metrics.Append("Max drawdown", domain.FormatMetric(r.MaxDrawdown, 4))
	metrics.Append("Sharpe ratio", domain.FormatMetric(r.SharpeRatio, 2))
	metrics.Append("Net PnL", fmt.Sprintf("%.2f", r.NetPnL))
	metrics.Append("Avg win / loss", fmt.Sprintf("%s / %s",
		domain.FormatMetric(r.AverageWin, 2), domain.FormatMetric(r.AverageLoss, 2)))
	metrics.Append("Best / worst", fmt.Sprintf("%.2f / %.2f", r.BestTrade, r.WorstTrade))
	metrics.Append("Equity", fmt.Sprintf("%.2f → %.2f", r.InitialEquity, r.FinalEquity))
	metrics.Render()

	for reason, n := range r.ExitReasons {
		fmt.Fprintf(c.out, "  exits via %s: %d\n", reason, n)
	}

	if len(res.Trades) == 0 {
		fmt.Fprintln(c.out, "no closed trades")
		return
	}

	fmt.Fprintf(c.out, "\n=== TRADES ===\n")
	trades := tablewriter.NewWriter(c.out)
	trades.Header("#", "Dir", "Entry", "Exit", "EntryPx", "ExitPx", "Size", "PnL", "Reason")
	for i, t := range res.Trades {
		trades.Append(
			fmt.Sprintf("%d", i+1),
			string(t.Direction),
			t.EntryTime.Format("01-02 15:04"),
			t.ExitTime.Format("01-02 15:04"),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			fmt.Sprintf("%.4f", t.Size),
			fmt.Sprintf("%+.2f", t.PnL),
			string(t.ExitReason),
		)
	}
	trades.Render()

	if res.OpenPosition != nil {
		fmt.Fprintf(c.out, "open position at end of series: %s @ %.4f (stop %.4f, target %.4f)\n",
			res.OpenPosition.Direction, res.OpenPosition.EntryPrice,
			res.OpenPosition.StopLoss, res.OpenPosition.TakeProfit)
	}
}
