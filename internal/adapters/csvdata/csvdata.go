package csvdata

// csvdata.go — carga de barras históricas desde CSV.
//
// Formato esperado: time,open,high,low,close,volume con cabecera opcional.
// El timestamp acepta RFC3339 o segundos unix. La validación es dura: una
// barra malformada aborta la carga con un ValidationError que identifica la
// fila; el engine no repara datos en silencio.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/velabot/internal/domain"
	"github.com/alejandrodnm/velabot/internal/ports"
)

// Source implementa ports.BarSource leyendo un archivo CSV.
type Source struct {
	path string
}

var _ ports.BarSource = (*Source)(nil)

// New crea un Source para la ruta dada.
func New(path string) *Source {
	return &Source{path: path}
}

// Path devuelve la ruta del archivo, para los resúmenes de run.
func (s *Source) Path() string { return s.path }

// Load lee y valida el archivo completo.
func (s *Source) Load(ctx context.Context) (*domain.Series, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csvdata.Load: open %q: %w", s.path, err)
	}
	defer f.Close()
	return Read(ctx, f)
}

// Read parsea barras desde cualquier reader CSV.
func Read(ctx context.Context, r io.Reader) (*domain.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	series := &domain.Series{}
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("csvdata.Read: %w", err)
		}
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvdata.Read: row %d: %w", row, err)
		}
		row++
		if row == 1 && isHeader(record) {
			continue
		}
		bar, err := parseBar(record, row)
		if err != nil {
			return nil, err
		}
		if err := series.Append(bar); err != nil {
			return nil, fmt.Errorf("csvdata.Read: row %d: %w", row, err)
		}
	}
	return series, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(record[len(record)-1]), 64)
	return err != nil
}

func parseBar(record []string, row int) (domain.Bar, error) {
	if len(record) < 6 {
		return domain.Bar{}, fmt.Errorf("csvdata.parseBar: row %d: expected 6 fields, got %d", row, len(record))
	}

	ts, err := parseTime(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.Bar{}, fmt.Errorf("csvdata.parseBar: row %d: time: %w", row, err)
	}

	fields := make([]float64, 5)
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("csvdata.parseBar: row %d: %s: %w", row, names[i], err)
		}
		fields[i] = v
	}

	return domain.Bar{
		Time:   ts,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
