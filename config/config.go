package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Indicators IndicatorConfig `yaml:"indicators"`
	Patterns   PatternConfig   `yaml:"patterns"`
	Levels     LevelConfig     `yaml:"levels"`
	Signals    SignalConfig    `yaml:"signals"`
	Risk       RiskConfig      `yaml:"risk"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Storage    StorageConfig   `yaml:"storage"`
	Log        LogConfig       `yaml:"log"`
}

// IndicatorConfig son los periodos de los indicadores.
type IndicatorConfig struct {
	RSIPeriod        int `yaml:"rsi_period"`
	MACDFast         int `yaml:"macd_fast"`
	MACDSlow         int `yaml:"macd_slow"`
	MACDSignal       int `yaml:"macd_signal"`
	ATRPeriod        int `yaml:"atr_period"`
	TrendPeriod      int `yaml:"trend_period"`      // media corta cuya pendiente da el sesgo de tendencia
	MomentumShort    int `yaml:"momentum_short"`    // retorno de corto plazo del momentum score
	MomentumMedium   int `yaml:"momentum_medium"`   // retorno de medio plazo
	BreakoutLookback int `yaml:"breakout_lookback"` // ventana de consolidación previa a una ruptura
}

// PatternConfig son los umbrales del clasificador de velas.
type PatternConfig struct {
	DojiEpsilon   float64 `yaml:"doji_epsilon"`   // ε: cuerpo <= ε × rango
	MarubozuDelta float64 `yaml:"marubozu_delta"` // δ: mecha <= δ × cuerpo
}

// LevelConfig controla el detector de soportes/resistencias.
type LevelConfig struct {
	MAWindows    []int   `yaml:"ma_windows"`
	FibLookback  int     `yaml:"fib_lookback"`
	ToleranceATR float64 `yaml:"tolerance_atr"` // fracción de ATR de la banda de zona
}

// SignalConfig son las reglas de confirmación de entradas.
type SignalConfig struct {
	StrengthCutoff   float64 `yaml:"strength_cutoff"`   // fuerza mínima de la figura
	VolumeMultiplier float64 `yaml:"volume_multiplier"` // k: volumen >= k × media trailing
	VolumeWindow     int     `yaml:"volume_window"`
	Direction        string  `yaml:"direction"` // long | short | both
}

// RiskConfig controla el gestor de posiciones.
type RiskConfig struct {
	InitialEquity  float64 `yaml:"initial_equity"`
	SizingFraction float64 `yaml:"sizing_fraction"` // fracción de equity por trade
	MaxFraction    float64 `yaml:"max_fraction"`
	ATRMultiplier  float64 `yaml:"atr_multiplier"` // m: stop a m×ATR de la entrada
	RiskReward     float64 `yaml:"risk_reward"`    // r: target a r×(entrada−stop)
	Commission     float64 `yaml:"commission"`     // fracción por fill
	Slippage       float64 `yaml:"slippage"`       // fracción adversa por fill
	BreakevenAt    float64 `yaml:"breakeven_at"`   // fracción del target que promociona el stop a breakeven
}

// MetricsConfig controla el agregador de métricas.
type MetricsConfig struct {
	PeriodsPerYear float64 `yaml:"periods_per_year"` // factor de anualización del Sharpe
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Los valores del .env sobreescriben los del YAML para las keys que
// correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve una configuración completa con todos los defaults,
// sin leer ningún archivo.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// Validate comprueba las restricciones entre parámetros.
func (c *Config) Validate() error {
	if c.Risk.SizingFraction <= 0 || c.Risk.SizingFraction > c.Risk.MaxFraction {
		return fmt.Errorf("sizing_fraction %.4g must be in (0, max_fraction %.4g]", c.Risk.SizingFraction, c.Risk.MaxFraction)
	}
	if c.Risk.ATRMultiplier <= 0 {
		return fmt.Errorf("atr_multiplier must be positive, got %.4g", c.Risk.ATRMultiplier)
	}
	if c.Risk.RiskReward <= 1 {
		return fmt.Errorf("risk_reward must exceed 1, got %.4g", c.Risk.RiskReward)
	}
	switch c.Signals.Direction {
	case "long", "short", "both":
	default:
		return fmt.Errorf("direction must be long, short or both, got %q", c.Signals.Direction)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("macd_fast %d must be below macd_slow %d", c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Indicators.RSIPeriod <= 0 {
		cfg.Indicators.RSIPeriod = 14
	}
	if cfg.Indicators.MACDFast <= 0 {
		cfg.Indicators.MACDFast = 12
	}
	if cfg.Indicators.MACDSlow <= 0 {
		cfg.Indicators.MACDSlow = 26
	}
	if cfg.Indicators.MACDSignal <= 0 {
		cfg.Indicators.MACDSignal = 9
	}
	if cfg.Indicators.ATRPeriod <= 0 {
		cfg.Indicators.ATRPeriod = 14
	}
	if cfg.Indicators.TrendPeriod <= 0 {
		cfg.Indicators.TrendPeriod = 10
	}
	if cfg.Indicators.MomentumShort <= 0 {
		cfg.Indicators.MomentumShort = 5
	}
	if cfg.Indicators.MomentumMedium <= 0 {
		cfg.Indicators.MomentumMedium = 20
	}
	if cfg.Indicators.BreakoutLookback <= 0 {
		cfg.Indicators.BreakoutLookback = 20
	}
	if cfg.Patterns.DojiEpsilon <= 0 {
		cfg.Patterns.DojiEpsilon = 0.1
	}
	if cfg.Patterns.MarubozuDelta <= 0 {
		cfg.Patterns.MarubozuDelta = 0.05
	}
	if len(cfg.Levels.MAWindows) == 0 {
		cfg.Levels.MAWindows = []int{50, 200}
	}
	if cfg.Levels.FibLookback <= 0 {
		cfg.Levels.FibLookback = 120
	}
	if cfg.Levels.ToleranceATR <= 0 {
		cfg.Levels.ToleranceATR = 0.25
	}
	if cfg.Signals.StrengthCutoff <= 0 {
		cfg.Signals.StrengthCutoff = 0.5
	}
	if cfg.Signals.VolumeMultiplier <= 0 {
		cfg.Signals.VolumeMultiplier = 1.5
	}
	if cfg.Signals.VolumeWindow <= 0 {
		cfg.Signals.VolumeWindow = 20
	}
	if cfg.Signals.Direction == "" {
		cfg.Signals.Direction = "both"
	}
	if cfg.Risk.InitialEquity <= 0 {
		cfg.Risk.InitialEquity = 100_000
	}
	if cfg.Risk.SizingFraction <= 0 {
		cfg.Risk.SizingFraction = 0.1
	}
	if cfg.Risk.MaxFraction <= 0 {
		cfg.Risk.MaxFraction = 0.2
	}
	if cfg.Risk.ATRMultiplier <= 0 {
		cfg.Risk.ATRMultiplier = 2.0
	}
	if cfg.Risk.RiskReward <= 0 {
		cfg.Risk.RiskReward = 2.0
	}
	if cfg.Risk.Commission < 0 {
		cfg.Risk.Commission = 0
	}
	if cfg.Risk.Slippage < 0 {
		cfg.Risk.Slippage = 0
	}
	if cfg.Risk.BreakevenAt <= 0 {
		cfg.Risk.BreakevenAt = 0.5
	}
	if cfg.Metrics.PeriodsPerYear <= 0 {
		cfg.Metrics.PeriodsPerYear = 252
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "velabot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
