package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
	envPrefix         = "RATIO"
)

// Config ...
type Config struct {
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`

	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"` // json | console
	} `yaml:"log"`

	Trading Trading `yaml:"trading"`
	Loops   Loops   `yaml:"loops"`
	Bybit   Bybit   `yaml:"bybit"`

	Telegram struct {
		Token     string `yaml:"token"`
		ChatID    int64  `yaml:"chat_id"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"telegram"`

	// пустая строка = журнал сделок выключен
	DB string `yaml:"db_dsn"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
}

type Trading struct {
	// Сколько USDT теряем при полном срабатывании стопа; цель 2:1 даёт 2*BaseRisk.
	BaseRisk float64 `yaml:"base_risk"`
	// Лимит одновременно открытых позиций на аккаунте.
	MaxPositions int `yaml:"max_positions"`
	// Шаг прогрессивной защиты, % от входа.
	ProgressiveMargin float64 `yaml:"progressive_margin"`
	// Запас, добавляемый к стопу из сигнала, %.
	SafetyMargin float64 `yaml:"safety_margin"`
	// Стоп по умолчанию, если в сигнале нет distancia_sl, %.
	DefaultStopPct float64 `yaml:"default_stop_pct"`
	// Потолок итогового стопа, %.
	MaxStopPct float64 `yaml:"max_stop_pct"`

	Cooldown time.Duration `yaml:"cooldown"`

	// Сколько ждём появления позиции после маркет-ордера.
	OpenConfirmTimeout time.Duration `yaml:"open_confirm_timeout"`
	OpenConfirmPoll    time.Duration `yaml:"open_confirm_poll"`
}

type Loops struct {
	Protection time.Duration `yaml:"protection"`
	Settlement time.Duration `yaml:"settlement"`
	Sweep      time.Duration `yaml:"sweep"`
}

type Bybit struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APISecret   string        `yaml:"api_secret"`
	RecvWindow  int           `yaml:"recv_window"`
	Category    string        `yaml:"category"`
	SettleCoin  string        `yaml:"settle_coin"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Defaults значения, с которыми бот работает без конфига.
func Defaults() Config {
	var c Config
	c.Service.Host = "0.0.0.0"
	c.Service.PublicPort = 5000
	c.Service.AdminPort = 8080

	c.Log.Level = "info"
	c.Log.Encoding = "json"

	c.Trading = Trading{
		BaseRisk:           1,
		MaxPositions:       1,
		ProgressiveMargin:  2.0,
		SafetyMargin:       0.5,
		DefaultStopPct:     1.5,
		MaxStopPct:         10,
		Cooldown:           60 * time.Minute,
		OpenConfirmTimeout: 3 * time.Second,
		OpenConfirmPoll:    500 * time.Millisecond,
	}
	c.Loops = Loops{
		Protection: 5 * time.Second,
		Settlement: 10 * time.Second,
		Sweep:      60 * time.Second,
	}
	c.Bybit = Bybit{
		BaseURL:     "https://api.bybit.com",
		RecvWindow:  20000,
		Category:    "linear",
		SettleCoin:  "USDT",
		HTTPTimeout: 10 * time.Second,
	}
	c.Telegram.QueueSize = 256
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.Tracing.ServiceName = "ratio_bot"
	return c
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Defaults()

	path, explicit := configPath()
	if err := decodeFile(path, &config); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnv(&config, envLayer()); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func configPath() (string, bool) {
	name := os.Getenv(configFilePathENV)
	if name == "" {
		return filepath.Join(configDir, defaultConfigFile), false
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name, true
	}
	return filepath.Join(configDir, name), true
}

func decodeFile(path string, out *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(out); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// envLayer: RATIO_TRADING_BASE_RISK -> trading.base_risk и т.д.,
// плюс "короткие" переменные для секретов.
func envLayer() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN", envPrefix+"_TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID", envPrefix+"_TELEGRAM_CHAT_ID")
	_ = v.BindEnv("bybit.api_key", "BYBIT_API_KEY", envPrefix+"_BYBIT_API_KEY")
	_ = v.BindEnv("bybit.api_secret", "BYBIT_API_SECRET", envPrefix+"_BYBIT_API_SECRET")
	_ = v.BindEnv("db_dsn", "DATABASE_DSN", envPrefix+"_DB_DSN")
	return v
}

func applyEnv(c *Config, v *viper.Viper) error {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	flt := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	str("service.host", &c.Service.Host)
	num("service.public_port", &c.Service.PublicPort)
	num("service.admin_port", &c.Service.AdminPort)
	str("log.level", &c.Log.Level)
	str("log.encoding", &c.Log.Encoding)

	flt("trading.base_risk", &c.Trading.BaseRisk)
	num("trading.max_positions", &c.Trading.MaxPositions)
	flt("trading.progressive_margin", &c.Trading.ProgressiveMargin)
	flt("trading.safety_margin", &c.Trading.SafetyMargin)
	flt("trading.default_stop_pct", &c.Trading.DefaultStopPct)
	flt("trading.max_stop_pct", &c.Trading.MaxStopPct)
	dur("trading.cooldown", &c.Trading.Cooldown)
	dur("trading.open_confirm_timeout", &c.Trading.OpenConfirmTimeout)
	dur("trading.open_confirm_poll", &c.Trading.OpenConfirmPoll)

	dur("loops.protection", &c.Loops.Protection)
	dur("loops.settlement", &c.Loops.Settlement)
	dur("loops.sweep", &c.Loops.Sweep)

	str("bybit.base_url", &c.Bybit.BaseURL)
	str("bybit.api_key", &c.Bybit.APIKey)
	str("bybit.api_secret", &c.Bybit.APISecret)
	num("bybit.recv_window", &c.Bybit.RecvWindow)
	str("bybit.category", &c.Bybit.Category)
	str("bybit.settle_coin", &c.Bybit.SettleCoin)
	dur("bybit.http_timeout", &c.Bybit.HTTPTimeout)

	str("telegram.token", &c.Telegram.Token)
	if v.IsSet("telegram.chat_id") {
		c.Telegram.ChatID = v.GetInt64("telegram.chat_id")
	}
	num("telegram.queue_size", &c.Telegram.QueueSize)

	str("db_dsn", &c.DB)

	if v.IsSet("tracing.enabled") {
		c.Tracing.Enabled = v.GetBool("tracing.enabled")
	}
	str("tracing.host", &c.Tracing.Host)
	num("tracing.port", &c.Tracing.Port)
	return nil
}

// Validate проверяет то, без чего торговать нельзя.
func (c *Config) Validate() error {
	var errs []error
	t := c.Trading
	if t.BaseRisk <= 0 {
		errs = append(errs, fmt.Errorf("trading.base_risk must be > 0, got %v", t.BaseRisk))
	}
	if t.MaxPositions <= 0 {
		errs = append(errs, fmt.Errorf("trading.max_positions must be > 0, got %d", t.MaxPositions))
	}
	if t.ProgressiveMargin <= 0 {
		errs = append(errs, fmt.Errorf("trading.progressive_margin must be > 0, got %v", t.ProgressiveMargin))
	}
	if t.SafetyMargin < 0 {
		errs = append(errs, fmt.Errorf("trading.safety_margin must be >= 0, got %v", t.SafetyMargin))
	}
	if t.DefaultStopPct <= 0 || t.MaxStopPct <= 0 {
		errs = append(errs, errors.New("trading.default_stop_pct and trading.max_stop_pct must be > 0"))
	}
	if t.Cooldown < 0 {
		errs = append(errs, errors.New("trading.cooldown must be >= 0"))
	}
	if t.OpenConfirmTimeout <= 0 || t.OpenConfirmPoll <= 0 {
		errs = append(errs, errors.New("trading.open_confirm_timeout/open_confirm_poll must be > 0"))
	}
	if c.Loops.Protection <= 0 || c.Loops.Settlement <= 0 || c.Loops.Sweep <= 0 {
		errs = append(errs, errors.New("loops intervals must be > 0"))
	}
	if c.Bybit.BaseURL == "" || c.Bybit.Category == "" {
		errs = append(errs, errors.New("bybit.base_url and bybit.category are required"))
	}
	return errors.Join(errs...)
}
