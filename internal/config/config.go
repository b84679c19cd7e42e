package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/usfs-r5/edart/internal/flatten"
	"github.com/usfs-r5/edart/internal/prepost"
)

// Config represents the complete application configuration
type Config struct {
	Scenes   ScenesConfig   `mapstructure:"scenes"`
	Raster   RasterConfig   `mapstructure:"raster"`
	Flatten  FlattenConfig  `mapstructure:"flatten"`
	PrePost  PrePostConfig  `mapstructure:"prepost"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress bool           `mapstructure:"progress"`
}

// ScenesConfig lists the scenes of a batch
type ScenesConfig struct {
	// Paths are TDISm__ folders or scene folders containing exactly one.
	Paths []string `mapstructure:"paths"`
}

// RasterConfig holds output raster settings
type RasterConfig struct {
	Extension string  `mapstructure:"extension"`
	CellSize  float64 `mapstructure:"cell_size"`
}

// FlattenConfig holds the per-year flattening options
type FlattenConfig struct {
	YearStart       int       `mapstructure:"year_start"`
	YearEnd         int       `mapstructure:"year_end"`
	MoistureYear    bool      `mapstructure:"moisture_year"`
	Method          string    `mapstructure:"method"`
	MinConfidence   float64   `mapstructure:"min_confidence"`
	SumConf         bool      `mapstructure:"sum_conf"`
	MaxConf         bool      `mapstructure:"max_conf"`
	LastEvent       bool      `mapstructure:"last_event"`
	StackOutputs    bool      `mapstructure:"stack_outputs"`
	RedoExisting    bool      `mapstructure:"redo_existing"`
	ConfidenceFlags []float64 `mapstructure:"confidence_flags"`
	FlagEventValue  float64   `mapstructure:"flag_event_value"`
	PrePostBand     string    `mapstructure:"prepost_band"`
	PrePostStat     string    `mapstructure:"prepost_stat"`
}

// PrePostConfig holds sample extraction and pre/post analysis settings
type PrePostConfig struct {
	WorkDir        string    `mapstructure:"work_dir"`
	Samples        string    `mapstructure:"samples"`
	Validation     string    `mapstructure:"validation"`
	DatesFile      string    `mapstructure:"dates_file"`
	RawDatesFile   string    `mapstructure:"raw_dates_file"`
	Output         string    `mapstructure:"output"`
	SubDir         string    `mapstructure:"sub_dir"`
	Bands          []string  `mapstructure:"bands"`
	SampleMin      int       `mapstructure:"sample_min"`
	WindowDays     int       `mapstructure:"window_days"`
	SummerMonths   []int     `mapstructure:"summer_months"`
	DropZerosStart int       `mapstructure:"drop_zeros_start"`
	DropZerosEnd   int       `mapstructure:"drop_zeros_end"`
	Corner         []float64 `mapstructure:"corner"`
	UTMZone        int       `mapstructure:"utm_zone"`
	Northern       bool      `mapstructure:"northern"`
	RGABand        string    `mapstructure:"rga_band"`
	RGAScale       float64   `mapstructure:"rga_scale"`
}

// StorageConfig holds the run ledger configuration
type StorageConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	FilePath string `mapstructure:"file_path"`
	MaxRuns  int    `mapstructure:"max_runs"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads configuration from file and environment variables.
// An empty path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("EDART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("raster.extension", ".tif")
	v.SetDefault("raster.cell_size", prepost.DefaultCellSize)

	v.SetDefault("flatten.year_start", 1985)
	v.SetDefault("flatten.year_end", 2018)
	v.SetDefault("flatten.moisture_year", false)
	v.SetDefault("flatten.method", string(flatten.MethodLast))
	v.SetDefault("flatten.min_confidence", 20)
	v.SetDefault("flatten.sum_conf", true)
	v.SetDefault("flatten.max_conf", true)
	v.SetDefault("flatten.last_event", true)
	v.SetDefault("flatten.stack_outputs", true)
	v.SetDefault("flatten.confidence_flags", flatten.DefaultConfidenceFlags)
	v.SetDefault("flatten.flag_event_value", -1)
	v.SetDefault("flatten.prepost_band", "NBR")
	v.SetDefault("flatten.prepost_stat", "Median")

	v.SetDefault("prepost.sub_dir", prepost.ExtractDir)
	v.SetDefault("prepost.output", "prepost_results.csv")
	v.SetDefault("prepost.bands", prepost.DefaultBands)
	v.SetDefault("prepost.sample_min", 5)
	v.SetDefault("prepost.window_days", prepost.DefaultWindowDays)
	v.SetDefault("prepost.summer_months", []int{8, 9})
	v.SetDefault("prepost.drop_zeros_start", 0)
	v.SetDefault("prepost.drop_zeros_end", 5)
	v.SetDefault("prepost.northern", true)
	v.SetDefault("prepost.rga_band", "r2_RGA")
	v.SetDefault("prepost.rga_scale", 100)

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.file_path", "./data/edart-runs.db")
	v.SetDefault("storage.max_runs", 5000)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)

	v.SetDefault("progress", false)
}

var validExtensions = map[string]bool{".tif": true, ".tiff": true, ".bsq": true, ".img": true, ".dat": true}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Raster config
	if !validExtensions[strings.ToLower(c.Raster.Extension)] {
		return fmt.Errorf("raster.extension must be one of: .tif, .tiff, .bsq, .img, .dat")
	}
	if c.Raster.CellSize <= 0 {
		return fmt.Errorf("raster.cell_size must be positive")
	}

	// Validate Flatten config
	if c.Flatten.YearStart < 1 {
		return fmt.Errorf("flatten.year_start must be at least 1")
	}
	if c.Flatten.YearEnd < c.Flatten.YearStart {
		return fmt.Errorf("flatten.year_end must be >= flatten.year_start")
	}
	if !flatten.Method(c.Flatten.Method).Valid() {
		return fmt.Errorf("flatten.method must be one of: last, maxconf, minpp")
	}
	if c.Flatten.MinConfidence < 0 {
		return fmt.Errorf("flatten.min_confidence must not be negative")
	}
	if c.Flatten.Method == string(flatten.MethodMinPP) && c.Flatten.PrePostBand == "" {
		return fmt.Errorf("flatten.prepost_band is required when flatten.method is minpp")
	}

	// Validate PrePost config
	if c.PrePost.SampleMin < 1 {
		return fmt.Errorf("prepost.sample_min must be at least 1")
	}
	if c.PrePost.WindowDays < 1 {
		return fmt.Errorf("prepost.window_days must be at least 1")
	}
	for _, m := range c.PrePost.SummerMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("prepost.summer_months must be between 1 and 12")
		}
	}
	if c.PrePost.DropZerosStart < 0 || c.PrePost.DropZerosEnd < 0 {
		return fmt.Errorf("prepost.drop_zeros_start and prepost.drop_zeros_end must not be negative")
	}
	if len(c.PrePost.Corner) != 0 && len(c.PrePost.Corner) != 2 {
		return fmt.Errorf("prepost.corner must hold exactly two values: x, y")
	}
	if c.PrePost.UTMZone < 0 || c.PrePost.UTMZone > 60 {
		return fmt.Errorf("prepost.utm_zone must be between 0 and 60")
	}
	if c.PrePost.RGAScale <= 0 {
		return fmt.Errorf("prepost.rga_scale must be positive")
	}

	// Validate Storage config
	if c.Storage.Enabled && c.Storage.MaxRuns < 0 {
		return fmt.Errorf("storage.max_runs must not be negative")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// FlattenOptions converts the flatten section into run options
func (c *Config) FlattenOptions() flatten.Options {
	f := c.Flatten
	return flatten.Options{
		YearStart:     f.YearStart,
		YearEnd:       f.YearEnd,
		RedoExisting:  f.RedoExisting,
		MoistureYear:  f.MoistureYear,
		SumConf:       f.SumConf,
		MaxConf:       f.MaxConf,
		LastEvent:     f.LastEvent,
		StackOutputs:  f.StackOutputs,
		Method:        flatten.Method(f.Method),
		MinConfidence: f.MinConfidence,
		Flags:         f.ConfidenceFlags,
		FlagEvent:     f.FlagEventValue,
		Extension:     c.Raster.Extension,
		PrePostBand:   f.PrePostBand,
		PrePostStat:   f.PrePostStat,
	}
}

// ExtractOptions converts the prepost section into extraction options
func (c *Config) ExtractOptions(rawDates []string) prepost.ExtractOptions {
	opts := prepost.ExtractOptions{
		Bands:    c.PrePost.Bands,
		CellSize: c.Raster.CellSize,
		SubDir:   c.PrePost.SubDir,
		RawDates: rawDates,
		Progress: c.Progress,
	}
	if len(c.PrePost.Corner) == 2 {
		opts.Corner = &[2]float64{c.PrePost.Corner[0], c.PrePost.Corner[1]}
	}
	return opts
}

// AnalyzeOptions converts the prepost section into analysis options
func (c *Config) AnalyzeOptions() prepost.AnalyzeOptions {
	months := make([]time.Month, len(c.PrePost.SummerMonths))
	for i, m := range c.PrePost.SummerMonths {
		months[i] = time.Month(m)
	}
	return prepost.AnalyzeOptions{
		Bands:        c.PrePost.Bands,
		SampleMin:    c.PrePost.SampleMin,
		WindowDays:   c.PrePost.WindowDays,
		SummerMonths: months,
		DropZeros:    [2]int{c.PrePost.DropZerosStart, c.PrePost.DropZerosEnd},
		SubDir:       c.PrePost.SubDir,
	}
}

// CoordinateOptions returns how geographic samples are projected
func (c *Config) CoordinateOptions() prepost.CoordinateOptions {
	return prepost.CoordinateOptions{Zone: c.PrePost.UTMZone, Northern: c.PrePost.Northern}
}
