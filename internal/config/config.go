package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"

	"approach_sim/internal/approach"
	"approach_sim/internal/models"
	"approach_sim/internal/sim"
)

// Config holds all configuration for the simulator
type Config struct {
	Mode         string
	DBPath       string
	ExportPath   string
	DumpPath     string
	DumpEvery    int
	SchedulePath string
	BatchSize    int
	BatchTimeout int
	Sim          SimConfig
	Scenario     ScenarioConfig
	Trials       TrialsConfig
	Log          LogConfig
}

// SimConfig holds the corridor and separation settings of a run
type SimConfig struct {
	ArrivalProbability float64
	TotalTicks         int
	Seed               int64
	DayStartHour       int
	InitialDistanceNM  float64
	CorridorOuterNM    float64
	MinSeparationMin   float64
	BufferMin          float64
	RejoinGapMin       float64
	SpeedStepKt        float64
	RejoinSpeedKt      float64
	Bands              []models.Band
}

// ScenarioConfig selects the variant and its disruptions
type ScenarioConfig struct {
	Variant      string
	Diversion    string
	Interruption InterruptionConfig
	Closure      ClosureConfig
	Fuel         FuelConfig
	Holding      HoldingConfig
}

type InterruptionConfig struct {
	Probability float64
	ReentryNM   float64
}

type ClosureConfig struct {
	Enabled          bool
	StartTick        int
	DurationTicks    int
	RandomStart      bool
	ThresholdNM      float64
	WaitCeilingTicks int
	CloseInWaitTicks int
	CloseInNM        float64
}

type FuelConfig struct {
	CapacityKg    float64
	MinFraction   float64
	MaxFraction   float64
	BurnKgPerHour float64
	AlternateNM   float64
	AlternateKt   float64
}

type HoldingConfig struct {
	InnerNM float64
	OuterNM float64
	SpeedKt float64
}

// TrialsConfig holds repeated-trial settings
type TrialsConfig struct {
	Count            int
	Workers          int
	Lambdas          []float64
	StoreAircraft    bool
	Progress         bool
	ProgressInterval int // seconds
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/approach_sim")
	v.AddConfigPath(".")

	if configPath := os.Getenv("APPROACH_SIM_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file: defaults and env vars only
	}

	v.SetEnvPrefix("APPROACH_SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "single")
	v.SetDefault("db_path", "")
	v.SetDefault("export_path", "")
	v.SetDefault("dump_path", "")
	v.SetDefault("dump_every", 60)
	v.SetDefault("schedule_path", "")
	v.SetDefault("batch_size", 100)
	v.SetDefault("batch_timeout", 5)

	v.SetDefault("sim.arrival_probability", 0.1)
	v.SetDefault("sim.total_ticks", 1080)
	v.SetDefault("sim.seed", 42)
	v.SetDefault("sim.day_start_hour", models.DefaultDayStartHour)
	v.SetDefault("sim.initial_distance_nm", models.DefaultInitialDistanceNM)
	v.SetDefault("sim.corridor_outer_nm", models.DefaultCorridorOuterNM)
	v.SetDefault("sim.min_separation_min", models.DefaultMinSeparationMin)
	v.SetDefault("sim.buffer_min", models.DefaultBufferMin)
	v.SetDefault("sim.rejoin_gap_min", models.DefaultRejoinGapMin)
	v.SetDefault("sim.speed_step_kt", models.DefaultSpeedStepKt)
	v.SetDefault("sim.rejoin_speed_kt", models.DefaultRejoinSpeedKt)

	v.SetDefault("scenario.variant", models.VariantBase.String())
	v.SetDefault("scenario.diversion", string(sim.DiversionDistance))
	v.SetDefault("scenario.interruption.probability", models.DefaultInterruptionProbability)
	v.SetDefault("scenario.interruption.reentry_nm", models.DefaultInterruptionReentryNM)
	v.SetDefault("scenario.closure.enabled", false)
	v.SetDefault("scenario.closure.start_tick", models.DefaultClosureStartTick)
	v.SetDefault("scenario.closure.duration_ticks", models.DefaultClosureDurationTicks)
	v.SetDefault("scenario.closure.random_start", false)
	v.SetDefault("scenario.closure.threshold_nm", models.DefaultClosureThresholdNM)
	v.SetDefault("scenario.closure.wait_ceiling_ticks", models.DefaultWaitCeilingTicks)
	v.SetDefault("scenario.closure.close_in_wait_ticks", models.DefaultCloseInWaitTicks)
	v.SetDefault("scenario.closure.close_in_nm", models.DefaultCloseInNM)
	v.SetDefault("scenario.fuel.capacity_kg", models.DefaultFuelCapacityKg)
	v.SetDefault("scenario.fuel.min_fraction", models.DefaultFuelMinFraction)
	v.SetDefault("scenario.fuel.max_fraction", models.DefaultFuelMaxFraction)
	v.SetDefault("scenario.fuel.burn_kg_per_hour", models.DefaultFuelBurnKgPerHour)
	v.SetDefault("scenario.fuel.alternate_nm", models.DefaultAlternateNM)
	v.SetDefault("scenario.fuel.alternate_kt", models.DefaultAlternateSpeedKt)
	v.SetDefault("scenario.holding.inner_nm", models.DefaultHoldInnerNM)
	v.SetDefault("scenario.holding.outer_nm", models.DefaultHoldOuterNM)
	v.SetDefault("scenario.holding.speed_kt", models.DefaultHoldSpeedKt)

	v.SetDefault("trials.count", 30)
	v.SetDefault("trials.workers", 4)
	v.SetDefault("trials.lambdas", []float64{0.02, 0.1, 0.2, 0.5, 1})
	v.SetDefault("trials.store_aircraft", false)
	v.SetDefault("trials.progress", false)
	v.SetDefault("trials.progress_interval", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.compress", false)
}

func build(v *viper.Viper) (*Config, error) {
	bands, err := loadBands(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mode:         v.GetString("mode"),
		DBPath:       v.GetString("db_path"),
		ExportPath:   v.GetString("export_path"),
		DumpPath:     v.GetString("dump_path"),
		DumpEvery:    v.GetInt("dump_every"),
		SchedulePath: v.GetString("schedule_path"),
		BatchSize:    v.GetInt("batch_size"),
		BatchTimeout: v.GetInt("batch_timeout"),
		Sim: SimConfig{
			ArrivalProbability: v.GetFloat64("sim.arrival_probability"),
			TotalTicks:         v.GetInt("sim.total_ticks"),
			Seed:               v.GetInt64("sim.seed"),
			DayStartHour:       v.GetInt("sim.day_start_hour"),
			InitialDistanceNM:  v.GetFloat64("sim.initial_distance_nm"),
			CorridorOuterNM:    v.GetFloat64("sim.corridor_outer_nm"),
			MinSeparationMin:   v.GetFloat64("sim.min_separation_min"),
			BufferMin:          v.GetFloat64("sim.buffer_min"),
			RejoinGapMin:       v.GetFloat64("sim.rejoin_gap_min"),
			SpeedStepKt:        v.GetFloat64("sim.speed_step_kt"),
			RejoinSpeedKt:      v.GetFloat64("sim.rejoin_speed_kt"),
			Bands:              bands,
		},
		Scenario: ScenarioConfig{
			Variant:   v.GetString("scenario.variant"),
			Diversion: v.GetString("scenario.diversion"),
			Interruption: InterruptionConfig{
				Probability: v.GetFloat64("scenario.interruption.probability"),
				ReentryNM:   v.GetFloat64("scenario.interruption.reentry_nm"),
			},
			Closure: ClosureConfig{
				Enabled:          v.GetBool("scenario.closure.enabled"),
				StartTick:        v.GetInt("scenario.closure.start_tick"),
				DurationTicks:    v.GetInt("scenario.closure.duration_ticks"),
				RandomStart:      v.GetBool("scenario.closure.random_start"),
				ThresholdNM:      v.GetFloat64("scenario.closure.threshold_nm"),
				WaitCeilingTicks: v.GetInt("scenario.closure.wait_ceiling_ticks"),
				CloseInWaitTicks: v.GetInt("scenario.closure.close_in_wait_ticks"),
				CloseInNM:        v.GetFloat64("scenario.closure.close_in_nm"),
			},
			Fuel: FuelConfig{
				CapacityKg:    v.GetFloat64("scenario.fuel.capacity_kg"),
				MinFraction:   v.GetFloat64("scenario.fuel.min_fraction"),
				MaxFraction:   v.GetFloat64("scenario.fuel.max_fraction"),
				BurnKgPerHour: v.GetFloat64("scenario.fuel.burn_kg_per_hour"),
				AlternateNM:   v.GetFloat64("scenario.fuel.alternate_nm"),
				AlternateKt:   v.GetFloat64("scenario.fuel.alternate_kt"),
			},
			Holding: HoldingConfig{
				InnerNM: v.GetFloat64("scenario.holding.inner_nm"),
				OuterNM: v.GetFloat64("scenario.holding.outer_nm"),
				SpeedKt: v.GetFloat64("scenario.holding.speed_kt"),
			},
		},
		Trials: TrialsConfig{
			Count:            v.GetInt("trials.count"),
			Workers:          v.GetInt("trials.workers"),
			Lambdas:          floats(v.Get("trials.lambdas")),
			StoreAircraft:    v.GetBool("trials.store_aircraft"),
			Progress:         v.GetBool("trials.progress"),
			ProgressInterval: v.GetInt("trials.progress_interval"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			Compress:   v.GetBool("log.compress"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadBands reads sim.bands; an upper_nm of 0 marks the open outer band
func loadBands(v *viper.Viper) ([]models.Band, error) {
	if !v.IsSet("sim.bands") {
		return models.DefaultBands(), nil
	}

	var bands []models.Band
	if err := v.UnmarshalKey("sim.bands", &bands); err != nil {
		return nil, fmt.Errorf("failed to read sim.bands: %w", err)
	}
	for i := range bands {
		if bands[i].UpperNM == 0 {
			bands[i].UpperNM = math.Inf(1)
		}
	}
	return bands, nil
}

// floats accepts a YAML list or a comma separated env value
func floats(raw interface{}) []float64 {
	switch val := raw.(type) {
	case []float64:
		return val
	case string:
		var out []float64
		for _, f := range strings.Split(val, ",") {
			var x float64
			if _, err := fmt.Sscanf(strings.TrimSpace(f), "%g", &x); err == nil {
				out = append(out, x)
			}
		}
		return out
	case []interface{}:
		out := make([]float64, 0, len(val))
		for _, item := range val {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
		return out
	}
	return nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	validModes := map[string]bool{
		"single": true,
		"trials": true,
	}
	if !validModes[strings.ToLower(cfg.Mode)] {
		return fmt.Errorf("invalid mode: %s (must be single or trials)", cfg.Mode)
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than 0")
	}

	if cfg.BatchTimeout <= 0 {
		return fmt.Errorf("batch_timeout must be greater than 0")
	}

	if cfg.Sim.DayStartHour < 0 || cfg.Sim.DayStartHour > 23 {
		return fmt.Errorf("sim.day_start_hour must be between 0 and 23")
	}

	if strings.ToLower(cfg.Mode) == "trials" {
		if cfg.Trials.Count <= 0 {
			return fmt.Errorf("trials.count must be greater than 0")
		}
		if cfg.Trials.Workers <= 0 {
			return fmt.Errorf("trials.workers must be greater than 0")
		}
		if len(cfg.Trials.Lambdas) == 0 {
			return fmt.Errorf("trials.lambdas must not be empty")
		}
		if cfg.Trials.Progress && cfg.Trials.ProgressInterval <= 0 {
			return fmt.Errorf("trials.progress_interval must be greater than 0")
		}
	}

	if _, err := cfg.Run(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}

// Run builds a validated run configuration at the configured arrival
// probability
func (c *Config) Run() (sim.Config, error) {
	return c.RunAt(c.Sim.ArrivalProbability)
}

// RunAt builds a validated run configuration at arrival probability p
func (c *Config) RunAt(p float64) (sim.Config, error) {
	variant, err := models.ParseVariant(strings.ToLower(c.Scenario.Variant))
	if err != nil {
		return sim.Config{}, err
	}

	s, sc := c.Sim, c.Scenario
	rc := sim.Config{
		ArrivalProbability: p,
		TotalTicks:         s.TotalTicks,
		InitialDistanceNM:  s.InitialDistanceNM,
		Bands:              s.Bands,
		Approach: approach.Params{
			MinSeparationMin: s.MinSeparationMin,
			BufferMin:        s.BufferMin,
			RejoinGapMin:     s.RejoinGapMin,
			SpeedStepKt:      s.SpeedStepKt,
			RejoinSpeedKt:    s.RejoinSpeedKt,
			CorridorOuterNM:  s.CorridorOuterNM,
		},
		Variant:   variant,
		Diversion: sim.Diversion(strings.ToLower(sc.Diversion)),
		Interruption: approach.Interruption{
			Probability: sc.Interruption.Probability,
			ReentryNM:   sc.Interruption.ReentryNM,
		},
		Closure: sim.ClosureConfig{
			Enabled:          sc.Closure.Enabled,
			StartTick:        sc.Closure.StartTick,
			DurationTicks:    sc.Closure.DurationTicks,
			RandomStart:      sc.Closure.RandomStart,
			ThresholdNM:      sc.Closure.ThresholdNM,
			WaitCeilingTicks: sc.Closure.WaitCeilingTicks,
			CloseInWaitTicks: sc.Closure.CloseInWaitTicks,
			CloseInNM:        sc.Closure.CloseInNM,
		},
		Fuel: approach.FuelPlan{
			CapacityKg:    sc.Fuel.CapacityKg,
			MinFraction:   sc.Fuel.MinFraction,
			MaxFraction:   sc.Fuel.MaxFraction,
			BurnKgPerHour: sc.Fuel.BurnKgPerHour,
			AlternateNM:   sc.Fuel.AlternateNM,
			AlternateKt:   sc.Fuel.AlternateKt,
		},
		Holding: approach.Holding{
			InnerNM: sc.Holding.InnerNM,
			OuterNM: sc.Holding.OuterNM,
			SpeedKt: sc.Holding.SpeedKt,
		},
	}

	if err := rc.Validate(); err != nil {
		return sim.Config{}, err
	}
	return rc, nil
}
