// Package config loads and validates the settings shared by the cmpack and
// cmperf commands.
//
// Settings live in a YAML file. Missing keys keep the values from Default,
// so a file only needs the keys it changes:
//
//	variant: avx2
//	model:
//	  orders: [0, 1, 2, 3, 4, 6]
//	  table_bits: 20
//	mixer:
//	  scale_factor: 1024
//	  use_arena: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sbl8/ctxmix/kernels"
	"github.com/sbl8/ctxmix/mixer"
	"github.com/sbl8/ctxmix/model"
)

// Config is the complete configuration.
type Config struct {
	// Variant names the kernel variant: auto, scalar, sse2, avx2 or neon.
	Variant string `yaml:"variant" validate:"variant"`

	Log   LogConfig   `yaml:"log"`
	Model ModelConfig `yaml:"model"`
	Mixer MixerConfig `yaml:"mixer"`
}

// LogConfig controls the command-line logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ModelConfig shapes the reference predictor. The bounds match
// model.MaxOrders, model.MaxOrder and the predictor's table size limits.
type ModelConfig struct {
	Orders      []int `yaml:"orders" validate:"required,min=1,max=16,dive,gte=0,lte=8"`
	TableBits   int   `yaml:"table_bits" validate:"gte=8,lte=28"`
	CounterRate int   `yaml:"counter_rate" validate:"gte=1,lte=15"`
}

// MixerConfig tunes the mixing network.
type MixerConfig struct {
	ScaleFactor         int  `yaml:"scale_factor" validate:"gt=0,lte=1048576"`
	CombinerScaleFactor int  `yaml:"combiner_scale_factor" validate:"gt=0,lte=1048576"`
	LearningRate        int  `yaml:"learning_rate" validate:"gt=0"`
	LeafFloor           int  `yaml:"leaf_floor" validate:"gt=0"`
	InternalFloor       int  `yaml:"internal_floor" validate:"gt=0"`
	UseArena            bool `yaml:"use_arena"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("variant", func(fl validator.FieldLevel) bool {
		_, err := kernels.ParseVariant(fl.Field().String())
		return err == nil
	})
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Variant: "auto",
		Log:     LogConfig{Level: "info"},
		Model: ModelConfig{
			Orders:      []int{0, 1, 2, 3, 4, 6},
			TableBits:   18,
			CounterRate: 4,
		},
		Mixer: MixerConfig{
			ScaleFactor:         1024,
			CombinerScaleFactor: 1024,
			LearningRate:        mixer.MaxLearningRate,
			LeafFloor:           mixer.MinLearningRateLeaf,
			InternalFloor:       mixer.MinLearningRateInternal,
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and the relations between fields.
func (c Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Mixer.LearningRate < c.Mixer.LeafFloor || c.Mixer.LearningRate < c.Mixer.InternalFloor {
		errs = append(errs, fmt.Errorf("learning_rate %d is below a floor (leaf %d, internal %d)",
			c.Mixer.LearningRate, c.Mixer.LeafFloor, c.Mixer.InternalFloor))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// KernelVariant resolves the configured variant name.
func (c Config) KernelVariant() kernels.Variant {
	v, err := kernels.ParseVariant(c.Variant)
	if err != nil {
		return kernels.Best()
	}
	return v
}

// SlogLevel maps Log.Level to a slog level.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ModelOptions translates the configuration into predictor options.
func (c Config) ModelOptions() model.Options {
	return model.Options{
		Orders:              append([]int(nil), c.Model.Orders...),
		TableBits:           c.Model.TableBits,
		CounterRate:         c.Model.CounterRate,
		Variant:             c.KernelVariant(),
		ScaleFactor:         c.Mixer.ScaleFactor,
		CombinerScaleFactor: c.Mixer.CombinerScaleFactor,
		LearningRate:        c.Mixer.LearningRate,
		LeafFloor:           c.Mixer.LeafFloor,
		InternalFloor:       c.Mixer.InternalFloor,
		UseArena:            c.Mixer.UseArena,
	}
}
