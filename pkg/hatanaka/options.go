package hatanaka

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/de-bkg/hatanaka/pkg/clock"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Version of the compression program, written into the CRINEX PROG / DATE header line.
const Version = "1.0.0"

// Default differencing orders.
const (
	DefaultMaxOrder   = 8
	DefaultOrder      = 3
	DefaultClockOrder = 3
)

// use a single instance of Validate, it caches struct info
var validate = validator.New()

// Options configures compression and decompression.
type Options struct {
	// MaxOrder is the maximum differencing order accepted in the compact stream.
	// The order is written as a single digit, so it can not exceed 9.
	MaxOrder int `yaml:"maxOrder" validate:"min=0,max=9"`

	// Order is the differencing order used for the observations when compressing.
	Order int `yaml:"order" validate:"min=0,ltefield=MaxOrder"`

	// ClockOrder is the differencing order used for the receiver clock offset when compressing.
	ClockOrder int `yaml:"clockOrder" validate:"min=0,ltefield=MaxOrder"`

	// Strict rejects observation records with more fields or flags than declared in the header.
	Strict bool `yaml:"strict"`

	// Force overwrites existing output files.
	Force bool `yaml:"force"`

	// Gzip compresses output files with gzip. Output files ending with ".gz" are always gzipped.
	Gzip bool `yaml:"gzip"`

	// Program is written into the CRINEX PROG / DATE header line.
	Program string `yaml:"program" validate:"max=40"`

	Clock  clock.Clock `yaml:"-" validate:"-"` // Clock for the CRINEX PROG / DATE line, defaults to the system clock.
	Logger *log.Logger `yaml:"-" validate:"-"` // Logger, defaults to the package logger of charmbracelet/log.
}

// DefaultOptions returns the options used by the RNX2CRX and CRX2RNX programs.
func DefaultOptions() Options {
	return Options{
		MaxOrder:   DefaultMaxOrder,
		Order:      DefaultOrder,
		ClockOrder: DefaultClockOrder,
		Program:    "hatanaka ver." + Version,
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// LoadOptions reads options from the YAML file path. Fields missing in the file keep their default value.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options %s: %v", path, err)
	}
	return opts, opts.Validate()
}

func (o *Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

func (o *Options) timeSource() clock.Clock {
	if o.Clock == nil {
		return clock.SystemClock{}
	}
	return o.Clock
}
