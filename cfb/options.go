package cfb

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/joshuapare/cfbkit/internal/format"
)

// DefaultCacheSectors is the sector cache size used by OpenReaderAt.
const DefaultCacheSectors = 1024

var validate = validator.New()

// Options controls how containers are opened and created.
type Options struct {
	// SectorSize applies to New only. Zero selects 512.
	SectorSize int `validate:"omitempty,oneof=512 4096"`

	// CacheSectors bounds the number of sectors kept in memory by
	// OpenReaderAt. Zero selects DefaultCacheSectors.
	CacheSectors int `validate:"min=0"`

	// MaxSectors rejects inputs holding more sectors than this. Zero
	// disables the check.
	MaxSectors int `validate:"min=0"`

	// Logger receives warnings about tolerated anomalies. Nil discards.
	Logger *slog.Logger `validate:"-"`
}

// Option mutates Options.
type Option func(*Options)

// WithSectorSize selects the sector size for New.
func WithSectorSize(n int) Option { return func(o *Options) { o.SectorSize = n } }

// WithCacheSectors sets the OpenReaderAt sector cache size.
func WithCacheSectors(n int) Option { return func(o *Options) { o.CacheSectors = n } }

// WithMaxSectors caps the number of sectors an input may hold.
func WithMaxSectors(n int) Option { return func(o *Options) { o.MaxSectors = n } }

// WithLogger routes diagnostics to l.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

func buildOptions(opts []Option) (Options, error) {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if err := validate.Struct(o); err != nil {
		return Options{}, fmt.Errorf("cfb: options: %w", err)
	}
	if o.SectorSize == 0 {
		o.SectorSize = format.SmallSectorSize
	}
	if o.CacheSectors == 0 {
		o.CacheSectors = DefaultCacheSectors
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o, nil
}
