// Package cf reads and edits conditional formatting blocks of a BIFF8
// worksheet: one CFHEADER record followed by the CF rule records it
// declares.
package cf

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// LegacyRuleLimit is the number of rules per block that Excel 97-2003 can
// display. Blocks may hold more.
const LegacyRuleLimit = 3

var validate = validator.New()

// Options controls aggregate behaviour.
type Options struct {
	// SoftRuleLimit is the rule count above which Add logs a compatibility
	// warning. Zero selects LegacyRuleLimit.
	SoftRuleLimit int `validate:"min=0"`

	// Logger receives the warnings. Nil discards.
	Logger *slog.Logger `validate:"-"`
}

// Option mutates Options.
type Option func(*Options)

// WithSoftRuleLimit overrides LegacyRuleLimit.
func WithSoftRuleLimit(n int) Option { return func(o *Options) { o.SoftRuleLimit = n } }

// WithLogger routes warnings to l.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

func buildOptions(opts []Option) (Options, error) {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if err := validate.Struct(o); err != nil {
		return Options{}, fmt.Errorf("cf: options: %w", err)
	}
	if o.SoftRuleLimit == 0 {
		o.SoftRuleLimit = LegacyRuleLimit
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o, nil
}
