package tripauth

import (
	"time"

	"go.uber.org/zap"
)

// Config defines a public type used by tripauth APIs.
// Zero values fall back to the defaults applied by [NewOrchestrator];
// instances are intended to be configured during initialization and treated
// as read-only afterwards.
type Config struct {
	// Logger receives structured events for best-effort operations that are
	// logged rather than surfaced as errors. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Now supplies the clock used for session expiry checks. Defaults to
	// time.Now. Tests override it to pin time.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
