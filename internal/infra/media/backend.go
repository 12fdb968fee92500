package media

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Backend names.
const (
	BackendBeep = "beep"
	BackendMPV  = "mpv"
	BackendNull = "null"
)

// Config holds backend configuration.
type Config struct {
	Backend            string
	TimeUpdateInterval time.Duration // Period of timeupdate events while playing
	HTTPClient         *http.Client  // Used by backends that fetch sources themselves
}

// BackendInfo describes a backend for listings.
type BackendInfo struct {
	Name        string
	Description string
	Available   bool
}

// Backends lists the known backends and whether this build supports them.
func Backends() []BackendInfo {
	return []BackendInfo{
		{Name: BackendBeep, Description: "decode mp3/wav in-process and play through the system speaker", Available: beepAvailable},
		{Name: BackendMPV, Description: "libmpv player (build with -tags libmpv)", Available: mpvAvailable},
		{Name: BackendNull, Description: "simulated output without audio", Available: true},
	}
}

// New creates the output selected by cfg.Backend.
func New(cfg Config) (Output, error) {
	if cfg.TimeUpdateInterval <= 0 {
		cfg.TimeUpdateInterval = defaultTimeUpdatePeriod
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	zlog.Debug().Msgf("media: creating output: backend=%s time_update=%v", cfg.Backend, cfg.TimeUpdateInterval)

	switch cfg.Backend {
	case BackendBeep:
		out, err := NewBeepOutput(cfg)
		if err != nil {
			return nil, err
		}
		return out, nil
	case BackendMPV:
		out, err := NewMPVOutput(cfg)
		if err != nil {
			return nil, err
		}
		return out, nil
	case BackendNull, "":
		return NewNullOutput(cfg), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "backend %q", cfg.Backend)
	}
}
