package deps

import (
	"time"

	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/porter"
	"github.com/tidemark/tidemark/internal/store/bolt"
	"github.com/tidemark/tidemark/internal/syncer"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Store        *bolt.Store          // Local replicated document store
	Orchestrator *syncer.Orchestrator // Sync engine, nil when no backends configured
	Porter       *porter.Porter       // Import/export
}

// Now returns the injected clock, falling back to time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
