package httpapi

import (
	"log/slog"
	"sync/atomic"

	"internflow-engine/internal/config"
	"internflow-engine/internal/events"
	"internflow-engine/internal/lifecycle"
	"internflow-engine/internal/poll"
	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
)

type Deps struct {
	Store  *store.Store
	Engine *lifecycle.Engine
	Hub    *events.Hub

	// Background jobs; both also run on demand through the API.
	Cycle  *poll.Tracker
	Scrape *poll.Tracker

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
	// OnConfigSaved, when set, receives every config saved through PUT /config.
	OnConfigSaved func(config.Config)

	Clock clockwork.Clock
	Log   *slog.Logger
}
