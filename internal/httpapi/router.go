package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{DB: d.Store.DB(), Clock: d.Clock}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.Handle("/metrics", promhttp.Handler())

	// Reports
	rh := ReportHandler{Engine: d.Engine}
	mux.HandleFunc("GET /stats", rh.Stats)
	mux.HandleFunc("GET /report", rh.Report)
	mux.HandleFunc("GET /followups", rh.FollowUps)
	mux.HandleFunc("GET /timeline", rh.Timeline)
	mux.HandleFunc("GET /response-times", rh.ResponseTimes)

	// Companies and applications
	ch := CompaniesHandler{Store: d.Store}
	mux.HandleFunc("/companies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ch.List,
		http.MethodPost: ch.Create,
	}))
	ah := ApplicationsHandler{Store: d.Store, Engine: d.Engine, Hub: d.Hub}
	mux.HandleFunc("/applications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ah.List,
		http.MethodPost: ah.Create,
	}))
	mux.HandleFunc("POST /applications/{id}/followup", ah.FollowUp)
	mux.HandleFunc("POST /applications/{id}/response", ah.Response)

	// Job posts
	jh := JobsHandler{Store: d.Store}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.List,
		http.MethodPost: jh.Create,
	}))
	mux.HandleFunc("POST /jobs/{id}/applied", jh.MarkApplied)

	// Background jobs
	cyc := JobHandler{Tracker: d.Cycle}
	mux.HandleFunc("POST /cycle/run", cyc.Run)
	mux.HandleFunc("GET /cycle/status", cyc.Status)
	sch := JobHandler{Tracker: d.Scrape, Async: true}
	mux.HandleFunc("POST /jobs/scrape", sch.Run)
	mux.HandleFunc("GET /jobs/scrape/status", sch.Status)

	// Config
	cfh := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Apply:       d.OnConfigSaved,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: cfh.Get,
		http.MethodPut: cfh.Put,
	}))
	mux.HandleFunc("GET /config/path", cfh.Path)
	mux.HandleFunc("GET /config/validate", cfh.Validate)

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetIMAPPassword,
		http.MethodDelete: sh.DeleteIMAPPassword,
	}))

	dbh := DBHandler{DB: d.Store.DB()}
	mux.HandleFunc("POST /db/checkpoint", dbh.Checkpoint)

	// SSE events
	eh := EventsHandler{Hub: d.Hub, Clock: d.Clock}
	mux.HandleFunc("GET /events", eh.ServeSSE)

	return mux
}
