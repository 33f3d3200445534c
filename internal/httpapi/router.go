package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	logx "swasthai/pkg/logx"
)

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(d Deps) *mux.Router {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/family-members", h.listMembers).Methods(http.MethodGet)
	api.HandleFunc("/family-members", h.createMember).Methods(http.MethodPost)
	api.HandleFunc("/family-members/{id}", h.updateMember).Methods(http.MethodPut)
	api.HandleFunc("/family-members/{id}", h.deleteMember).Methods(http.MethodDelete)
	api.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/scan", h.scan).Methods(http.MethodPost)
	api.HandleFunc("/calendar.ics", h.calendarICS).Methods(http.MethodGet)
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)

	r.HandleFunc("/ask", h.ask).Methods(http.MethodPost)
	r.HandleFunc("/doctors", h.doctors).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// NewHandler wraps the router with recovery, CORS, auth and access logging.
// CORS sits outside the router so preflight requests never hit 405.
func NewHandler(d Deps, token, allowOrigin string) http.Handler {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	var h http.Handler = NewRouter(d)
	h = accessLog(log)(h)
	h = bearer(token)(h)
	h = cors(allowOrigin)(h)
	return recovery(log)(h)
}
