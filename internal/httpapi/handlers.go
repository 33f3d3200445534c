package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"swasthai/internal/assistant"
	"swasthai/internal/calendar"
	"swasthai/internal/eventbus"
	"swasthai/internal/reminder"
	"swasthai/internal/storage"
	logx "swasthai/pkg/logx"
)

const msgMemberNotFound = "Family member not found"

// Store is the part of storage.Store the API serves.
type Store interface {
	List(ctx context.Context) ([]reminder.Member, error)
	Create(ctx context.Context, m reminder.Member) (reminder.Member, error)
	Update(ctx context.Context, id string, m reminder.Member) (reminder.Member, error)
	Delete(ctx context.Context, id string) error
	ListNotifications(ctx context.Context) ([]reminder.Notification, error)
}

// Scanner runs the reminder scan on demand.
type Scanner interface {
	Today() time.Time
	Run(ctx context.Context) (reminder.Report, error)
	RunAt(ctx context.Context, today time.Time) (reminder.Report, error)
}

// Assistant answers questions and finds doctors.
type Assistant interface {
	Ask(ctx context.Context, question, language string) (assistant.Answer, error)
	Doctors(ctx context.Context, condition, location string) (json.RawMessage, error)
}

// Deps are the collaborators behind the routes. Assistant and Status may be nil.
type Deps struct {
	Store     Store
	Scanner   Scanner
	Assistant Assistant
	// Status, when set, backs GET /api/status.
	Status func() any
	// Bus, when set, receives member.changed events.
	Bus eventbus.Bus
	Log logx.Logger
	Now func() time.Time
}

// MemberChange is the payload of member.changed events.
type MemberChange struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

type handlers struct {
	Deps
}

func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.List(r.Context())
	if err != nil {
		h.storeError(w, "list members", err)
		return
	}
	if members == nil {
		members = []reminder.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *handlers) createMember(w http.ResponseWriter, r *http.Request) {
	var m reminder.Member
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.Store.Create(r.Context(), m)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "Family member already exists")
			return
		}
		h.storeError(w, "create member", err)
		return
	}
	h.Log.Info("family member created", logx.String("id", created.ID))
	h.changed("create", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) updateMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var m reminder.Member
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.Store.Update(r.Context(), id, m)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgMemberNotFound)
			return
		}
		h.storeError(w, "update member", err)
		return
	}
	h.changed("update", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) deleteMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgMemberNotFound)
			return
		}
		h.storeError(w, "delete member", err)
		return
	}
	h.Log.Info("family member deleted", logx.String("id", id))
	h.changed("delete", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Family member deleted"})
}

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Store.ListNotifications(r.Context())
	if err != nil {
		h.storeError(w, "list notifications", err)
		return
	}
	if ns == nil {
		ns = []reminder.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	var (
		rep reminder.Report
		err error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("today")); raw != "" {
		today, perr := reminder.ParseDate(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "today must be YYYY-MM-DD")
			return
		}
		// A future date would send real reminders early and mark them done.
		if today.After(h.Scanner.Today()) {
			writeError(w, http.StatusBadRequest, "today must not be in the future")
			return
		}
		rep, err = h.Scanner.RunAt(r.Context(), today)
	} else {
		rep, err = h.Scanner.Run(r.Context())
	}
	if err != nil {
		h.Log.Warn("manual scan failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handlers) calendarICS(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.List(r.Context())
	if err != nil {
		h.storeError(w, "list members", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="swasthai.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.Export(members, h.Now())))
}

type askRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}
	if h.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, assistant.ErrDisabled.Error())
		return
	}
	ans, err := h.Assistant.Ask(r.Context(), req.Question, req.Language)
	if err != nil {
		h.assistantError(w, "ask", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": ans.Response, "summary": ans.Summary})
}

type doctorsRequest struct {
	Condition string `json:"condition"`
	Location  string `json:"location"`
}

func (h *handlers) doctors(w http.ResponseWriter, r *http.Request) {
	var req doctorsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Condition) == "" || strings.TrimSpace(req.Location) == "" {
		writeError(w, http.StatusBadRequest, "Condition and location required")
		return
	}
	if h.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, assistant.ErrDisabled.Error())
		return
	}
	data, err := h.Assistant.Doctors(r.Context(), req.Condition, req.Location)
	if err != nil {
		h.assistantError(w, "doctors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"doctors": data})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	if h.Status == nil {
		writeError(w, http.StatusNotFound, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *handlers) changed(op, id string) {
	if h.Bus == nil {
		return
	}
	h.Bus.Publish(eventbus.Event{Type: eventbus.MemberChanged, Time: h.Now(), Data: MemberChange{Op: op, ID: id}})
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) storeError(w http.ResponseWriter, op string, err error) {
	h.Log.Error("store failure", logx.String("op", op), logx.Err(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *handlers) assistantError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, assistant.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, assistant.ErrTimeout):
		h.Log.Warn("assistant timed out", logx.String("op", op))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		h.Log.Warn("assistant failed", logx.String("op", op), logx.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
