// Package unitctl inspects and restarts the daemon's systemd unit over D-Bus.
package unitctl

import (
	"errors"
	"strings"
	"time"
)

// DefaultUnit is the unit name healthd is installed under.
const DefaultUnit = "swasthai"

var ErrUnsupported = errors.New("unitctl: systemd is only available on linux")

// Status is a snapshot of one unit.
type Status struct {
	Unit        string        `json:"unit"`
	Active      string        `json:"active"`
	SubState    string        `json:"subState"`
	LoadState   string        `json:"loadState"`
	Description string        `json:"description,omitempty"`
	MainPID     uint32        `json:"mainPid,omitempty"`
	Memory      uint64        `json:"memory,omitempty"`
	ActiveSince time.Time     `json:"activeSince,omitempty"`
	Uptime      time.Duration `json:"uptime,omitempty"`
}

// Found reports whether systemd knows the unit.
func (s Status) Found() bool { return s.LoadState != "not-found" }

// unitName appends ".service" when name has no unit suffix.
func unitName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultUnit
	}
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func notFound(unit string) Status {
	return Status{Unit: unit, Active: "unknown", SubState: "not-found", LoadState: "not-found"}
}

// fromProps maps a unit property map. Timestamps are microseconds since epoch.
func fromProps(unit string, props map[string]any, now time.Time) Status {
	str := func(k string) string {
		v, _ := props[k].(string)
		return v
	}
	st := Status{
		Unit:        unit,
		Active:      str("ActiveState"),
		SubState:    str("SubState"),
		LoadState:   str("LoadState"),
		Description: str("Description"),
	}
	if st.LoadState == "not-found" {
		return notFound(unit)
	}
	if pid, ok := props["MainPID"].(uint32); ok {
		st.MainPID = pid
	}
	// systemd reports an unset memory counter as the max uint64.
	if mem, ok := props["MemoryCurrent"].(uint64); ok && mem != ^uint64(0) {
		st.Memory = mem
	}
	if ts, ok := props["ActiveEnterTimestamp"].(uint64); ok && ts > 0 {
		st.ActiveSince = time.UnixMicro(int64(ts))
		if st.Active == "active" {
			st.Uptime = now.Sub(st.ActiveSince).Truncate(time.Second)
		}
	}
	return st
}

func isNoSuchUnit(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NoSuchUnit")
}
