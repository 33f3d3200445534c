package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "swasthai/pkg/logx"
)

// Config controls the scheduler.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Kolkata"; empty means Local
}

// Job is a scheduled unit of work.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name    string
	spec    string // cron spec or @every
	timeout time.Duration
	job     Job
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef
	// started is set between Start and Stop.
	started bool

	// runCtx is canceled by Stop so in-flight jobs observe shutdown.
	runCtx    context.Context
	runCancel context.CancelFunc

	hmu     sync.Mutex
	history []RunRecord
}

// RunRecord is one finished job execution.
type RunRecord struct {
	Name    string        `json:"name"`
	Started time.Time     `json:"started"`
	Took    time.Duration `json:"took"`
	Error   string        `json:"error,omitempty"`
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
}

type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	Running   bool           `json:"running"`
	Timezone  string         `json:"timezone"`
	Schedules []ScheduleInfo `json:"schedules"`
	History   []RunRecord    `json:"history"`
}
