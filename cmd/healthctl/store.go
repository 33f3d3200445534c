package main

import (
	"context"
	"sync"

	"swasthai/internal/app"
	"swasthai/internal/reminder"
	"swasthai/internal/storage"
	logx "swasthai/pkg/logx"
)

func openStore(o *rootOpts, log logx.Logger) (storage.Store, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	sc, err := app.MapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	return storage.Open(sc, log)
}

// dryRunSource reads members and the log from the store but keeps appends in memory.
type dryRunSource struct {
	storage.Store

	mu      sync.Mutex
	pending []reminder.Notification
}

func (d *dryRunSource) ListNotifications(ctx context.Context) ([]reminder.Notification, error) {
	ns, err := d.Store.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(ns, d.pending...), nil
}

func (d *dryRunSource) AppendNotification(_ context.Context, n reminder.Notification) error {
	d.mu.Lock()
	d.pending = append(d.pending, n)
	d.mu.Unlock()
	return nil
}

// recorder is a dispatcher that records messages and reports success.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Send(_ context.Context, subject, _ string) bool {
	r.mu.Lock()
	r.msgs = append(r.msgs, subject)
	r.mu.Unlock()
	return true
}
