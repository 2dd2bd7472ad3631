package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"remote-screen/pkg/cache"
	"remote-screen/pkg/config"
	"remote-screen/pkg/errno"
)

// State is what the Watcher last learned about the control panel.
type State struct {
	Found  bool
	Server ServerInfo
	Err    error
}

// Watcher keeps looking for the control panel in the background so the UI
// can show whether it is reachable.
type Watcher struct {
	client   *Client
	guid     string
	cfg      config.DiscoveryConfig
	store    cache.Cache
	onChange func(State)
	log      *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    State
	started bool
}

func NewWatcher(client *Client, guid string, cfg config.DiscoveryConfig, store cache.Cache, onChange func(State)) *Watcher {
	if store == nil {
		store = cache.NewMemoryCache(cfg.CacheTTL, time.Minute)
	}
	return &Watcher{
		client:   client,
		guid:     guid,
		cfg:      cfg,
		store:    store,
		onChange: onChange,
		log:      client.log.With(zap.String("guid", guid)),
	}
}

var ErrWatcherRunning = errors.New("discovery watcher already running")

// Start launches the scan loop. A stopped Watcher can be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWatcherRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = false
	go w.run(ctx, w.done)
	return nil
}

// Stop ends the scan loop and waits for it.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Current returns the last endpoint seen, while it is still fresh.
func (w *Watcher) Current() (ServerInfo, bool) {
	var info ServerInfo
	if err := w.store.Get(context.Background(), w.cacheKey(), &info); err != nil {
		return ServerInfo{}, false
	}
	return info, true
}

func (w *Watcher) cacheKey() string {
	return "discovery:" + w.guid
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	failures := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		info, err := w.client.FindServer(ctx, w.guid, w.cfg.ScanTimeout)
		var wait time.Duration
		switch {
		case err == nil:
			failures = 0
			_ = w.store.Set(ctx, w.cacheKey(), info, w.cfg.CacheTTL)
			w.publish(State{Found: true, Server: info})
			wait = w.cfg.RecheckInterval
		case errors.Is(err, errno.ErrCancelled):
			return
		default:
			failures++
			_ = w.store.Delete(ctx, w.cacheKey())
			w.publish(State{Err: err})
			wait = w.cfg.PollInterval
			if failures >= w.cfg.FailureThreshold {
				// 连续失败，暂停一段时间
				w.log.Debug("control panel still missing, backing off",
					zap.Int("failures", failures), zap.Duration("backoff", w.cfg.Backoff))
				wait = w.cfg.Backoff
				failures = 0
			}
		}
		timer.Reset(wait)
	}
}

// publish reports only transitions.
func (w *Watcher) publish(s State) {
	w.mu.Lock()
	changed := !w.started || s.Found != w.last.Found || s.Server != w.last.Server
	w.last = s
	w.started = true
	w.mu.Unlock()

	if !changed {
		return
	}
	if s.Found {
		w.log.Info("control panel available", zap.String("address", s.Server.Address()))
	} else {
		w.log.Info("control panel unavailable", zap.Error(s.Err))
	}
	if w.onChange != nil {
		w.onChange(s)
	}
}
