package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/logger"
	"github.com/cesargomez89/musicdl/internal/progress"
	"github.com/cesargomez89/musicdl/internal/storage"
)

// Journal persists batches, outcomes and log blocks. Errors are logged and
// never affect a download.
type Journal interface {
	CreateBatch(batch *domain.Batch) error
	FinishBatch(id string, completed int, at time.Time) error
	SaveDownload(d *domain.Download) error
	AppendLog(entry *domain.LogEntry) error
	ClearLogs() error
}

type Options struct {
	Fetcher     Fetcher
	Covers      CoverSource
	Transcoder  Transcoder
	Journal     Journal
	Logger      *logger.Logger
	Now         func() time.Time
	Layout      storage.Layout
	BaseDir     string
	Ext         string
	Concurrency int
}

type submitRequest struct {
	reply chan domain.BatchHandle
	items []domain.Item
}

// Manager accepts batches, runs their tasks on a bounded pool and folds the
// resulting events into a single aggregator owned by its run loop.
type Manager struct {
	fetcher    Fetcher
	covers     CoverSource
	transcoder Transcoder
	journal    Journal
	Logger     *logger.Logger
	pool       *Pool
	bus        *Bus
	agg        *progress.Aggregator
	ctx        context.Context
	cancel     context.CancelFunc

	submits   chan submitRequest
	snapshots chan chan progress.Snapshot
	logReqs   chan chan []domain.LogEntry
	clearReqs chan chan error
	loopDone  chan struct{}

	subs    map[int]chan progress.Snapshot
	layout  storage.Layout
	baseDir string
	ext     string

	cancelBatch context.CancelFunc
	tasks       sync.WaitGroup
	subsMu      sync.Mutex
	dirMu       sync.RWMutex
	startOnce   sync.Once
	stopOnce    sync.Once
	nextSub     int
}

func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrency
	}
	ext := opts.Ext
	if ext == "" {
		ext = constants.DefaultAudioFormat
	}

	m := &Manager{
		fetcher:    opts.Fetcher,
		covers:     opts.Covers,
		transcoder: opts.Transcoder,
		journal:    opts.Journal,
		Logger:     log.WithComponent("downloads"),
		pool:       NewPool(concurrency),
		bus:        NewBus(constants.EventBufferSize),
		agg:        progress.New(opts.Now),
		submits:    make(chan submitRequest),
		snapshots:  make(chan chan progress.Snapshot),
		logReqs:    make(chan chan []domain.LogEntry),
		clearReqs:  make(chan chan error),
		loopDone:   make(chan struct{}),
		subs:       make(map[int]chan progress.Snapshot),
		layout:     opts.Layout,
		baseDir:    opts.BaseDir,
		ext:        storage.ParseExtension(ext),
	}
	m.agg.OnLog = m.persistLog
	return m
}

// Start launches the run loop. Cancelling ctx has the same effect as Stop.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)
		m.Logger.Info("Starting download manager", "concurrency", m.pool.Capacity())
		go m.loop()
	})
}

// Stop cancels running tasks and waits for them and the run loop to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.Logger.Info("Stopping download manager")
		started := true
		m.startOnce.Do(func() { started = false })
		if started {
			m.cancel()
			<-m.loopDone
		} else {
			close(m.loopDone)
		}
		m.bus.Close()
		m.tasks.Wait()

		m.subsMu.Lock()
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.subsMu.Unlock()
	})
}

// Submit starts a new batch, superseding the current one. Tasks of the
// previous batch are cancelled and their events ignored.
func (m *Manager) Submit(ctx context.Context, items []domain.Item) (domain.BatchHandle, error) {
	if len(items) == 0 {
		return domain.BatchHandle{}, domain.ErrEmptyBatch
	}

	req := submitRequest{
		items: append([]domain.Item(nil), items...),
		reply: make(chan domain.BatchHandle, 1),
	}
	select {
	case m.submits <- req:
	case <-ctx.Done():
		return domain.BatchHandle{}, ctx.Err()
	case <-m.loopDone:
		return domain.BatchHandle{}, domain.ErrManagerStopped
	}

	select {
	case h := <-req.reply:
		return h, nil
	case <-m.loopDone:
		return domain.BatchHandle{}, domain.ErrManagerStopped
	}
}

// Snapshot returns the current aggregate state.
func (m *Manager) Snapshot(ctx context.Context) (progress.Snapshot, error) {
	reply := make(chan progress.Snapshot, 1)
	select {
	case m.snapshots <- reply:
	case <-ctx.Done():
		return progress.Snapshot{}, ctx.Err()
	case <-m.loopDone:
		return progress.Snapshot{}, domain.ErrManagerStopped
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-m.loopDone:
		return progress.Snapshot{}, domain.ErrManagerStopped
	}
}

// Logs returns the session log blocks of this process.
func (m *Manager) Logs(ctx context.Context) ([]domain.LogEntry, error) {
	reply := make(chan []domain.LogEntry, 1)
	select {
	case m.logReqs <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.loopDone:
		return nil, domain.ErrManagerStopped
	}
	select {
	case logs := <-reply:
		return logs, nil
	case <-m.loopDone:
		return nil, domain.ErrManagerStopped
	}
}

// ClearLogs empties the session log in memory and in the journal.
func (m *Manager) ClearLogs(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case m.clearReqs <- reply:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.loopDone:
		return domain.ErrManagerStopped
	}
	select {
	case err := <-reply:
		return err
	case <-m.loopDone:
		return domain.ErrManagerStopped
	}
}

// Subscribe returns a channel that always holds the latest snapshot after a
// change. Intermediate snapshots are dropped for slow readers. The returned
// func unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan progress.Snapshot, func()) {
	ch := make(chan progress.Snapshot, constants.SnapshotSubscriberSize)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
}

// BaseDir is the directory new batches are placed under.
func (m *Manager) BaseDir() string {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	return m.baseDir
}

// SetBaseDir changes the base directory for batches submitted afterwards.
func (m *Manager) SetBaseDir(dir string) {
	m.dirMu.Lock()
	m.baseDir = dir
	m.dirMu.Unlock()
}

// Capacity is the maximum number of tasks running at once.
func (m *Manager) Capacity() int {
	return m.pool.Capacity()
}

func (m *Manager) loop() {
	defer close(m.loopDone)
	for {
		select {
		case <-m.ctx.Done():
			if m.cancelBatch != nil {
				m.cancelBatch()
			}
			return
		case req := <-m.submits:
			req.reply <- m.startBatch(req.items)
			m.broadcast()
		case ev := <-m.bus.Events():
			if m.handleEvent(ev) {
				m.broadcast()
			}
		case reply := <-m.snapshots:
			reply <- m.agg.Snapshot()
		case reply := <-m.logReqs:
			reply <- m.agg.Logs()
		case reply := <-m.clearReqs:
			reply <- m.clearLogs()
		}
	}
}

func (m *Manager) startBatch(items []domain.Item) domain.BatchHandle {
	if m.cancelBatch != nil {
		m.cancelBatch()
		m.Logger.Info("Superseding previous batch")
	}

	batchID := uuid.New().String()
	ids := m.agg.Submit(batchID, items)
	batchCtx, cancel := context.WithCancel(m.ctx)
	m.cancelBatch = cancel

	log := m.Logger.WithBatch(batchID, len(items))
	log.Info("Starting batch")

	if m.journal != nil {
		batch := &domain.Batch{ID: batchID, Total: len(items), StartedAt: time.Now()}
		if err := m.journal.CreateBatch(batch); err != nil {
			log.Error("Failed to record batch", "error", err)
		}
	}

	base := m.BaseDir()
	for i, item := range items {
		m.spawn(batchCtx, ids[i], item, base, log)
	}

	return domain.BatchHandle{BatchID: batchID, ItemIDs: ids}
}

func (m *Manager) spawn(ctx context.Context, id domain.ItemID, item domain.Item, base string, log *logger.Logger) {
	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()

		if err := m.pool.Acquire(ctx); err != nil {
			m.bus.Publish(domain.TerminalEvent(id, domain.Result{
				Err: fmt.Errorf("%w: %v", domain.ErrCancelled, err),
			}))
			return
		}
		defer m.pool.Release()
		log.Debug("Task admitted", "item_id", uint64(id), "in_use", m.pool.InUse(), "capacity", m.pool.Capacity())

		task := &Task{
			ID:         id,
			Item:       item,
			BaseDir:    base,
			Ext:        m.ext,
			Layout:     m.layout,
			Fetcher:    m.fetcher,
			Covers:     m.covers,
			Transcoder: m.transcoder,
			Publish:    func(ev domain.Event) { m.bus.Publish(ev) },
			Logger:     log.WithItem(uint64(id), item.Artist, item.Title).Logger,
		}
		res := task.Run(ctx)
		m.bus.Publish(domain.TerminalEvent(id, res))
	}()
}

// handleEvent applies ev and reports whether subscribers should be notified.
func (m *Manager) handleEvent(ev domain.Event) bool {
	if ev.Kind != domain.EventTerminal {
		changed, _ := m.agg.Apply(ev)
		return changed
	}

	changed, finished := m.agg.Apply(ev)
	if !changed {
		m.Logger.Debug("Dropping stale result", "item_id", uint64(ev.ID))
		return false
	}

	rec, _ := m.agg.Record(ev.ID)
	m.persistDownload(rec, *ev.Result)

	if finished {
		snap := m.agg.Snapshot()
		m.Logger.Info("Batch finished", "batch_id", snap.BatchID, "total", snap.Total)
		if m.cancelBatch != nil {
			m.cancelBatch()
			m.cancelBatch = nil
		}
		if m.journal != nil {
			if err := m.journal.FinishBatch(snap.BatchID, snap.Completed, time.Now()); err != nil {
				m.Logger.Error("Failed to finish batch", "batch_id", snap.BatchID, "error", err)
			}
		}
	}
	return true
}

func (m *Manager) broadcast() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if len(m.subs) == 0 {
		return
	}

	snap := m.agg.Snapshot()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (m *Manager) persistDownload(rec domain.Record, res domain.Result) {
	if m.journal == nil {
		return
	}
	d := &domain.Download{
		ItemID:      rec.ID,
		BatchID:     rec.BatchID,
		Title:       rec.Item.Title,
		Artist:      rec.Item.Artist,
		Album:       rec.Item.Album,
		State:       rec.Status.State,
		Error:       res.Message(),
		Warning:     res.Warning,
		FilePath:    res.Path,
		FileHash:    res.FileHash,
		CompletedAt: time.Now(),
	}
	if err := m.journal.SaveDownload(d); err != nil {
		m.Logger.Error("Failed to record download", "item_id", uint64(rec.ID), "error", err)
	}
}

func (m *Manager) clearLogs() error {
	m.agg.ClearLogs()
	if m.journal == nil {
		return nil
	}
	if err := m.journal.ClearLogs(); err != nil {
		return fmt.Errorf("failed to clear session log: %w", err)
	}
	return nil
}

func (m *Manager) persistLog(entry domain.LogEntry) {
	if m.journal == nil {
		return
	}
	if err := m.journal.AppendLog(&entry); err != nil {
		m.Logger.Error("Failed to append session log", "error", err)
	}
}
