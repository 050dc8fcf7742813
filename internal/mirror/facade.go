package mirror

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoaChP/talentbridge-backend/internal/metrics"
	"github.com/JoaChP/talentbridge-backend/internal/store"
)

const defaultCacheTTL = 30 * time.Second

// Source names where the authoritative snapshot came from on cold start.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceSeed   Source = "seed"
)

var errMissingLocalMirror = errors.New("mirror: local mirror is required")

// FacadeConfig describes the dependencies of the synchronization facade.
type FacadeConfig struct {
	Local    *LocalMirror
	Remote   *RemoteMirror
	CacheTTL time.Duration
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Facade is the single choke point between the entity store and the two
// mirrors. Reads pick the authoritative source (remote, then local, then
// seed); writes go to the local mirror synchronously and to the remote
// mirror asynchronously, best-effort.
type Facade struct {
	local    *LocalMirror
	remote   *RemoteMirror
	cacheTTL time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	wg sync.WaitGroup

	mu            sync.Mutex
	cached        store.Snapshot
	cachedAt      time.Time
	hasCache      bool
	lastRemoteErr error
}

// NewFacade constructs the facade.
func NewFacade(cfg FacadeConfig) (*Facade, error) {
	if cfg.Local == nil {
		return nil, errMissingLocalMirror
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		local:    cfg.Local,
		remote:   cfg.Remote,
		cacheTTL: ttl,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Initialize resolves the authoritative snapshot on cold start. A
// reachable remote document wins and is written back into the local
// mirror; otherwise the local document is used; otherwise the fixed seed
// set is created and persisted to whichever mirror is reachable.
func (f *Facade) Initialize(ctx context.Context) (store.Snapshot, Source, error) {
	if f.remote != nil && f.remote.Configured() {
		if snapshot, ok := f.freshCache(); ok {
			return snapshot, SourceRemote, nil
		}
		snapshot, ok, err := f.remote.Fetch(ctx)
		f.recordRemote(err)
		if err == nil && ok {
			f.updateCache(snapshot)
			if saveErr := f.local.Save(ctx, snapshot, f.clock().Unix()); saveErr != nil {
				metrics.LocalWriteFailures.Inc()
				f.logger.Warn("repair-on-read local write failed", zap.Error(saveErr))
			}
			return snapshot, SourceRemote, nil
		}
		if err != nil {
			f.logger.Warn("remote mirror fetch failed, falling back", zap.Error(err))
		}
	}

	snapshot, ok, err := f.local.Load(ctx)
	if err != nil {
		f.logger.Warn("local mirror load failed", zap.Error(err))
	}
	if err == nil && ok && !snapshot.Empty() {
		return snapshot, SourceLocal, nil
	}

	seed, err := store.SeedSnapshot()
	if err != nil {
		return store.Snapshot{}, "", err
	}
	f.Persist(ctx, seed)
	return seed, SourceSeed, nil
}

// Persist writes the snapshot through both mirrors. The local write is
// synchronous and its failure is only logged; the remote write runs in
// the background and never surfaces to the caller.
func (f *Facade) Persist(ctx context.Context, snapshot store.Snapshot) {
	metrics.PersistCycles.Inc()

	if err := f.local.Save(ctx, snapshot, f.clock().Unix()); err != nil {
		metrics.LocalWriteFailures.Inc()
		f.logger.Warn("local mirror write failed", zap.Error(err))
	}

	if f.remote == nil || !f.remote.Configured() {
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		// Detach from the request context: the mutation already
		// committed and must not be rolled back by a client disconnect.
		err := f.remote.Put(context.Background(), snapshot)
		f.recordRemote(err)
		if err != nil {
			metrics.RemoteSyncFailures.Inc()
			f.logger.Warn("remote mirror write failed", zap.Error(err))
			return
		}
		metrics.RemoteSyncSuccess.Inc()
		f.updateCache(snapshot)
	}()
}

// Wait blocks until all background remote writes settle. Used on
// shutdown and in tests.
func (f *Facade) Wait() {
	f.wg.Wait()
}

// RemoteStatus returns the outcome of the most recent remote call, nil
// when it succeeded or no remote is configured yet reachable state is
// unknown.
func (f *Facade) RemoteStatus() error {
	if f.remote == nil || !f.remote.Configured() {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRemoteErr
}

func (f *Facade) freshCache() (store.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasCache {
		return store.Snapshot{}, false
	}
	if f.clock().Sub(f.cachedAt) > f.cacheTTL {
		return store.Snapshot{}, false
	}
	return f.cached.Clone(), true
}

func (f *Facade) updateCache(snapshot store.Snapshot) {
	f.mu.Lock()
	f.cached = snapshot.Clone()
	f.cachedAt = f.clock()
	f.hasCache = true
	f.mu.Unlock()
}

func (f *Facade) recordRemote(err error) {
	f.mu.Lock()
	f.lastRemoteErr = err
	f.mu.Unlock()
}
