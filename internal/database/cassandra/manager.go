package cassandra

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

// Manager hands out one shared pool per cluster identity. Concurrent Get
// calls for the same identity converge on a single connect attempt.
type Manager struct {
	driver *Driver

	mu    sync.Mutex
	pools map[string]*Pool
}

// NewManager creates an empty registry backed by d.
func NewManager(d *Driver) *Manager {
	return &Manager{driver: d, pools: make(map[string]*Pool)}
}

// PoolKey identifies a cluster and its credentials: keyspace, sorted contact
// points, user and a hash of the password. The password itself never
// appears in the key.
func PoolKey(cfg *database.PoolConfig) string {
	hosts := make([]string, 0, len(cfg.ContactPoints))
	for _, h := range cfg.ContactPoints {
		hosts = append(hosts, strings.TrimSpace(h))
	}
	sort.Strings(hosts)
	return cfg.Keyspace + "|" + strings.Join(hosts, ",") + "|" + cfg.Username + "|" +
		strconv.FormatUint(xxhash.Sum64String(cfg.Password), 16)
}

// Get returns a ready pool for cfg, creating it if needed. A pool that failed
// to connect or was closed is replaced on the next call.
func (m *Manager) Get(ctx context.Context, cfg *database.PoolConfig) (*Pool, error) {
	if cfg == nil {
		return nil, poolNilError()
	}
	key := PoolKey(cfg)

	m.mu.Lock()
	pool, ok := m.pools[key]
	if ok && pool.IsClosed() {
		delete(m.pools, key)
		ok = false
	}
	created := false
	if !ok {
		p, err := m.driver.CreateConnectionPool(ctx, cfg, false)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		m.pools[key] = p
		pool, created = p, true
	}
	m.mu.Unlock()

	// registered outside the lock: a resolved pool runs waiters inline
	if created {
		pool.AddWaiter(func(err error, p *Pool) {
			if err != nil {
				m.forget(key, p)
			}
		})
	}

	ready := make(chan error, 1)
	pool.AddWaiter(func(err error, _ *Pool) { ready <- err })
	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
		return pool, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrKindTimeout, "waiting for pool to connect", ctx.Err())
	}
}

func (m *Manager) forget(key string, p *Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pools[key] == p {
		delete(m.pools, key)
	}
}

// Len returns the number of registered pools.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pools)
}

// Pools returns a snapshot of the registered pools.
func (m *Manager) Pools() []*Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p)
	}
	return out
}

// CloseAll closes every registered pool concurrently and empties the
// registry. All shutdown errors are returned joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*Pool)
	m.mu.Unlock()

	var (
		mu      sync.Mutex
		errList []error
		g       errgroup.Group
	)
	for _, p := range pools {
		g.Go(func() error {
			if err := m.driver.ClosePool(ctx, p); err != nil {
				mu.Lock()
				errList = append(errList, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errList...)
}
