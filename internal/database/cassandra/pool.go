package cassandra

import (
	"context"
	"sync"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
)

// State is the lifecycle position of a Pool.
type State int

const (
	StateOpening State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	default:
		return "closed"
	}
}

// WaiterFunc is called once when a pool's connect attempt resolves. err is
// nil on success.
type WaiterFunc func(err error, pool *Pool)

// Pool is one connection set to a cluster plus its readiness state.
//
// A pool starts opening, becomes ready when the client connects, and ends
// closed. Waiters registered while opening are released exactly once, in
// registration order, when the connect attempt resolves.
type Pool struct {
	id           string
	config       *database.PoolConfig // immutable
	clientConfig *ClientConfig
	client       Client

	mu       sync.Mutex
	ready    bool
	closed   bool
	resolved bool
	err      error
	waiters  []WaiterFunc
	done     chan struct{}
}

func newPool(id string, cfg *database.PoolConfig, clientCfg *ClientConfig, client Client) *Pool {
	return &Pool{
		id:           id,
		config:       cfg,
		clientConfig: clientCfg,
		client:       client,
		done:         make(chan struct{}),
	}
}

// ID is the request id shared by every event about this pool.
func (p *Pool) ID() string { return p.id }

// StoreConfig returns a copy of the configuration the pool was created
// from. The stored original never changes.
func (p *Pool) StoreConfig() *database.PoolConfig { return p.config.Clone() }

// ClientConfig returns the normalized settings the client was built with.
func (p *Pool) ClientConfig() *ClientConfig { return p.clientConfig }

// IsReady reports whether the client connected and the pool is not closed.
func (p *Pool) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// IsClosed reports whether the pool was closed.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return StateClosed
	case p.ready:
		return StateReady
	default:
		return StateOpening
	}
}

// Err returns the connect outcome, or nil while still opening.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed once the connect attempt resolves.
func (p *Pool) Done() <-chan struct{} { return p.done }

// Wait blocks until the connect attempt resolves or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return errs.Wrap(errs.ErrKindTimeout, "waiting for pool to connect", ctx.Err())
	}
}

// AddWaiter registers fn to run when the connect attempt resolves. If it
// already resolved, fn runs immediately on the calling goroutine.
func (p *Pool) AddWaiter(fn WaiterFunc) {
	p.mu.Lock()
	if p.resolved {
		err := p.err
		p.mu.Unlock()
		fn(err, p)
		return
	}
	p.waiters = append(p.waiters, fn)
	p.mu.Unlock()
}

// markReady flips the pool to ready unless it was closed meanwhile.
func (p *Pool) markReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.ready = true
	return true
}

// markClosed closes the pool and reports whether the client still needs a
// shutdown. Only the first call can return true.
func (p *Pool) markClosed() (shutdown bool, first bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, false
	}
	shutdown = p.ready
	p.ready = false
	p.closed = true
	return shutdown, true
}

// resolve records the connect outcome and drains the waiter queue outside
// the lock so waiters may call back into the pool.
func (p *Pool) resolve(err error) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.resolved = true
	p.err = err
	waiters := p.waiters
	p.waiters = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range waiters {
		fn(err, p)
	}
}

// usable returns nil when the pool can run statements.
func (p *Pool) usable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return errs.New(errs.ErrKindClosed, "connection pool is closed")
	case !p.ready:
		return errs.New(errs.ErrKindConnectionFailed, "connection pool is not ready")
	}
	return nil
}
