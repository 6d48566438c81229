// Package cassandra is the Cassandra driver behind priam: it normalizes pool
// configuration, manages the lifecycle of connection pools, executes CQL
// with optional per-parameter type hints and normalizes result rows.
package cassandra

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
	"github.com/koustreak/priam/internal/logger"
)

// Config wires a Driver to its collaborators. Every field is optional.
type Config struct {
	Logger *logger.Logger

	// Emitter receives lifecycle, log and query events.
	Emitter Emitter

	// ClientFactory builds the cluster client; defaults to NewGocqlClient.
	ClientFactory ClientFactory

	// ResultHook post-processes string fields; defaults to
	// database.DefaultResultHook.
	ResultHook database.ResultHook
}

// Driver creates, closes and executes against connection pools.
// It is safe for concurrent use.
type Driver struct {
	log     *logger.Logger
	emitter Emitter
	factory ClientFactory
	hook    database.ResultHook
}

// New creates a Driver. A nil cfg uses all defaults.
func New(cfg *Config) *Driver {
	if cfg == nil {
		cfg = &Config{}
	}
	d := &Driver{
		log:     cfg.Logger,
		emitter: cfg.Emitter,
		factory: cfg.ClientFactory,
		hook:    cfg.ResultHook,
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.emitter == nil {
		d.emitter = nopEmitter{}
	}
	if d.factory == nil {
		d.factory = NewGocqlClient
	}
	if d.hook == nil {
		d.hook = database.DefaultResultHook
	}
	return d
}

// CreateConnectionPool normalizes cfg, builds a client and starts connecting
// it in the background.
//
// With waitForConnect the call returns once the attempt resolves (or ctx
// ends); the pool is returned together with the connect error, if any.
// Without it the pool is returned immediately in the opening state and the
// caller observes readiness through Wait, Done or AddWaiter.
func (d *Driver) CreateConnectionPool(ctx context.Context, cfg *database.PoolConfig, waitForConnect bool) (*Pool, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindConfiguration, "pool configuration is nil")
	}
	requestID := uuid.NewString()

	d.log.DebugWith("priam.Driver: Creating new pool", map[string]any{
		"requestId":     requestID,
		"keyspace":      cfg.Keyspace,
		"contactPoints": cfg.ContactPoints,
	})

	clientCfg, err := Normalize(cfg)
	if err != nil {
		d.log.ErrorWith("priam.Driver: Invalid pool configuration", err, map[string]any{
			"requestId": requestID,
			"keyspace":  cfg.Keyspace,
		})
		return nil, err
	}

	pool := newPool(requestID, cfg.Clone(), clientCfg, nil)
	client, err := d.factory(clientCfg, d.forwardLog(pool))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "building cluster client", err)
	}
	pool.client = client

	d.emitter.Emit(Event{Name: EventConnectionOpening, RequestID: requestID, Keyspace: cfg.Keyspace})
	go d.connect(pool)

	if !waitForConnect {
		return pool, nil
	}
	return pool, pool.Wait(ctx)
}

func (d *Driver) connect(pool *Pool) {
	keyspace := pool.clientConfig.Keyspace
	log := d.log.With().Str("requestId", pool.id).Str("keyspace", keyspace).Logger()

	if err := pool.client.Connect(context.Background()); err != nil {
		cerr := connectError(err)
		d.emitter.Emit(Event{Name: EventConnectionFailed, RequestID: pool.id, Keyspace: keyspace, Err: cerr})
		log.ErrorWith("priam.Driver: Pool Connect Error", cerr, map[string]any{
			"name":  errs.Name(cerr),
			"inner": errorStrings(errs.InnerOf(cerr)),
		})
		// closed before waiters run, so a released waiter never sees an
		// opening pool
		_ = d.ClosePool(context.Background(), pool)
		pool.resolve(cerr)
		return
	}

	if !pool.markReady() {
		if err := pool.client.Shutdown(context.Background()); err != nil {
			log.WarnWith("priam.Driver: Shutdown after late connect failed", map[string]any{"error": err.Error()})
		}
		pool.resolve(errs.New(errs.ErrKindClosed, "connection pool was closed while connecting"))
		return
	}

	log.Debug("priam.Driver: Pool ready")
	d.emitter.Emit(Event{Name: EventConnectionOpened, RequestID: pool.id, Keyspace: keyspace})
	pool.resolve(nil)
}

// ClosePool closes pool. It is idempotent: the client is shut down at most
// once, and only if it had connected. Closing a pool that is still opening
// marks it closed; the pending connect then shuts the client down itself.
// Only the first call emits connectionClosed; later calls return nil
// without an event.
func (d *Driver) ClosePool(ctx context.Context, pool *Pool) error {
	if pool == nil {
		return nil
	}
	shutdown, first := pool.markClosed()
	if !first {
		return nil
	}

	var err error
	if shutdown {
		if serr := pool.client.Shutdown(ctx); serr != nil {
			err = mapError(serr)
			d.log.ErrorWith("priam.Driver: Pool shutdown error", err, map[string]any{"requestId": pool.id})
		}
	}
	d.emitter.Emit(Event{Name: EventConnectionClosed, RequestID: pool.id, Keyspace: pool.clientConfig.Keyspace, Err: err})
	return err
}

// forwardLog relays client log lines to the emitter and the driver logger.
func (d *Driver) forwardLog(pool *Pool) LogFunc {
	return func(level, message string, data any) {
		d.emitter.Emit(Event{
			Name:      EventConnectionLogged,
			RequestID: pool.id,
			Keyspace:  pool.clientConfig.Keyspace,
			Level:     level,
			Message:   message,
			Data:      data,
		})
		fields := map[string]any{"requestId": pool.id, "clientLogLevel": level}
		if data != nil {
			fields["data"] = data
		}
		switch level {
		case LogLevelError, LogLevelWarning:
			d.log.WarnWith("priam.Driver: "+message, fields)
		default:
			d.log.DebugWith("priam.Driver: "+message, fields)
		}
	}
}

func (d *Driver) emitQuery(pool *Pool, statement string, start time.Time, err error) {
	d.emitter.Emit(Event{
		Name:      EventQueryExecuted,
		RequestID: pool.id,
		Keyspace:  pool.clientConfig.Keyspace,
		Statement: statement,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func errorStrings(errList []error) []string {
	out := make([]string, 0, len(errList))
	for _, e := range errList {
		if e != nil {
			out = append(out, e.Error())
		}
	}
	return out
}
