package cassandra

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/priam/internal/database"
	"github.com/koustreak/priam/internal/errs"
	"github.com/koustreak/priam/internal/logger"
)

// fakeClient is a scripted Client. When gate is set, Connect blocks until
// the gate is closed.
type fakeClient struct {
	mu         sync.Mutex
	gate       chan struct{}
	connectErr error
	connects   int
	shutdowns  int

	result     *Result
	execErr    error
	lastStmt   string
	lastParams []any
	lastOpts   ExecOptions

	cfg *ClientConfig
	log LogFunc
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	f.connects++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeClient) Execute(_ context.Context, statement string, params []any, opts ExecOptions) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStmt, f.lastParams, f.lastOpts = statement, params, opts
	return f.result, f.execErr
}

func (f *fakeClient) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

func (f *fakeClient) counts() (connects, shutdowns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.shutdowns
}

func (f *fakeClient) factory(cfg *ClientConfig, log LogFunc) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg, f.log = cfg, log
	return f, nil
}

// recorder is a concurrency-safe Emitter.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) names() []EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventName, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func (r *recorder) byName(name EventName) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestDriver(fc *fakeClient) (*Driver, *recorder) {
	rec := &recorder{}
	return New(&Config{Emitter: rec, ClientFactory: fc.factory}), rec
}

func testConfig() *database.PoolConfig {
	cfg := database.DefaultPoolConfig()
	cfg.Keyspace = "app"
	cfg.ContactPoints = []string{"10.0.0.1:9042", "10.0.0.2"}
	return cfg
}

func TestCreateConnectionPool_WaitSuccess(t *testing.T) {
	fc := &fakeClient{}
	d, rec := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), true)
	require.NoError(t, err)

	assert.True(t, pool.IsReady())
	assert.False(t, pool.IsClosed())
	assert.Equal(t, StateReady, pool.State())
	assert.Equal(t, []EventName{EventConnectionOpening, EventConnectionOpened}, rec.names())
	for _, e := range rec.events {
		assert.Equal(t, pool.ID(), e.RequestID)
		assert.Equal(t, "app", e.Keyspace)
	}

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, fc.cfg.ContactPoints)
	assert.Equal(t, 9042, fc.cfg.ProtocolOptions.Port)
}

func TestCreateConnectionPool_WaitFailure(t *testing.T) {
	hostA := errors.New("10.0.0.1: connection refused")
	hostB := errors.New("10.0.0.2: connection refused")
	fc := &fakeClient{connectErr: errors.Join(hostA, hostB)}
	d, rec := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), true)
	require.Error(t, err)
	require.NotNil(t, pool)

	assert.True(t, errs.IsConnectionFailed(err))
	assert.Equal(t, []error{hostA, hostB}, errs.InnerOf(err))
	assert.True(t, pool.IsClosed())
	assert.False(t, pool.IsReady())
	assert.Equal(t, err, pool.Err())

	assert.Equal(t, []EventName{EventConnectionOpening, EventConnectionFailed, EventConnectionClosed}, rec.names())
	assert.Equal(t, err, rec.byName(EventConnectionFailed)[0].Err)

	_, shutdowns := fc.counts()
	assert.Zero(t, shutdowns, "a client that never connected is not shut down")
}

func TestCreateConnectionPool_FailureReleasesAllWaiters(t *testing.T) {
	fc := &fakeClient{gate: make(chan struct{}), connectErr: errors.New("refused")}
	d, _ := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), false)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		order    []int
		received []error
		closed   []bool
		wg       sync.WaitGroup
	)
	for i := range 5 {
		wg.Add(1)
		pool.AddWaiter(func(err error, p *Pool) {
			mu.Lock()
			order = append(order, i)
			received = append(received, err)
			closed = append(closed, p.IsClosed())
			mu.Unlock()
			wg.Done()
		})
	}

	close(fc.gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "each waiter runs once, in registration order")
	assert.Equal(t, []bool{true, true, true, true, true}, closed, "waiters see a closed pool")
	require.Error(t, received[0])
	assert.True(t, errs.IsConnectionFailed(received[0]))
	for _, e := range received {
		assert.True(t, e == received[0], "every waiter gets the same error value")
	}
	assert.True(t, pool.Err() == received[0])
}

func TestCreateConnectionPool_FireAndForget(t *testing.T) {
	fc := &fakeClient{gate: make(chan struct{})}
	d, _ := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), false)
	require.NoError(t, err)
	assert.False(t, pool.IsReady())
	assert.Equal(t, StateOpening, pool.State())

	_, err = d.ExecuteCQL(context.Background(), pool, "SELECT * FROM t", nil, 0, database.QueryOptions{})
	assert.True(t, errs.IsConnectionFailed(err))

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := range 3 {
		wg.Add(1)
		pool.AddWaiter(func(err error, p *Pool) {
			assert.NoError(t, err)
			assert.Same(t, pool, p)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	close(fc.gate)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.True(t, pool.IsReady())
	select {
	case <-pool.Done():
	default:
		t.Fatal("Done is not closed after waiters ran")
	}

	called := false
	pool.AddWaiter(func(err error, _ *Pool) {
		assert.NoError(t, err)
		called = true
	})
	assert.True(t, called, "waiter added after resolution runs immediately")

	mu.Lock()
	assert.Len(t, order, 3, "earlier waiters are not called again")
	mu.Unlock()
}

func TestCreateConnectionPool_WaitHonoursContext(t *testing.T) {
	fc := &fakeClient{gate: make(chan struct{})}
	defer close(fc.gate)
	d, _ := newTestDriver(fc)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	pool, err := d.CreateConnectionPool(ctx, testConfig(), true)
	require.NotNil(t, pool)
	assert.True(t, errs.IsTimeout(err))
}

func TestCreateConnectionPool_MalformedPort(t *testing.T) {
	fc := &fakeClient{}
	d, rec := newTestDriver(fc)

	cfg := testConfig()
	cfg.ContactPoints = []string{"10.0.0.1:abc"}

	pool, err := d.CreateConnectionPool(context.Background(), cfg, true)
	assert.Nil(t, pool)
	assert.True(t, errs.IsConfiguration(err))
	assert.Nil(t, fc.cfg, "no client is built for an invalid configuration")
	assert.Empty(t, rec.names())
}

func TestCreateConnectionPool_FactoryError(t *testing.T) {
	d := New(&Config{ClientFactory: func(*ClientConfig, LogFunc) (Client, error) {
		return nil, errors.New("bad tls material")
	}})

	_, err := d.CreateConnectionPool(context.Background(), testConfig(), false)
	assert.True(t, errs.IsConfiguration(err))
}

func TestCreateConnectionPool_StoresConfigCopy(t *testing.T) {
	fc := &fakeClient{}
	d, _ := newTestDriver(fc)

	cfg := testConfig()
	pool, err := d.CreateConnectionPool(context.Background(), cfg, true)
	require.NoError(t, err)

	cfg.Keyspace = "mutated"
	cfg.ContactPoints[0] = "elsewhere"
	assert.Equal(t, "app", pool.StoreConfig().Keyspace)

	stored := pool.StoreConfig()
	stored.Keyspace = "other"
	stored.ContactPoints = append(stored.ContactPoints, "extra")
	assert.Equal(t, testConfig(), pool.StoreConfig(), "callers cannot change the stored original")
}

func TestClosePool_Idempotent(t *testing.T) {
	fc := &fakeClient{}
	d, rec := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), true)
	require.NoError(t, err)

	require.NoError(t, d.ClosePool(context.Background(), pool))
	require.NoError(t, d.ClosePool(context.Background(), pool))

	_, shutdowns := fc.counts()
	assert.Equal(t, 1, shutdowns)
	assert.True(t, pool.IsClosed())
	assert.False(t, pool.IsReady())
	assert.Len(t, rec.byName(EventConnectionClosed), 1)

	_, err = d.ExecuteCQL(context.Background(), pool, "SELECT 1", nil, 0, database.QueryOptions{})
	assert.True(t, errs.IsClosed(err))
}

func TestClosePool_WhileOpeningThenConnects(t *testing.T) {
	fc := &fakeClient{gate: make(chan struct{})}
	d, rec := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), false)
	require.NoError(t, err)

	result := make(chan error, 1)
	pool.AddWaiter(func(err error, _ *Pool) { result <- err })

	require.NoError(t, d.ClosePool(context.Background(), pool))
	_, shutdowns := fc.counts()
	assert.Zero(t, shutdowns)

	close(fc.gate)
	err = <-result
	assert.True(t, errs.IsClosed(err))

	_, shutdowns = fc.counts()
	assert.Equal(t, 1, shutdowns, "late connect is shut down exactly once")
	assert.True(t, pool.IsClosed())
	assert.False(t, pool.IsReady())
	assert.Empty(t, rec.byName(EventConnectionOpened))
}

func TestClosePool_WhileOpeningThenFails(t *testing.T) {
	fc := &fakeClient{gate: make(chan struct{}), connectErr: errors.New("refused")}
	d, _ := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), false)
	require.NoError(t, err)
	require.NoError(t, d.ClosePool(context.Background(), pool))

	close(fc.gate)
	assert.True(t, errs.IsConnectionFailed(pool.Wait(context.Background())))

	_, shutdowns := fc.counts()
	assert.Zero(t, shutdowns)
}

func TestClosePool_Nil(t *testing.T) {
	assert.NoError(t, New(nil).ClosePool(context.Background(), nil))
}

func TestDriver_ForwardsClientLogs(t *testing.T) {
	fc := &fakeClient{}
	d, rec := newTestDriver(fc)

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), true)
	require.NoError(t, err)

	fc.log(LogLevelWarning, "host 10.0.0.2 is down", map[string]any{"host": "10.0.0.2"})

	logged := rec.byName(EventConnectionLogged)
	require.Len(t, logged, 1)
	assert.Equal(t, pool.ID(), logged[0].RequestID)
	assert.Equal(t, LogLevelWarning, logged[0].Level)
	assert.Equal(t, "host 10.0.0.2 is down", logged[0].Message)
	assert.Equal(t, map[string]any{"host": "10.0.0.2"}, logged[0].Data)
}

func TestDriver_ClientLogLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	fc := &fakeClient{}
	d := New(&Config{
		Logger:        logger.New(&logger.Config{Level: "debug", Format: "json", Output: buf}),
		ClientFactory: fc.factory,
	})

	pool, err := d.CreateConnectionPool(context.Background(), testConfig(), true)
	require.NoError(t, err)
	buf.Reset()

	tests := []struct {
		clientLevel string
		want        string
	}{
		{LogLevelError, "warn"},
		{LogLevelWarning, "warn"},
		{LogLevelInfo, "debug"},
		{LogLevelVerbose, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.clientLevel, func(t *testing.T) {
			buf.Reset()
			fc.log(tt.clientLevel, "control connection event", nil)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, "priam.Driver: control connection event", entry["message"])
			assert.Equal(t, tt.clientLevel, entry["clientLogLevel"])
			assert.Equal(t, pool.ID(), entry["requestId"])
		})
	}
}

func TestEmitters_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var count int
	Emitters{a, nil, b, EmitterFunc(func(Event) { count++ })}.Emit(Event{Name: EventQueryExecuted})

	assert.Equal(t, []EventName{EventQueryExecuted}, a.names())
	assert.Equal(t, []EventName{EventQueryExecuted}, b.names())
	assert.Equal(t, 1, count)
}
