package engine

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/vql"
)

// Storage is the database a command runs against. The caller owns it: the
// engine never opens, closes or pools connections. *store.Store
// implements it.
type Storage interface {
	InstanceID() uuid.UUID

	Fields(ctx context.Context) ([]store.Field, error)
	Samples(ctx context.Context) ([]store.Sample, error)
	Selections(ctx context.Context) ([]store.Selection, error)
	Sets(ctx context.Context) ([]store.SetSummary, error)

	CountQuery(ctx context.Context, q querysql.Query) (int64, error)
	Stream(ctx context.Context, q querysql.Query) iter.Seq2[store.Record, error]

	Begin(ctx context.Context) (*store.Tx, error)
	UnionVariants(a, b querysql.Query) querysql.Query
	SubtractVariants(a, b querysql.Query) querysql.Query
	IntersectVariants(a, b querysql.Query) querysql.Query
	CreateSelectionFromBed(ctx context.Context, source querysql.Query, target string, regions iter.Seq2[store.Region, error]) (store.Selection, error)

	InsertSetFromFile(ctx context.Context, name, path string) (int64, error)
	DeleteSelection(ctx context.Context, name string) (int64, error)
	DeleteSet(ctx context.Context, name string) (int64, error)
}

var _ Storage = (*store.Store)(nil)

// DefaultPageSize is the LIMIT applied to a SELECT that has none.
const DefaultPageSize = 50

// Engine executes VQL statements.
//
// Dispatch is stateless: each statement takes a fresh snapshot of the
// field catalog and sample index, compiles, and runs against the Storage
// passed in. The only state kept across calls is the count cache, the
// metrics and the statement clock.
//
// Statements run synchronously on the caller's goroutine. Callers that
// share one Storage between goroutines must serialize mutating commands.
type Engine struct {
	logger        *slog.Logger
	registerer    prometheus.Registerer
	metrics       *Metrics
	counts        *countCache
	countSize     int
	clock         *Clock
	execIDs       ExecIDGenerator
	pageSize      int
	missingSample querysql.MissingSample
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRegisterer registers the engine metrics with reg.
// The default is a private registry.
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithCountCacheSize bounds the count cache. Zero disables it.
//
// Default: 128 entries (DefaultCountCacheSize)
func WithCountCacheSize(n int) EngineOption {
	return func(e *Engine) {
		e.countSize = n
	}
}

// WithPageSize sets the LIMIT of a SELECT without one.
//
// Default: 50 rows (DefaultPageSize)
func WithPageSize(n int) EngineOption {
	return func(e *Engine) {
		e.pageSize = n
	}
}

// WithMissingSample sets what happens when a genotype field names an
// unknown sample.
func WithMissingSample(m querysql.MissingSample) EngineOption {
	return func(e *Engine) {
		e.missingSample = m
	}
}

// WithExecIDGenerator replaces the UUIDv7 execution ids, e.g. with a
// SequenceGenerator for golden output.
func WithExecIDGenerator(g ExecIDGenerator) EngineOption {
	return func(e *Engine) {
		e.execIDs = g
	}
}

// New creates an Engine.
func New(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		countSize:     DefaultCountCacheSize,
		clock:         NewClock(),
		execIDs:       UUIDv7Generator{},
		pageSize:      DefaultPageSize,
		missingSample: querysql.MissingSampleSkip,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.registerer == nil {
		e.registerer = prometheus.NewRegistry()
	}
	if e.pageSize <= 0 {
		return nil, fmt.Errorf("engine: page size must be positive, got %d", e.pageSize)
	}

	e.metrics = NewMetrics(e.registerer)

	counts, err := newCountCache(e.countSize, e.metrics)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.counts = counts

	return e, nil
}

// Metrics returns the engine metrics.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// InvalidateCounts empties the count cache. The engine calls it after
// every mutating command; callers that change the database by other means
// must call it themselves.
func (e *Engine) InvalidateCounts() {
	e.counts.purge()
}

// Execute parses src, which must hold exactly one statement, and runs it.
func (e *Engine) Execute(ctx context.Context, db Storage, src string) (Result, error) {
	stmt, err := vql.ParseOne(src)
	if err != nil {
		return Result{}, err
	}
	return e.Run(ctx, db, stmt)
}

// ExecuteAll parses src and runs its statements in order, lazily: each
// statement runs when the sequence asks for it.
//
// A syntax error anywhere in src is yielded once and nothing runs. A
// failing statement yields its error and execution continues with the
// next statement, so a caller can report the failing line and go on.
func (e *Engine) ExecuteAll(ctx context.Context, db Storage, src string) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		stmts, err := vql.Parse(src)
		if err != nil {
			yield(Result{}, err)
			return
		}
		for _, stmt := range stmts {
			if !yield(e.Run(ctx, db, stmt)) {
				return
			}
		}
	}
}

// Run executes one parsed statement.
func (e *Engine) Run(ctx context.Context, db Storage, stmt vql.Statement) (Result, error) {
	if stmt == nil {
		return Result{}, &FeatureError{Command: "run", Message: "no statement"}
	}

	start := time.Now()
	res := Result{
		ExecID: e.execIDs.Generate(),
		Seq:    e.clock.Next(),
		Kind:   stmt.Kind(),
	}
	log := e.logger.With("exec_id", res.ExecID, "seq", res.Seq, "cmd", string(res.Kind))

	var err error
	switch s := stmt.(type) {
	case vql.Select:
		res.Rows, err = e.selectCmd(ctx, db, log, s)
	case vql.Count:
		res.Record, err = e.countCmd(ctx, db, log, s)
	case vql.Create:
		res.Record, err = e.createCmd(ctx, db, log, s)
	case vql.Set:
		res.Record, err = e.setCmd(ctx, db, log, s)
	case vql.BedImport:
		res.Record, err = e.bedCmd(ctx, db, log, s)
	case vql.Show:
		res.Rows, err = e.showCmd(ctx, db, s)
	case vql.Import:
		res.Record, err = e.importCmd(ctx, db, log, s)
	case vql.Drop:
		res.Record, err = e.dropCmd(ctx, db, log, s)
	default:
		err = &FeatureError{Command: string(stmt.Kind()), Message: fmt.Sprintf("unsupported statement %T", stmt)}
	}

	status := statusOK
	if err != nil {
		status = statusError
		log.Debug("command failed", "error", err)
	}
	e.metrics.Commands.WithLabelValues(string(res.Kind), status).Inc()
	e.metrics.CommandDuration.WithLabelValues(string(res.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		return Result{ExecID: res.ExecID, Seq: res.Seq, Kind: res.Kind}, err
	}
	return res, nil
}

// Compile compiles req against a fresh catalog snapshot of db.
func (e *Engine) Compile(ctx context.Context, db Storage, req querysql.Request) (querysql.Query, error) {
	c, err := e.compiler(ctx, db)
	if err != nil {
		return querysql.Query{}, err
	}
	return c.Compile(req)
}

// compiler snapshots the field catalog and sample index of db.
func (e *Engine) compiler(ctx context.Context, db Storage) (*querysql.Compiler, error) {
	fields, err := db.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("read field catalog: %w", err)
	}
	infos := make([]querysql.FieldInfo, len(fields))
	for i, f := range fields {
		infos[i] = querysql.FieldInfo{Name: f.Name, Category: f.Category, Type: f.Type, Description: f.Description}
	}

	samples, err := db.Samples(ctx)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	index := make(querysql.SampleIndex, len(samples))
	for _, s := range samples {
		index[s.Name] = s.ID
	}

	c := querysql.NewCompiler(querysql.NewCatalog(infos), index)
	c.MissingSample = e.missingSample
	c.Logger = e.logger
	return c, nil
}
