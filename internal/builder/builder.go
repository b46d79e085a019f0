package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lzjever/mbos-wsa/internal/core"
	"github.com/lzjever/mbos-wsa/internal/observability"
	"github.com/lzjever/mbos-wsa/internal/store"
)

// ServiceName is the gRPC health service the builder reports under.
const ServiceName = "wsa.builder"

// HealthReporter is satisfied by *health.Server.
type HealthReporter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

type Builder struct {
	pool    *pgxpool.Pool
	queries *store.Queries
	prov    Provisioner
	health  HealthReporter
	cfg     Config
	log     *zap.Logger
}

func New(pool *pgxpool.Pool, prov Provisioner, health HealthReporter, cfg Config, log *zap.Logger) *Builder {
	return &Builder{
		pool:    pool,
		queries: store.New(pool),
		prov:    prov,
		health:  health,
		cfg:     cfg,
		log:     log,
	}
}

func (b *Builder) Run(ctx context.Context) {
	b.log.Info("builder started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("builder stopping")
			return
		default:
		}

		worked, err := b.RunOnce(ctx)
		if ctx.Err() != nil {
			b.log.Info("builder stopping")
			return
		}
		b.setHealth(err)
		if err != nil {
			b.log.Error("dequeue failed", zap.Error(err))
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.cfg.IdleBackoff):
		}
	}
}

// RunOnce provisions at most one queued build. It reports whether a build
// was processed.
func (b *Builder) RunOnce(ctx context.Context) (bool, error) {
	if n, err := b.queries.CancelUnstartedBuilds(ctx); err != nil {
		return false, fmt.Errorf("cancel unstarted builds: %w", err)
	} else if n > 0 {
		b.log.Info("canceled unstarted builds", zap.Int64("count", n))
	}

	build, err := b.queries.DequeueBuild(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		observability.DequeueEmptyTotal.Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dequeue build: %w", err)
	}

	log := observability.BuildLogger(b.log, build.ID, build.WorkspaceID, build.Transition).
		With(zap.Int32("build_number", build.BuildNumber))
	log.Info("build dequeued")
	b.process(ctx, build, log)

	if depth, err := b.queries.GetQueueDepth(ctx); err == nil {
		observability.BuildQueueDepth.Set(float64(depth))
	}
	return true, nil
}

func (b *Builder) process(ctx context.Context, build store.WsaWorkspaceBuild, log *zap.Logger) {
	start := time.Now()
	observability.BuilderActiveJobs.Inc()
	defer func() {
		observability.BuilderActiveJobs.Dec()
		observability.BuildDuration.WithLabelValues(build.Transition).Observe(time.Since(start).Seconds())
	}()

	job, err := b.loadJob(ctx, build)
	if err != nil {
		b.complete(ctx, build, core.JobFailed, err, log)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, b.cfg.JobTimeout)
	defer cancel()
	logf := b.logFunc(ctx, build, log)

	for _, stage := range PlanStages(job.Transition, job.Orphan) {
		if b.cancelRequested(ctx, build.ID) {
			logf("warn", stage, "Build canceled")
			b.complete(ctx, build, core.JobCanceled, nil, log)
			return
		}
		if err := b.prov.RunStage(jobCtx, job, stage, logf); err != nil {
			if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("build timed out after %s", b.cfg.JobTimeout)
			}
			if ctx.Err() != nil {
				err = fmt.Errorf("builder shut down during %s", stage)
			}
			b.complete(ctx, build, core.JobFailed, err, log)
			return
		}
	}
	if b.cancelRequested(ctx, build.ID) {
		b.complete(ctx, build, core.JobCanceled, nil, log)
		return
	}
	b.succeed(ctx, build, job, log)
}

func (b *Builder) loadJob(ctx context.Context, build store.WsaWorkspaceBuild) (Job, error) {
	job := Job{
		BuildID:    build.ID,
		Transition: core.Transition(build.Transition),
		Orphan:     build.Orphan,
	}
	if err := json.Unmarshal(build.Parameters, &job.Parameters); err != nil && len(build.Parameters) > 0 {
		return job, fmt.Errorf("decode build parameters: %w", err)
	}
	version, err := b.queries.GetTemplateVersion(ctx, build.TemplateVersionID)
	if err != nil {
		return job, fmt.Errorf("load template version: %w", err)
	}
	if err := json.Unmarshal(version.Resources, &job.Resources); err != nil && len(version.Resources) > 0 {
		return job, fmt.Errorf("decode template resources: %w", err)
	}
	return job, nil
}

// logFunc writes build log lines. Debug lines are kept only for builds
// requested at the debug log level.
func (b *Builder) logFunc(ctx context.Context, build store.WsaWorkspaceBuild, log *zap.Logger) LogFunc {
	debug := core.LogLevel(build.LogLevel) == core.LogLevelDebug
	return func(level string, stage Stage, output string) {
		if level == "debug" && !debug {
			return
		}
		if _, err := b.queries.InsertBuildLog(ctx, store.InsertBuildLogParams{
			BuildID: build.ID,
			Level:   level,
			Stage:   string(stage),
			Output:  output,
		}); err != nil {
			log.Warn("write build log failed", zap.Error(err))
		}
	}
}

func (b *Builder) cancelRequested(ctx context.Context, buildID string) bool {
	status, err := b.queries.GetBuildJobStatus(ctx, buildID)
	return err == nil && core.JobStatus(status) == core.JobCanceling
}

// succeed records the build's outcome. A successful delete marks the
// workspace deleted in the same transaction.
func (b *Builder) succeed(ctx context.Context, build store.WsaWorkspaceBuild, job Job, log *zap.Logger) {
	resources := []byte("[]")
	if job.Transition == core.TransitionStart && len(job.Resources) > 0 {
		resources, _ = json.Marshal(job.Resources)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		b.complete(ctx, build, core.JobFailed, err, log)
		return
	}
	defer tx.Rollback(ctx)
	qtx := b.queries.WithTx(tx)

	// The aborted transaction must release its row locks before the build
	// is settled on another connection.
	fail := func(err error) {
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn("rollback failed", zap.Error(rbErr))
		}
		b.complete(ctx, build, core.JobFailed, err, log)
	}

	if err := qtx.AcquireWorkspaceLock(ctx, build.WorkspaceID); err != nil {
		fail(err)
		return
	}
	if job.Transition == core.TransitionDelete {
		if err := qtx.MarkWorkspaceDeleted(ctx, build.WorkspaceID); err != nil {
			fail(err)
			return
		}
	}
	if err := qtx.CompleteBuild(ctx, store.CompleteBuildParams{
		ID:        build.ID,
		JobStatus: string(core.JobSucceeded),
		Resources: resources,
	}); err != nil {
		fail(err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		fail(err)
		return
	}
	observability.BuildTotal.WithLabelValues(build.Transition, string(core.JobSucceeded)).Inc()
	log.Info("build succeeded")
}

// complete settles a build as failed or canceled.
func (b *Builder) complete(ctx context.Context, build store.WsaWorkspaceBuild, status core.JobStatus, jobErr error, log *zap.Logger) {
	var errText pgtype.Text
	if jobErr != nil {
		errText = pgtype.Text{String: jobErr.Error(), Valid: true}
	}
	// Settle even when ctx is done so the build does not stay running.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := b.queries.CompleteBuild(writeCtx, store.CompleteBuildParams{
		ID:        build.ID,
		JobStatus: string(status),
		JobError:  errText,
		Resources: []byte("[]"),
	}); err != nil {
		log.Error("complete build failed", zap.Error(err))
	}
	observability.BuildTotal.WithLabelValues(build.Transition, string(status)).Inc()
	if status == core.JobFailed {
		log.Error("build failed", zap.Error(jobErr))
		return
	}
	log.Info("build " + string(status))
}

func (b *Builder) setHealth(err error) {
	if b.health == nil {
		return
	}
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	b.health.SetServingStatus(ServiceName, status)
}
