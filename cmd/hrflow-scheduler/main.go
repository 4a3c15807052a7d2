// hrflow Scheduler — фоновый процесс с leader election.
//
// Scheduler:
//   - создаёт instances для due schedules (cron / интервал)
//   - будит instances с истёкшим wake_at (delay, condition)
//
// Среди запущенных экземпляров работает только лидер,
// выбранный через pg advisory lock.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/hrflow/internal/audit"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/executor"
	"github.com/shaiso/hrflow/internal/mq"
	"github.com/shaiso/hrflow/internal/registry"
	"github.com/shaiso/hrflow/internal/repo"
	"github.com/shaiso/hrflow/internal/scheduler"
	"github.com/shaiso/hrflow/internal/telemetry"
)

const schedLockKey int64 = 727272

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrflow_scheduler_ticks_total",
		Help: "Total scheduler ticks executed as leader",
	})
	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrflow_scheduler_tick_errors_total",
		Help: "Total scheduler ticks that returned an error",
	})
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting hrflow-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	templateRepo := repo.NewTemplateRepo(pool)
	instanceRepo := repo.NewInstanceRepo(pool)
	auditRepo := repo.NewAuditRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ (опционально)
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events will not be published", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Движок нужен планировщику для Start/Recheck: пробуждённые
	// instances проходят те же executors, что и в API.
	emitters := []audit.Emitter{
		audit.EmitterFunc(auditRepo.Record),
		audit.NewLogEmitter(logger),
	}
	if publisher != nil {
		emitters = append(emitters, audit.NewPublisherEmitter(publisher))
	}

	var events engine.EventPublisher
	if publisher != nil {
		events = publisher
	}
	eng := engine.New(engine.Config{
		Templates: registry.New(templateRepo),
		Store:     instanceRepo,
		Executors: buildExecutors(publisher, logger),
		Audit:     audit.NewMulti(logger, emitters...),
		Events:    events,
		Logger:    logger,
	})

	sched := scheduler.New(scheduler.Config{
		Schedules: scheduleRepo,
		Instances: instanceRepo,
		Engine:    eng,
		Logger:    logger,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				var ok bool
				if !hasLock {
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("advisory lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				ticksTotal.Inc()
				if err := sched.Tick(ctx); err != nil {
					tickErrors.Inc()
					logger.Error("tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// serve
	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}
	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("stopped")
}

// buildExecutors собирает реестр исполнителей шагов для движка
// планировщика. Набор действий и предикатов должен совпадать
// с hrflow-api, иначе пробуждённый шаг упадёт с unknown ref.
func buildExecutors(publisher *mq.Publisher, logger *slog.Logger) *executor.Registry {
	invoker := executor.NewFuncInvoker()
	invoker.RegisterAction("hr.log_case", func(ctx context.Context, inst *domain.Instance) error {
		logger.Info("hr case recorded",
			"instance_id", inst.ID,
			"template", inst.TemplateName,
			"subject", inst.Subject)
		return nil
	})

	source := executor.NewFuncSource()
	source.RegisterCondition("payload.ready", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		v, ok := inst.Payload["ready"]
		if !ok {
			return false, nil
		}
		b, _ := v.(bool)
		return b, nil
	})

	var notify executor.Notifier
	if publisher != nil {
		notify = executor.NotifierFunc(publisher.PublishNotification)
	} else {
		notify = executor.NotifierFunc(func(ctx context.Context, n executor.Notification) error {
			logger.Info("notification (no broker)",
				"instance_id", n.InstanceID,
				"step_id", n.StepID,
				"subject", n.Subject)
			return nil
		})
	}

	executors := executor.NewRegistry()
	executors.Register(executor.NewApprovalExecutor())
	executors.Register(executor.NewNotificationExecutor(notify, logger))
	executors.Register(executor.NewSystemActionExecutor(invoker))
	executors.Register(executor.NewConditionExecutor(source, executor.DefaultRecheckInterval, logger))
	executors.Register(executor.NewDelayExecutor())
	return executors
}
