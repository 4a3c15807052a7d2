// hrflow API — HTTP-сервер оркестрации HR-процессов.
//
// Обслуживает REST API для templates, instances и schedules,
// выполняет переходы жизненного цикла через engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/hrflow/internal/api"
	"github.com/shaiso/hrflow/internal/audit"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/executor"
	"github.com/shaiso/hrflow/internal/mq"
	"github.com/shaiso/hrflow/internal/registry"
	"github.com/shaiso/hrflow/internal/repo"
	"github.com/shaiso/hrflow/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrflow_api_http_requests_total",
		Help: "Total HTTP requests handled by hrflow_api",
	})
	actionsInvoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrflow_api_actions_invoked_total",
		Help: "Total built-in system actions invoked",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting hrflow-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	templateRepo := repo.NewTemplateRepo(pool)
	instanceRepo := repo.NewInstanceRepo(pool)
	auditRepo := repo.NewAuditRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ (опционально: без него аудит пишется только в БД и лог)
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events will not be published", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Реестр templates с кэшем поверх БД
	templates := registry.New(templateRepo)

	// Исполнители шагов
	executors := buildExecutors(publisher, logger)

	// Audit: БД первой, затем лог и (если есть) MQ
	emitters := []audit.Emitter{
		audit.EmitterFunc(auditRepo.Record),
		audit.NewLogEmitter(logger),
	}
	if publisher != nil {
		emitters = append(emitters, audit.NewPublisherEmitter(publisher))
	}

	// Движок жизненного цикла
	var events engine.EventPublisher
	if publisher != nil {
		events = publisher
	}
	eng := engine.New(engine.Config{
		Templates: templates,
		Store:     instanceRepo,
		Executors: executors,
		Audit:     audit.NewMulti(logger, emitters...),
		Events:    events,
		Logger:    logger,
	})

	// API handler
	handler := api.NewHandler(api.Config{
		Registry:     templates,
		Engine:       eng,
		AuditRepo:    auditRepo,
		ScheduleRepo: scheduleRepo,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// buildExecutors собирает реестр исполнителей шагов.
//
// Встроенные action_ref и condition_ref минимальны; конкретные
// интеграции (ITSM, payroll и т.д.) регистрируются здесь же при деплое.
func buildExecutors(publisher *mq.Publisher, logger *slog.Logger) *executor.Registry {
	invoker := executor.NewFuncInvoker()
	invoker.RegisterAction("hr.log_case", func(ctx context.Context, inst *domain.Instance) error {
		logger.Info("hr case recorded",
			"instance_id", inst.ID,
			"template", inst.TemplateName,
			"subject", inst.Subject)
		actionsInvoked.Inc()
		return nil
	})

	source := executor.NewFuncSource()
	// Предикат "в payload выставлен флаг ready". Внешние системы
	// проставляют его через свои интеграции.
	source.RegisterCondition("payload.ready", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		v, ok := inst.Payload["ready"]
		if !ok {
			return false, nil
		}
		b, _ := v.(bool)
		return b, nil
	})

	// Уведомления уходят в MQ; без брокера — только в лог.
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
