// hrflow Notifier — доставляет уведомления сотрудникам.
//
// Notifier:
//   - Получает уведомления из очереди notifications.outbound
//   - Передаёт их в настроенный канал доставки
//   - Возвращает недоставленные сообщения в очередь (затем DLQ)
//
// Notifiers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/hrflow/internal/mq"
	"github.com/shaiso/hrflow/internal/notifier"
	"github.com/shaiso/hrflow/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting hrflow-notifier")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ обязателен: notifier — потребитель очереди
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	// Канал доставки. LogDeliverer — дефолт для разработки;
	// production-каналы (почта, мессенджер) подключаются здесь.
	n := notifier.New(notifier.Config{
		Conn:      mqConn,
		Deliverer: notifier.NewLogDeliverer(logger),
		Logger:    logger,
	})

	if err := n.Start(ctx); err != nil {
		logger.Error("failed to start notifier", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("NOTIFIER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	n.Stop()
	logger.Info("hrflow-notifier stopped")
}
