package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/athebyme/catalog-service/config"
	"github.com/athebyme/catalog-service/internal/adapters/cache"
	"github.com/athebyme/catalog-service/internal/adapters/logger"
	"github.com/athebyme/catalog-service/internal/adapters/messaging"
	"github.com/athebyme/catalog-service/internal/adapters/storage"
	"github.com/athebyme/catalog-service/internal/adapters/webhook"
	"github.com/athebyme/catalog-service/internal/domain/models"
	"github.com/athebyme/catalog-service/internal/domain/services"
	"github.com/athebyme/catalog-service/internal/utils"
	"github.com/athebyme/catalog-service/pkg/interfaces"
)

// Метрики для Prometheus
var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_messages_processed_total",
		Help: "Общее количество обработанных сообщений",
	}, []string{"topic", "status"})

	messageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_message_processing_duration_seconds",
		Help:    "Длительность обработки сообщений",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_webhook_deliveries_total",
		Help: "Количество попыток доставки вебхуков",
	}, []string{"status"})
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	// HTTP сервер для метрик
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			})

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: addr})

			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	repo, err := postgres.NewCatalogStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer repo.Close()
	log.Info("Хранилище инициализировано")

	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer cacheClient.Close()
	log.Info("Кэш инициализирован")

	messagingClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.GroupID, log)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	tracker := services.NewProgressTracker(cacheClient, cfg.Import.StatusTTL, log)
	importService := services.NewImportService(repo, tracker, log, cfg.Import.BatchSize, cfg.Import.ProgressEvery)
	sender := webhook.NewSender(cfg.Webhook.Timeout, log)
	log.Info("Сервисы воркера инициализированы")

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	subscribeToImportCommands(ctx, messagingClient, importService, cfg.Kafka.ImportTopic, log, &wg)
	subscribeToDeliveryJobs(ctx, messagingClient, sender, cfg.Kafka.DeliveriesTopic, log, &wg)

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
		cancel()
		wg.Wait()
		close(done)
	}()

	log.Info("Воркер запущен и готов к обработке сообщений")
	<-done
	log.Info("Воркер корректно завершил работу")
}

// Подписка на команды импорта каталога
func subscribeToImportCommands(ctx context.Context, messagingClient interfaces.MessagingPort,
	importService *services.ImportService, topic string,
	logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	commandHandler := func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()

		logger.InfoWithContext(ctx, "Получена команда импорта",
			interfaces.LogField{Key: "message_id", Value: msg.ID},
			interfaces.LogField{Key: "topic", Value: msg.Topic},
		)

		var command models.ImportCommand
		if err := json.Unmarshal(msg.Value, &command); err != nil {
			logger.ErrorWithContext(ctx, "Ошибка декодирования команды импорта",
				interfaces.LogField{Key: "error", Value: err.Error()})
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		taskCtx := utils.WithTaskID(ctx, command.TaskID)

		// запуск сам публикует терминальное состояние, ошибок наружу нет
		importService.Run(taskCtx, command.TaskID, command.FilePath)

		duration := time.Since(startTime).Seconds()
		messageProcessingDuration.WithLabelValues(msg.Topic).Observe(duration)
		messagesProcessed.WithLabelValues(msg.Topic, "success").Inc()

		logger.InfoWithContext(taskCtx, "Команда импорта обработана",
			interfaces.LogField{Key: "task_id", Value: command.TaskID},
			interfaces.LogField{Key: "duration", Value: duration},
		)

		return nil
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, topic, commandHandler)
		if err != nil {
			logger.Error("Ошибка подписки на команды импорта",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer unsubscribe()

		logger.Info("Подписка на команды импорта установлена")

		<-ctx.Done()
		logger.Info("Отмена подписки на команды импорта")
	}()
}

// Подписка на задания доставки вебхуков
func subscribeToDeliveryJobs(ctx context.Context, messagingClient interfaces.MessagingPort,
	sender *webhook.Sender, topic string,
	logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	jobHandler := func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()

		var job models.DeliveryJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			logger.ErrorWithContext(ctx, "Ошибка декодирования задания доставки",
				interfaces.LogField{Key: "error", Value: err.Error()})
			messagesProcessed.WithLabelValues(msg.Topic, "error").Inc()
			return err
		}

		// одна попытка, исход только логируется
		result := sender.Send(ctx, job.TargetURL, job.EventType, job.Payload)
		if result.Success {
			webhookDeliveries.WithLabelValues("success").Inc()
		} else {
			webhookDeliveries.WithLabelValues("failure").Inc()
		}

		duration := time.Since(startTime).Seconds()
		messageProcessingDuration.WithLabelValues(msg.Topic).Observe(duration)
		messagesProcessed.WithLabelValues(msg.Topic, "success").Inc()

		return nil
	}

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, topic, jobHandler)
		if err != nil {
			logger.Error("Ошибка подписки на задания доставки",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer unsubscribe()

		logger.Info("Подписка на задания доставки установлена")

		<-ctx.Done()
		logger.Info("Отмена подписки на задания доставки")
	}()
}
