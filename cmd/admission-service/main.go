// cmd/admission-service/main.go
package main

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"seckill/internal/pkg/bootstrap"
	"seckill/internal/pkg/httpclient"
	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/mq"
	"seckill/internal/pkg/redis"
	"seckill/internal/pkg/zookeeper"
	"seckill/internal/service/admission/application"
	"seckill/internal/service/admission/infrastructure"
	"seckill/internal/service/admission/infrastructure/adapter"
	"seckill/internal/service/admission/interfaces"
)

const serviceName = "admission-service"

// main 是准入服务的组装根：创建并组装所有依赖，然后交给 bootstrap 启动。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var (
		broker      *infrastructure.KafkaHalfMessageBroker
		stockWriter *kafka.Writer
		redisClient *redis.Client
		zkConn      *zookeeper.Conn
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			db, err := infrastructure.NewDB(cfg.Infra.MysqlDSN)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
			}

			redisClient, err = redis.NewClient(cfg.Infra.RedisAddrs)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to initialize redis client")
			}
			counters, err := adapter.NewCounterRedisAdapter(redisClient)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to initialize redis counter adapter")
			}

			zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 5*time.Second)
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to connect to zookeeper")
			}
			locker := adapter.NewZkLockerAdapter(zkConn)

			rules, err := adapter.NewCELRuleEngineAdapter()
			if err != nil {
				logger.Logger().Fatal().Err(err).Msg("failed to initialize rule engine")
			}

			promos := infrastructure.NewGormPromotionRepository(db)
			products := adapter.NewCachedProductReader(
				infrastructure.NewGormProductRepository(db), redisClient, cfg.App.ProductCacheTTL)
			buyers := infrastructure.NewGormBuyerRepository(db)
			stockLogs := infrastructure.NewGormStockLogRepository(db)
			ledger := infrastructure.NewGormStockLedgerRepository(db)

			brokers := strings.Split(cfg.Infra.KafkaBrokers, ",")
			stockWriter = mq.NewKafkaWriter(brokers, cfg.Infra.StockTopic)
			broker = infrastructure.NewKafkaHalfMessageBroker(
				stockWriter, cfg.Infra.Recovery.CheckInterval, cfg.Infra.Recovery.MaxChecks)
			producer := infrastructure.NewDecrementProducerAdapter(stockWriter)

			// 订单服务通过 nacos 发现，调用走带追踪的 http 客户端
			httpClient := httpclient.NewClient(otel.Tracer(serviceName), appCtx.Nacos)
			orders := adapter.NewOrderHTTPAdapter(httpClient, cfg.Infra.OrderServiceName)

			dispatcher := application.NewTransactionalDispatcher(broker, stockLogs, orders)
			broker.SetRecoveryChecker(dispatcher.RecoveryCheck)
			broker.Start(context.Background())

			admission := application.NewAdmissionService(application.AdmissionDeps{
				Promos:   promos,
				Products: products,
				Buyers:   buyers,
				Counters: counters,
				Markers:  counters,
				Tokens:   counters,
				Ledger:   ledger,
				Rules:    rules,
				Locks:    locker,
				Config: application.AdmissionConfig{
					AdmissionMultiplier: cfg.App.AdmissionMultiplier,
					TokenTTL:            cfg.App.TokenTTL,
				},
			})
			reservation := application.NewReservationService(counters, counters, stockLogs, dispatcher, producer)

			handler := interfaces.NewAdmissionHandler(admission, reservation)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if broker != nil {
				broker.Stop()
			}
			if stockWriter != nil {
				stockWriter.Close()
			}
			if redisClient != nil {
				redisClient.Close()
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
