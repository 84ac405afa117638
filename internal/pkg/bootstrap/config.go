// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构。
// 先读取 yaml 文件（CONFIG_FILE 指定路径），再用环境变量覆盖关键项，
// 这样本地开发用文件、容器环境用环境变量。
type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Port     int    `yaml:"port"`
		LogLevel string `yaml:"logLevel"`

		// 大闸倍数：活动发布时令牌大闸 = 库存 * multiplier
		AdmissionMultiplier int `yaml:"admissionMultiplier"`

		TokenTTL        time.Duration `yaml:"tokenTTL"`
		ProductCacheTTL time.Duration `yaml:"productCacheTTL"`
	} `yaml:"app"`

	Infra struct {
		MysqlDSN     string `yaml:"mysqlDSN"`
		RedisAddrs   string `yaml:"redisAddrs"`
		KafkaBrokers string `yaml:"kafkaBrokers"`

		StockTopic         string `yaml:"stockTopic"`
		StockConsumerGroup string `yaml:"stockConsumerGroup"`

		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`

		Nacos struct {
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`

		Zookeeper struct {
			Servers string `yaml:"servers"`
		} `yaml:"zookeeper"`

		OrderServiceName string `yaml:"orderServiceName"`

		// 事务消息回查策略
		Recovery struct {
			CheckInterval time.Duration `yaml:"checkInterval"`
			MaxChecks     int           `yaml:"maxChecks"`
		} `yaml:"recovery"`
	} `yaml:"infra"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// Init 加载配置，必须在 StartService 之前调用一次。
func Init() {
	configOnce.Do(loadConfig)
}

// GetCurrentConfig 返回已加载的配置。
func GetCurrentConfig() *Config {
	return &currentConfig
}

func loadConfig() {
	// 默认值
	currentConfig.App.LogLevel = "info"
	currentConfig.App.AdmissionMultiplier = 5
	currentConfig.App.TokenTTL = 5 * time.Minute
	currentConfig.App.ProductCacheTTL = 10 * time.Minute
	currentConfig.Infra.StockTopic = "stock-decrement-topic"
	currentConfig.Infra.StockConsumerGroup = "stock-consumer-group"
	currentConfig.Infra.OrderServiceName = "order-service"
	currentConfig.Infra.Recovery.CheckInterval = 10 * time.Second
	currentConfig.Infra.Recovery.MaxChecks = 15

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			panic("failed to read config file: " + err.Error())
		}
		if err := yaml.Unmarshal(data, &currentConfig); err != nil {
			panic("failed to parse config file: " + err.Error())
		}
	}

	// 环境变量覆盖
	overrideString(&currentConfig.Infra.MysqlDSN, "MYSQL_DSN")
	overrideString(&currentConfig.Infra.RedisAddrs, "REDIS_ADDRS")
	overrideString(&currentConfig.Infra.KafkaBrokers, "KAFKA_BROKERS")
	overrideString(&currentConfig.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	overrideString(&currentConfig.Infra.Nacos.ServerAddrs, "NACOS_SERVER_ADDRS")
	overrideString(&currentConfig.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	overrideString(&currentConfig.Infra.Nacos.Group, "NACOS_GROUP")
	overrideString(&currentConfig.Infra.Zookeeper.Servers, "ZK_SERVERS")
	if v, ok := os.LookupEnv("PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			currentConfig.App.Port = p
		}
	}

	applyFallbacks()
}

func applyFallbacks() {
	if currentConfig.App.Port == 0 {
		currentConfig.App.Port = 8080
	}
	if currentConfig.Infra.MysqlDSN == "" {
		currentConfig.Infra.MysqlDSN = "root:root@tcp(localhost:3306)/seckill?charset=utf8mb4&parseTime=True&loc=Local"
	}
	if currentConfig.Infra.RedisAddrs == "" {
		currentConfig.Infra.RedisAddrs = "localhost:6379"
	}
	if currentConfig.Infra.KafkaBrokers == "" {
		currentConfig.Infra.KafkaBrokers = "localhost:9092"
	}
	if currentConfig.Infra.Jaeger.Endpoint == "" {
		currentConfig.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}
	if currentConfig.Infra.Nacos.ServerAddrs == "" {
		currentConfig.Infra.Nacos.ServerAddrs = "localhost:8848"
	}
	if currentConfig.Infra.Zookeeper.Servers == "" {
		currentConfig.Infra.Zookeeper.Servers = "localhost:2181"
	}
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
