package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 应用配置
var AppConfig struct {
	// 服务器配置
	Port      string
	Mode      string // debug 或 release
	JWTSecret string

	// Redis配置（仅用于缓存/限流/在线状态）
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Kafka配置（用于会话事件通知）
	KafkaBootstrapServers  []string
	KafkaTopicPrefix       string
	KafkaPartitions        int
	KafkaReplicationFactor int

	// 数据库配置
	DBConnectionString string
	DBMaxIdleConns     int
	DBMaxOpenConns     int

	// 缓存配置
	CacheExpiration int // 缓存过期时间（秒）

	// 会话过期扫描配置
	SweepInterval int // 后台过期扫描间隔（秒）

	// AI出题服务配置（外部协作方）
	GeneratorURL     string
	GeneratorTimeout int // 请求超时（秒）

	// 字幕提取服务配置（外部协作方，未配置时依赖请求自带字幕）
	TranscriptURL string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() {
	// 尝试加载.env文件
	err := godotenv.Load()
	if err != nil {
		log.Println("未找到.env文件，将使用环境变量")
	}

	// 服务器配置
	AppConfig.Port = getEnv("PORT", "8080")
	AppConfig.Mode = getEnv("MODE", "debug")
	AppConfig.JWTSecret = getEnv("JWT_SECRET", "your-secret-key")

	// Redis配置
	AppConfig.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	AppConfig.RedisPassword = getEnv("REDIS_PASSWORD", "")

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}
	AppConfig.RedisDB = redisDB

	redisPoolSize, err := strconv.Atoi(getEnv("REDIS_POOL_SIZE", strconv.Itoa(runtime.NumCPU()*10)))
	if err != nil {
		redisPoolSize = runtime.NumCPU() * 10
	}
	AppConfig.RedisPoolSize = redisPoolSize

	// Kafka配置
	kafkaServers := getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")
	AppConfig.KafkaBootstrapServers = strings.Split(kafkaServers, ",")
	AppConfig.KafkaTopicPrefix = getEnv("KAFKA_TOPIC_PREFIX", "studyloop-")

	kafkaPartitions, err := strconv.Atoi(getEnv("KAFKA_PARTITIONS", "3"))
	if err != nil {
		kafkaPartitions = 3
	}
	AppConfig.KafkaPartitions = kafkaPartitions

	kafkaReplication, err := strconv.Atoi(getEnv("KAFKA_REPLICATION_FACTOR", "2"))
	if err != nil {
		kafkaReplication = 2
	}
	AppConfig.KafkaReplicationFactor = kafkaReplication

	// 数据库配置
	AppConfig.DBConnectionString = getEnv("DB_CONNECTION_STRING", "root:password@tcp(127.0.0.1:3306)/studyloop?charset=utf8mb4&parseTime=True&loc=Local")

	dbMaxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	if err != nil {
		dbMaxIdleConns = 10
	}
	AppConfig.DBMaxIdleConns = dbMaxIdleConns

	dbMaxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "100"))
	if err != nil {
		dbMaxOpenConns = 100
	}
	AppConfig.DBMaxOpenConns = dbMaxOpenConns

	// 缓存配置
	cacheExpiration, err := strconv.Atoi(getEnv("CACHE_EXPIRATION", "300"))
	if err != nil {
		cacheExpiration = 300
	}
	AppConfig.CacheExpiration = cacheExpiration

	// 过期扫描配置
	sweepInterval, err := strconv.Atoi(getEnv("SWEEP_INTERVAL", "60"))
	if err != nil {
		sweepInterval = 60
	}
	AppConfig.SweepInterval = sweepInterval

	// AI出题服务配置
	AppConfig.GeneratorURL = getEnv("GENERATOR_URL", "")

	generatorTimeout, err := strconv.Atoi(getEnv("GENERATOR_TIMEOUT", "30"))
	if err != nil {
		generatorTimeout = 30
	}
	AppConfig.GeneratorTimeout = generatorTimeout

	// 字幕提取服务配置
	AppConfig.TranscriptURL = getEnv("TRANSCRIPT_URL", "")

	log.Println("配置加载完成")
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
