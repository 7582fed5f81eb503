package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"crosswalk-api"`
	Port                          int      `env:"PORT" env-default:"3003"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	TLSMinVersion                 string   `env:"HTTP_SERVER_TLS_MIN_VERSION" env-default:"TLS_1_2"`
	TLSMaxVersion                 string   `env:"HTTP_SERVER_TLS_MAX_VERSION" env-default:"TLS_1_2"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"crosswalk"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Resolution
	ResolvePrecedence   string  `env:"RESOLVE_PRECEDENCE" env-default:"crosswalk"`
	ResolveWorkerCount  int     `env:"RESOLVE_WORKER_COUNT" env-default:"4"`
	TeamPrefilter       bool    `env:"TEAM_PREFILTER" env-default:"false"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" env-default:"0.8"`
	SimilarityTieBand   float64 `env:"SIMILARITY_TIE_BAND" env-default:"0.05"`

	// Alias suggestions
	SuggestionMinScore float64 `env:"SUGGESTION_MIN_SCORE" env-default:"0.6"`
	SuggestionLimit    int     `env:"SUGGESTION_LIMIT" env-default:"3"`

	// CSV report export (disabled when empty)
	ReportDir string `env:"REPORT_DIR" env-default:""`

	// Mapped-JSON ingest adapters, one *.json mapping per file (disabled when empty)
	IngestMappingDir string `env:"INGEST_MAPPING_DIR" env-default:""`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"otlp"` // otlp or console
	OTLPEndpoint    string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol    string `env:"OTLP_PROTOCOL" env-default:"grpc"`

	// Alias cache
	CacheBackend string        `env:"CACHE_BACKEND" env-default:"memory"` // memory or redis
	CacheTTL     time.Duration `env:"CACHE_TTL" env-default:"5m"`

	// Redis (CACHE_BACKEND=redis)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Graph projection (Memgraph/Neo4j)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Consumer (slate feed ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"dfs-slates"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"crosswalk-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"false"`

	// Kafka Producer (resolution events)
	KafkaProducerEnabled bool   `env:"KAFKA_PRODUCER_ENABLED" env-default:"false"`
	KafkaOutputTopic     string `env:"KAFKA_OUTPUT_TOPIC" env-default:"crosswalk-events"`
	KafkaBatchSize       int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout    int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks    int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression     string `env:"KAFKA_COMPRESSION" env-default:"snappy"`
}
