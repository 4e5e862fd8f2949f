package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Postgres  DBConfig
	Redis     RedisConfig
	Engine    EngineConfig
	Worker    WorkerConfig
	Artifacts ArtifactsConfig
	Media     MediaConfig
	Vector    VectorConfig
	Logger    Logger
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	JobQueueKey   string
}

// EngineConfig describes how the analysis engine process is launched
// and reached.
type EngineConfig struct {
	PythonBin       string
	ScriptPath      string
	Host            string
	Port            int
	ConnectAttempts int
	ConnectDelaySec int
	MaxRestarts     int
	BackoffBaseSec  int
}

type WorkerConfig struct {
	QueueConcurrency int
	MaxCPUUsage      float64
	MaxJobAttempts   int
	LockTTLMin       int
	PollIntervalSec  int
	ScratchDir       string
}

// ArtifactsConfig selects the checkpoint artifact backend.
type ArtifactsConfig struct {
	Backend   string
	Dir       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type MediaConfig struct {
	Dir        string
	Extensions []string
}

type VectorConfig struct {
	ServiceURL string
	TimeoutSec int
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate rejects configurations the pipeline cannot run safely with.
// The capability router keys inbound messages by type only, so two
// concurrent calls of the same capability would cross-wire their
// callbacks. Until the message envelope carries correlation ids the
// queue concurrency stays at one.
func (c *Config) validate() error {
	if c.Worker.QueueConcurrency > 1 {
		return fmt.Errorf("worker.queueConcurrency = %d: engine protocol has no call correlation ids, concurrency above 1 is unsafe", c.Worker.QueueConcurrency)
	}
	if c.Worker.QueueConcurrency == 0 {
		c.Worker.QueueConcurrency = 1
	}
	switch c.Artifacts.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("artifacts.backend = %q: must be fs or s3", c.Artifacts.Backend)
	}
	return nil
}
