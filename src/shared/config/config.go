package config

import (
	"path"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/veedubyou/vocal-isolator/src/shared/config/local"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/env"
)

const (
	OutputBackendLocal = "local"
	OutputBackendGCS   = "gcs"
	OutputBackendMinio = "minio"

	SecretsBackendEnv = "env"
	SecretsBackendAWS = "aws"

	// htdemucs models were trained on 7.8s chunks and refuse longer segments
	transformerModelPrefix       = "htdemucs"
	MaxTransformerSegmentSeconds = 7

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config is loaded from the environment, optionally layered over a YAML file.
type Config struct {
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Server    Server    `yaml:"server"`
	Tools     Tools     `yaml:"tools"`
	Fetch     Fetch     `yaml:"fetch"`
	Separator Separator `yaml:"separator"`
	Workspace Workspace `yaml:"workspace"`
	Outputs   Outputs   `yaml:"outputs"`
	Secrets   Secrets   `yaml:"secrets"`
	Events    Events    `yaml:"events"`
}

type Server struct {
	Port               string   `yaml:"port" env:"PORT" env-default:":5000"`
	CORSAllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_FE_ORIGINS" env-separator:"," env-default:"*"`
	Log                bool     `yaml:"log" env:"SERVER_LOG" env-default:"true"`
	MaxUploadMB        int      `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"512"`
}

// Tools holds binary locations, empty values are resolved from PATH.
type Tools struct {
	YtDLPBinPath     string `yaml:"ytdlp" env:"YTDLP_BIN_PATH"`
	FFmpegBinPath    string `yaml:"ffmpeg" env:"FFMPEG_BIN_PATH"`
	FFprobeBinPath   string `yaml:"ffprobe" env:"FFPROBE_BIN_PATH"`
	DemucsBinPath    string `yaml:"demucs" env:"DEMUCS_BIN_PATH"`
	NvidiaSMIBinPath string `yaml:"nvidia_smi" env:"NVIDIA_SMI_BIN_PATH" env-default:"nvidia-smi"`
}

type Fetch struct {
	UserAgent        string `yaml:"user_agent" env:"FETCH_USER_AGENT"`
	SleepRequests    int    `yaml:"sleep_requests" env:"FETCH_SLEEP_REQUESTS" env-default:"0"`
	CookieSecretName string `yaml:"cookie_secret_name" env:"FETCH_COOKIE_SECRET_NAME" env-default:"cookies"`
}

type Separator struct {
	Model          string `yaml:"model" env:"SEPARATOR_MODEL" env-default:"htdemucs_6s"`
	Device         string `yaml:"device" env:"SEPARATOR_DEVICE" env-default:"auto"`
	SegmentSeconds int    `yaml:"segment_seconds" env:"SEPARATOR_SEGMENT_SECONDS" env-default:"7"`
}

type Workspace struct {
	Dir            string        `yaml:"dir" env:"WORKING_DIR_PATH"`
	StaleAfter     time.Duration `yaml:"stale_after" env:"WORKSPACE_STALE_AFTER" env-default:"24h"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"0s"`
}

type Outputs struct {
	Backend       string        `yaml:"backend" env:"OUTPUT_BACKEND" env-default:"local"`
	Dir           string        `yaml:"dir" env:"OUTPUT_DIR"`
	MaxAge        time.Duration `yaml:"max_age" env:"OUTPUT_MAX_AGE" env-default:"0s"`
	PublicBaseURL string        `yaml:"public_base_url" env:"OUTPUT_PUBLIC_BASE_URL" env-default:"/outputs"`

	GCS   GCS   `yaml:"gcs"`
	Minio Minio `yaml:"minio"`
}

type GCS struct {
	StorageHost     string `yaml:"storage_host" env:"GOOGLE_STORAGE_HOST" env-default:"https://storage.googleapis.com"`
	Bucket          string `yaml:"bucket" env:"GOOGLE_CLOUD_STORAGE_BUCKET_NAME"`
	CredentialsJSON string `yaml:"credentials_json" env:"GOOGLE_CLOUD_KEY"`
	Endpoint        string `yaml:"endpoint" env:"GOOGLE_CLOUD_STORAGE_ENDPOINT"`
}

type Minio struct {
	Endpoint      string        `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey     string        `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey     string        `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket        string        `yaml:"bucket" env:"MINIO_BUCKET"`
	Region        string        `yaml:"region" env:"MINIO_REGION"`
	UseSSL        bool          `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	PresignExpiry time.Duration `yaml:"presign_expiry" env:"MINIO_PRESIGN_EXPIRY" env-default:"24h"`
}

type Secrets struct {
	Backend   string `yaml:"backend" env:"SECRETS_BACKEND" env-default:"env"`
	EnvPrefix string `yaml:"env_prefix" env:"SECRETS_ENV_PREFIX" env-default:"VOCAL_ISOLATOR_SECRET_"`

	AWSRegion          string `yaml:"aws_region" env:"AWS_REGION"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	AWSSecretPrefix    string `yaml:"aws_secret_prefix" env:"AWS_SECRET_PREFIX" env-default:"vocal-isolator/"`
}

type Events struct {
	RabbitMQURL       string `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RabbitMQQueueName string `yaml:"rabbitmq_queue_name" env:"RABBITMQ_QUEUE_NAME" env-default:"vocal-isolator-events"`
}

// Load reads configPath when given, otherwise the environment alone.
// A .env file in the working directory is honoured outside production.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	var err error
	if configPath != "" {
		err = cleanenv.ReadConfig(configPath, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}

	if err != nil {
		return Config{}, cerr.Field("config_path", configPath).Wrap(err).Error("Failed to read configuration")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Env() env.Environment {
	return env.Parse(c.Environment)
}

func (c *Config) applyDefaults() {
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}

	if c.Workspace.Dir == "" {
		c.Workspace.Dir = path.Join(local.ProjectRoot(), "wd")
	}

	if c.Outputs.Dir == "" {
		c.Outputs.Dir = path.Join(c.Workspace.Dir, "outputs")
	}

	c.Outputs.PublicBaseURL = strings.TrimSuffix(c.Outputs.PublicBaseURL, "/")
}

func (c Config) Validate() error {
	switch c.Environment {
	case string(env.Production), string(env.Development), string(env.Test):
	default:
		return cerr.Field("environment", c.Environment).Error("Invalid environment is set")
	}

	switch c.Outputs.Backend {
	case OutputBackendLocal:
	case OutputBackendGCS:
		if c.Outputs.GCS.Bucket == "" {
			return cerr.Error("GCS output backend requires a bucket name")
		}
	case OutputBackendMinio:
		if c.Outputs.Minio.Endpoint == "" || c.Outputs.Minio.Bucket == "" {
			return cerr.Error("Minio output backend requires an endpoint and a bucket")
		}
	default:
		return cerr.Field("backend", c.Outputs.Backend).Error("Unknown output backend")
	}

	switch c.Secrets.Backend {
	case SecretsBackendEnv:
	case SecretsBackendAWS:
		if c.Secrets.AWSRegion == "" {
			return cerr.Error("AWS secrets backend requires a region")
		}
	default:
		return cerr.Field("backend", c.Secrets.Backend).Error("Unknown secrets backend")
	}

	switch c.Separator.Device {
	case "auto", "cpu", "cuda":
	default:
		return cerr.Field("device", c.Separator.Device).Error("Separator device must be one of auto, cpu, cuda")
	}

	if c.Separator.SegmentSeconds <= 0 {
		return cerr.Field("segment_seconds", c.Separator.SegmentSeconds).Error("Separator segment must be positive")
	}

	if strings.HasPrefix(c.Separator.Model, transformerModelPrefix) && c.Separator.SegmentSeconds > MaxTransformerSegmentSeconds {
		return cerr.Field("segment_seconds", c.Separator.SegmentSeconds).
			Field("model", c.Separator.Model).
			Error("Transformer models can't take a segment longer than 7 seconds")
	}

	if c.Fetch.SleepRequests < 0 {
		return cerr.Error("Fetch sleep interval can't be negative")
	}

	return nil
}
