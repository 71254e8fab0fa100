package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Camera     CameraConfig     `yaml:"camera"`
	FaceAPI    FaceAPIConfig    `yaml:"face_api"`
	Database   DatabaseConfig   `yaml:"database"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Notify     NotifyConfig     `yaml:"notify"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Web        WebConfig        `yaml:"web"`
	Log        LogConfig        `yaml:"log"`
}

// EngineConfig tunes the recognition loop.
type EngineConfig struct {
	Threshold        float64       `yaml:"threshold"`    // max L2 distance for a match, shared by all catalogs and unknown dedup
	ResizeWidth      int           `yaml:"resize_width"` // frames wider than this are scaled down before inference
	AbsenceTimeout   time.Duration `yaml:"absence_timeout"`
	Device           string        `yaml:"device"` // forwarded to the face API; "-1" selects CPU
	EmbeddingDim     int           `yaml:"embedding_dim"`
	InferenceWorkers int           `yaml:"inference_workers"`
	FrameInterval    time.Duration `yaml:"frame_interval"`
	MatchIndex       string        `yaml:"match_index"` // linear or hnsw
}

type CameraConfig struct {
	Source        string        `yaml:"source"` // http(s) snapshot URL, or device:N with the gocv build tag
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type FaceAPIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"` // PostgreSQL connection URL; empty selects the in-memory backend
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type SnapshotConfig struct {
	Dir            string `yaml:"dir"`
	URLPrefix      string `yaml:"url_prefix"`
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
}

// UseMinio reports whether snapshots go to object storage instead of disk.
func (c *SnapshotConfig) UseMinio() bool {
	return c.MinioEndpoint != ""
}

type NotifyConfig struct {
	URLs     []string      `yaml:"urls"` // shoutrrr service URLs
	Cooldown time.Duration `yaml:"cooldown"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Enabled reports whether events should be bridged to an MQTT broker.
func (c *MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

type AttendanceConfig struct {
	Schedule string `yaml:"schedule"` // standard 5-field cron expression
	Timezone string `yaml:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type WebConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive, finite float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return defaultVal
	}
	return f
}

// envSeconds reads a positive number of seconds (fractions allowed).
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	f := envFloat(key, -1)
	if f <= 0 {
		return defaultVal
	}
	return time.Duration(f * float64(time.Second))
}

// envMillis reads a positive number of milliseconds.
func envMillis(key string, defaultVal time.Duration) time.Duration {
	n := envInt(key, -1)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Millisecond
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return b
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// Defaults returns the embedded defaults without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	cfg := Defaults()

	e := &cfg.Engine
	e.Threshold = envFloat("THRESHOLD", e.Threshold)
	e.ResizeWidth = envInt("RESIZE_WIDTH", e.ResizeWidth)
	e.AbsenceTimeout = envSeconds("ABSENCE_TIMEOUT", e.AbsenceTimeout)
	e.Device = envString("INFERENCE_DEVICE", envString("INSIGHTFACE_CTX_ID", e.Device))
	e.EmbeddingDim = envInt("EMBEDDING_DIM", e.EmbeddingDim)
	e.InferenceWorkers = envInt("INFERENCE_WORKERS", e.InferenceWorkers)
	e.FrameInterval = envMillis("FRAME_INTERVAL_MS", e.FrameInterval)
	e.MatchIndex = strings.ToLower(envString("MATCH_INDEX", e.MatchIndex))

	cfg.Camera.Source = envString("CAMERA_SOURCE", cfg.Camera.Source)
	cfg.Camera.RetryInterval = envMillis("CAMERA_RETRY_MS", cfg.Camera.RetryInterval)

	cfg.FaceAPI.URL = envString("FACE_API_URL", cfg.FaceAPI.URL)
	cfg.FaceAPI.Timeout = envSeconds("FACE_API_TIMEOUT", cfg.FaceAPI.Timeout)

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	s := &cfg.Snapshot
	s.Dir = envString("SNAPSHOT_DIR", s.Dir)
	s.URLPrefix = strings.TrimRight(envString("SNAPSHOT_URL_PREFIX", s.URLPrefix), "/")
	s.MinioEndpoint = envString("MINIO_ENDPOINT", s.MinioEndpoint)
	s.MinioAccessKey = envString("MINIO_ACCESS_KEY", s.MinioAccessKey)
	s.MinioSecretKey = envString("MINIO_SECRET_KEY", s.MinioSecretKey)
	s.MinioBucket = envString("MINIO_BUCKET", s.MinioBucket)
	s.MinioUseSSL = envBool("MINIO_USE_SSL", s.MinioUseSSL)

	cfg.Notify.URLs = envList("NOTIFY_URLS", cfg.Notify.URLs)
	cfg.Notify.Cooldown = envSeconds("NOTIFY_COOLDOWN", cfg.Notify.Cooldown)

	m := &cfg.MQTT
	m.Broker = envString("MQTT_BROKER", m.Broker)
	m.ClientID = envString("MQTT_CLIENT_ID", m.ClientID)
	m.Username = envString("MQTT_USERNAME", m.Username)
	m.Password = envString("MQTT_PASSWORD", m.Password)
	m.TopicPrefix = strings.TrimRight(envString("MQTT_TOPIC_PREFIX", m.TopicPrefix), "/")

	cfg.Attendance.Schedule = envString("ATTENDANCE_SCHEDULE", cfg.Attendance.Schedule)
	cfg.Attendance.Timezone = envString("ATTENDANCE_TIMEZONE", cfg.Attendance.Timezone)

	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("LOG_FORMAT", cfg.Log.Format)

	return cfg
}

// Validate checks settings the engine cannot run without.
func (c *Config) Validate() error {
	if c.Engine.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", c.Engine.Threshold)
	}
	if c.Engine.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Engine.EmbeddingDim)
	}
	switch c.Engine.MatchIndex {
	case "linear", "hnsw":
	default:
		return fmt.Errorf("unknown match index %q (expected linear or hnsw)", c.Engine.MatchIndex)
	}
	if c.Engine.AbsenceTimeout <= 0 {
		return fmt.Errorf("absence timeout must be positive, got %s", c.Engine.AbsenceTimeout)
	}
	return nil
}
