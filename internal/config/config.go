package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Storage     StorageConfig
	Camera      CameraConfig
	Detector    DetectorConfig    `yaml:"detector"`
	LBPH        LBPHConfig        `yaml:"lbph"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Enroll      EnrollConfig      `yaml:"enroll"`
	Dashboard   DashboardConfig
	Database    DatabaseConfig
	Web         WebConfig
	LogLevel    string
}

type StorageConfig struct {
	DataDir      string // root of the sample store, one bucket per identity id
	RegistryPath string // CSV identity registry, ignored when Database.URL is set
	ModelPath    string // trained LBPH artifact
}

type CameraConfig struct {
	Device    int    // video device index (0 = first camera)
	FramesDir string // replay frames from this directory instead of a camera
}

type DetectorConfig struct {
	CascadePath string        `yaml:"cascade_path"`
	Enroll      CascadeParams `yaml:"enroll"`
	Recognize   CascadeParams `yaml:"recognize"`
}

// CascadeParams are the Haar cascade multi-scale detection parameters.
type CascadeParams struct {
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
}

type LBPHConfig struct {
	Radius    int `yaml:"radius"`
	Neighbors int `yaml:"neighbors"`
	GridX     int `yaml:"grid_x"`
	GridY     int `yaml:"grid_y"`
}

type RecognitionConfig struct {
	Threshold           float64       `yaml:"threshold"`
	Duration            time.Duration `yaml:"duration"`
	SendFailure         string        `yaml:"send_failure"` // "continue" or "abort"
	IsolateRegionErrors bool          `yaml:"isolate_region_errors"`
}

type EnrollConfig struct {
	SampleQuota     int  `yaml:"sample_quota"`
	RejectMultiFace bool `yaml:"reject_multi_face"`
}

type DashboardConfig struct {
	URL            string        // Socket.IO endpoint, defaults to http://localhost:5000
	ConnectTimeout time.Duration // bound on the initial connection attempt
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, enables the postgres registry
	MaxOpenConns int    // Maximum open connections (default 5)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS origins besides localhost
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

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive Go duration ("30s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Storage = StorageConfig{
		DataDir:      envString("DATA_DIR", constants.DefaultDataDir),
		RegistryPath: envString("REGISTRY_PATH", constants.DefaultRegistryPath),
		ModelPath:    envString("MODEL_PATH", constants.DefaultModelPath),
	}
	cfg.Camera = CameraConfig{
		Device:    envNonNegativeInt("CAMERA_DEVICE", 0),
		FramesDir: os.Getenv("CAMERA_FRAMES_DIR"),
	}
	cfg.Detector.CascadePath = envString("CASCADE_PATH", cfg.Detector.CascadePath)

	cfg.Recognition.Threshold = envFloat("RECOGNITION_THRESHOLD", cfg.Recognition.Threshold)
	cfg.Recognition.Duration = envDuration("RECOGNITION_DURATION", cfg.Recognition.Duration)
	cfg.Recognition.SendFailure = strings.ToLower(envString("RECOGNITION_SEND_FAILURE", cfg.Recognition.SendFailure))
	cfg.Recognition.IsolateRegionErrors = envBool("RECOGNITION_ISOLATE_REGION_ERRORS", cfg.Recognition.IsolateRegionErrors)

	cfg.Enroll.SampleQuota = envInt("ENROLL_SAMPLE_QUOTA", cfg.Enroll.SampleQuota)
	cfg.Enroll.RejectMultiFace = envBool("ENROLL_REJECT_MULTI_FACE", cfg.Enroll.RejectMultiFace)

	cfg.Dashboard = DashboardConfig{
		URL:            envString("DASHBOARD_URL", constants.DefaultDashboardURL),
		ConnectTimeout: envDuration("DASHBOARD_CONNECT_TIMEOUT", constants.DefaultConnectTimeout),
	}
	cfg.Database = DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 5),
		MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
	}
	cfg.Web = WebConfig{
		Host: envString("WEB_HOST", "0.0.0.0"),
		Port: envInt("WEB_PORT", 8080),
	}
	if origins := os.Getenv("WEB_ALLOWED_ORIGINS"); origins != "" {
		cfg.Web.AllowedOrigins = strings.Split(origins, ",")
	}
	cfg.LogLevel = envString("LOG_LEVEL", "info")

	return &cfg
}

// envNonNegativeInt is envInt for values where zero is meaningful (device indexes).
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// Validate checks the values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if c.Recognition.Threshold <= 0 {
		return fmt.Errorf("%w: recognition threshold must be positive, got %v", ErrInvalidConfig, c.Recognition.Threshold)
	}
	if c.Recognition.Duration <= 0 {
		return fmt.Errorf("%w: recognition duration must be positive, got %v", ErrInvalidConfig, c.Recognition.Duration)
	}
	if c.Enroll.SampleQuota <= 0 {
		return fmt.Errorf("%w: sample quota must be positive, got %d", ErrInvalidConfig, c.Enroll.SampleQuota)
	}
	switch c.Recognition.SendFailure {
	case "continue", "abort":
	default:
		return fmt.Errorf("%w: send failure policy must be \"continue\" or \"abort\", got %q", ErrInvalidConfig, c.Recognition.SendFailure)
	}
	if c.LBPH.GridX <= 0 || c.LBPH.GridY <= 0 || c.LBPH.Radius <= 0 || c.LBPH.Neighbors <= 0 || c.LBPH.Neighbors > 8 {
		return fmt.Errorf("%w: invalid LBPH parameters %+v", ErrInvalidConfig, c.LBPH)
	}
	return nil
}
