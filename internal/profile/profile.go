package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/rivalchat/plugin/ai/timeout"
)

const (
	// DefaultModel is used when neither the caller nor the environment names a model.
	DefaultModel = "gpt-4"
	// DefaultReplyDelay is the pause before the second persona answers in the group thread.
	DefaultReplyDelay = 1500 * time.Millisecond
	// DefaultCompletionTimeout bounds a single call to the completion endpoint.
	DefaultCompletionTimeout = timeout.CompletionTimeout
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where rivalchat stores its own data
	DSN string
	// Driver is the store driver (sqlite, postgres, redis or memory)
	Driver string
	// Version is the current version of server
	Version string

	// Redis driver connection, used when Driver is "redis".
	RedisAddr     string // RIVALCHAT_REDIS_ADDR (default: localhost:6379)
	RedisPassword string // RIVALCHAT_REDIS_PASSWORD
	RedisDB       int    // RIVALCHAT_REDIS_DB (default: 0)

	// Completion endpoint defaults, used when a caller omits a value or sends the sentinel.
	DefaultAPIKey string // RIVALCHAT_API_KEY (legacy: GREASY_API_KEY)
	DefaultAPIURL string // RIVALCHAT_API_URL (legacy: GREASY_API_URL)
	DefaultModel  string // RIVALCHAT_MODEL (legacy: GREASY_MODEL, default: gpt-4)

	// Turn pacing and upstream hardening. Zero disables either one.
	ReplyDelay        time.Duration // --reply-delay (default: 1.5s)
	CompletionTimeout time.Duration // --completion-timeout (default: 60s)

	// Per-client request limit for the HTTP API.
	RateLimit float64 // RIVALCHAT_RATE_LIMIT requests per second (default: 2)
	RateBurst int     // RIVALCHAT_RATE_BURST (default: 5)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasDefaultCredentials reports whether the process can call the completion endpoint on its own.
func (p *Profile) HasDefaultCredentials() bool {
	return p.DefaultAPIKey != "" && p.DefaultAPIURL != ""
}

// FromEnv loads configuration from environment variables.
// Supports both RIVALCHAT_* (new) and GREASY_* (legacy) prefixes.
// Values already set on the profile (for example by command line flags) win over the environment.
func (p *Profile) FromEnv() {
	// Skips empty values to allow defaults to take effect
	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		if legacyKey != "" {
			if val := os.Getenv(legacyKey); val != "" {
				return val
			}
		}
		return defaultValue
	}

	if p.DefaultAPIKey == "" {
		p.DefaultAPIKey = getEnvWithDefault("RIVALCHAT_API_KEY", "GREASY_API_KEY", "")
	}
	if p.DefaultAPIURL == "" {
		p.DefaultAPIURL = getEnvWithDefault("RIVALCHAT_API_URL", "GREASY_API_URL", "")
	}
	if p.DefaultModel == "" {
		p.DefaultModel = getEnvWithDefault("RIVALCHAT_MODEL", "GREASY_MODEL", DefaultModel)
	}

	if p.RedisAddr == "" {
		p.RedisAddr = getEnvWithDefault("RIVALCHAT_REDIS_ADDR", "", "localhost:6379")
	}
	if p.RedisPassword == "" {
		p.RedisPassword = os.Getenv("RIVALCHAT_REDIS_PASSWORD")
	}
	if p.RedisDB == 0 {
		if db, err := strconv.Atoi(os.Getenv("RIVALCHAT_REDIS_DB")); err == nil {
			p.RedisDB = db
		}
	}

	if p.RateLimit == 0 {
		p.RateLimit = 2
		if v, err := strconv.ParseFloat(os.Getenv("RIVALCHAT_RATE_LIMIT"), 64); err == nil && v > 0 {
			p.RateLimit = v
		}
	}
	if p.RateBurst == 0 {
		p.RateBurst = 5
		if v, err := strconv.Atoi(os.Getenv("RIVALCHAT_RATE_BURST")); err == nil && v > 0 {
			p.RateBurst = v
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	// Only the sqlite driver keeps files on local disk.
	if p.Driver != "sqlite" {
		return nil
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "rivalchat")
		} else {
			p.Data = "/var/opt/rivalchat"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if !filepath.IsAbs(p.Data) {
		p.Data = filepath.Join(filepath.Dir(os.Args[0]), p.Data)
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("rivalchat_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
