// Package config loads all environment variables at startup. Every other
// package receives typed values — nothing reads os.Getenv directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider selects the outbound email channel.
type Provider string

const (
	ProviderSMTP   Provider = "smtp"
	ProviderResend Provider = "resend"
)

// SendMode selects how POST /send-email executes.
type SendMode string

const (
	// SendModeAsync acknowledges immediately and delivers in the background;
	// the outcome is observable at GET /delivery/{id}.
	SendModeAsync SendMode = "async"
	// SendModeSync renders and sends inline and answers with the final
	// success or failure.
	SendModeSync SendMode = "sync"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port string // default "3005"
	Env  string // "development" | "production"

	// ── Rendering ─────────────────────────────────────────────────────────────
	TemplatesDir string        // directory holding the three report templates
	ChromePath   string        // browser binary override; empty = default lookup
	SettleDelay  time.Duration // fixed wait for in-page chart drawing
	RenderTimeout time.Duration // ceiling for a whole synchronous render

	// ── Leads ─────────────────────────────────────────────────────────────────
	LeadsFile string

	// ── Email ─────────────────────────────────────────────────────────────────
	// Credentials are deliberately not validated here: report generation must
	// work on installs with no email configured, so a missing credential only
	// fails the send itself.
	EmailProvider Provider
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string // doubles as the sender address for SMTP
	SMTPPass      string // 16-character app password
	ResendAPIKey  string
	EmailFromAddr string
	EmailFromName string

	// ── Background delivery ───────────────────────────────────────────────────
	SendMode   SendMode
	WorkerCount int
	JobTimeout time.Duration
}

// Load reads all environment variables and returns a validated Config.
// A .env file in the working directory is loaded when present, so plain
// `go run ./cmd/api` works in development without any wrapper. Real
// environment variables always win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing file is fine

	c := &Config{
		Port: getEnv("PORT", "3005"),
		Env:  getEnv("ENV", "development"),

		TemplatesDir:  getEnv("TEMPLATES_DIR", "templates"),
		ChromePath:    firstEnv("CHROME_PATH", "PUPPETEER_EXECUTABLE_PATH"),
		SettleDelay:   getEnvAsDuration("RENDER_SETTLE_DELAY", 1500*time.Millisecond),
		RenderTimeout: getEnvAsDuration("RENDER_TIMEOUT", 90*time.Second),

		LeadsFile: getEnv("LEADS_FILE", "leads.json"),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 465),
		SMTPUser:      os.Getenv("GMAIL_USER"),
		SMTPPass:      os.Getenv("GMAIL_PASS"),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		EmailFromAddr: getEnv("EMAIL_FROM_ADDR", "reports@equitylist.co"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "EquityList SAFE Calculator"),

		WorkerCount: getEnvAsInt("WORKER_COUNT", 2),
		JobTimeout:  getEnvAsDuration("JOB_TIMEOUT", 3*time.Minute),
	}

	switch mode := SendMode(getEnv("SEND_MODE", string(SendModeAsync))); mode {
	case SendModeAsync, SendModeSync:
		c.SendMode = mode
	default:
		return nil, fmt.Errorf("config: invalid SEND_MODE %q (want async or sync)", mode)
	}

	switch p := Provider(getEnv("EMAIL_PROVIDER", "auto")); p {
	case ProviderSMTP, ProviderResend:
		c.EmailProvider = p
	case "auto":
		// Pick whichever channel has credentials; SMTP wins a tie because it
		// needs no pre-verified sender domain. With neither configured the
		// SMTP channel is wired anyway and fails each send with a
		// configuration error, which is the contract.
		if c.SMTPUser != "" && c.SMTPPass != "" {
			c.EmailProvider = ProviderSMTP
		} else if c.ResendAPIKey != "" {
			c.EmailProvider = ProviderResend
		} else {
			c.EmailProvider = ProviderSMTP
		}
	default:
		return nil, fmt.Errorf("config: invalid EMAIL_PROVIDER %q (want smtp, resend, or auto)", p)
	}

	if c.TemplatesDir == "" {
		return nil, fmt.Errorf("config: TEMPLATES_DIR must not be empty")
	}

	return c, nil
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// Plain integers are treated as milliseconds — the knob this matters for
	// (RENDER_SETTLE_DELAY) has always been tuned in ms.
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Millisecond
	}
	// Fall back to Go duration syntax: "1500ms", "90s", "3m".
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
