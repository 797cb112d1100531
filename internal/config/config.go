package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Notion      NotionConfig
	Scheduler   SchedulerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	History     HistoryConfig
	Mention     MentionConfig
	Notify      NotifyConfig
	Sync        SyncConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type NotionConfig struct {
	APIKey     string
	APIVersion string `validate:"required"`
	BaseURL    string `validate:"required,url"`
	Timeout    time.Duration
	PageSize   int `validate:"gte=1,lte=100"`
	Team       NotionDatabase
	Personal   NotionDatabase
}

// NotionDatabase is one remote database together with its vocabulary.
type NotionDatabase struct {
	DatabaseID string
	Schema     NotionSchema
}

// Enabled reports whether the database is configured for use.
func (d NotionDatabase) Enabled(apiKey string) bool {
	return apiKey != "" && d.DatabaseID != ""
}

// NotionSchema maps canonical task fields onto a database's property names and labels.
type NotionSchema struct {
	Properties PropertyNames
	Status     StatusLabels
	Priority   PriorityLabels
}

// PropertyNames holds the database column names. An empty name means the
// database has no such column.
type PropertyNames struct {
	Title       string `validate:"required"`
	Status      string `validate:"required"`
	StatusType  string `validate:"oneof=status select"`
	Priority    string
	DueDate     string
	Tags        string
	Description string
	Assignee    string
	Metadata    string
	Created     string
}

type StatusLabels struct {
	Todo       string `validate:"required"`
	InProgress string `validate:"required"`
	Done       string `validate:"required"`
	Blocked    string `validate:"required"`
}

type PriorityLabels struct {
	Low    string `validate:"required"`
	Medium string `validate:"required"`
	High   string `validate:"required"`
	Urgent string `validate:"required"`
}

type SchedulerConfig struct {
	Enabled          bool
	Timezone         string `validate:"required"`
	SyncTeamCron     string `validate:"required"`
	SyncPersonalCron string `validate:"required"`
	DueCron          string `validate:"required"`
	OverdueCron      string `validate:"required"`
	SummaryCron      string `validate:"required"`
	PruneCron        string `validate:"required"`
}

type RedisConfig struct {
	URL            string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type HistoryConfig struct {
	Path           string `validate:"required"`
	RetentionHours int    `validate:"gte=1"`
}

type MentionConfig struct {
	TitleMaxLength int `validate:"gte=8"`
}

type NotifyConfig struct {
	WebhookURL string `validate:"omitempty,url"`
	Timeout    time.Duration
}

type SyncConfig struct {
	StaleAfter time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	status := StatusLabels{
		Todo:       getString("NOTION_STATUS_TODO", "Not started"),
		InProgress: getString("NOTION_STATUS_IN_PROGRESS", "In progress"),
		Done:       getString("NOTION_STATUS_DONE", "Done"),
		Blocked:    getString("NOTION_STATUS_BLOCKED", "Blocked"),
	}
	priority := PriorityLabels{
		Low:    getString("NOTION_PRIORITY_LOW", "Low"),
		Medium: getString("NOTION_PRIORITY_MEDIUM", "Medium"),
		High:   getString("NOTION_PRIORITY_HIGH", "High"),
		Urgent: getString("NOTION_PRIORITY_URGENT", "Urgent"),
	}

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskhub"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Notion: NotionConfig{
			APIKey:     os.Getenv("NOTION_API_KEY"),
			APIVersion: getString("NOTION_API_VERSION", "2022-06-28"),
			BaseURL:    getString("NOTION_BASE_URL", "https://api.notion.com/v1"),
			Timeout:    getDuration("NOTION_TIMEOUT", 30*time.Second),
			PageSize:   getInt("NOTION_PAGE_SIZE", 100),
			Team: NotionDatabase{
				DatabaseID: os.Getenv("NOTION_TEAM_DATABASE_ID"),
				Schema: NotionSchema{
					Properties: PropertyNames{
						Title:       getString("NOTION_PROP_TITLE", "Name"),
						Status:      getString("NOTION_PROP_STATUS", "Status"),
						StatusType:  getString("NOTION_PROP_STATUS_TYPE", "status"),
						Priority:    getOptional("NOTION_PROP_PRIORITY", "Priority"),
						DueDate:     getOptional("NOTION_PROP_DUE_DATE", "Due"),
						Tags:        getOptional("NOTION_PROP_TAGS", "Tags"),
						Description: getOptional("NOTION_PROP_DESCRIPTION", "Description"),
						Assignee:    getOptional("NOTION_PROP_ASSIGNEE", "Assignee"),
						Metadata:    getOptional("NOTION_PROP_METADATA", "Metadata"),
						Created:     getOptional("NOTION_PROP_CREATED", "Created"),
					},
					Status:   status,
					Priority: priority,
				},
			},
			Personal: NotionDatabase{
				DatabaseID: os.Getenv("NOTION_PERSONAL_DATABASE_ID"),
				Schema: NotionSchema{
					Properties: PropertyNames{
						Title:       getString("NOTION_PERSONAL_PROP_TITLE", "名前"),
						Status:      getString("NOTION_PERSONAL_PROP_STATUS", "ステータス"),
						StatusType:  getString("NOTION_PERSONAL_PROP_STATUS_TYPE", "select"),
						Priority:    getOptional("NOTION_PERSONAL_PROP_PRIORITY", "優先度"),
						DueDate:     getOptional("NOTION_PERSONAL_PROP_DUE_DATE", "期限"),
						Tags:        getOptional("NOTION_PERSONAL_PROP_TAGS", "タグ"),
						Description: getOptional("NOTION_PERSONAL_PROP_DESCRIPTION", "説明"),
						Assignee:    getOptional("NOTION_PERSONAL_PROP_ASSIGNEE", ""),
						Metadata:    getOptional("NOTION_PERSONAL_PROP_METADATA", ""),
						Created:     getOptional("NOTION_PERSONAL_PROP_CREATED", "作成日時"),
					},
					Status: StatusLabels{
						Todo:       getString("NOTION_PERSONAL_STATUS_TODO", status.Todo),
						InProgress: getString("NOTION_PERSONAL_STATUS_IN_PROGRESS", status.InProgress),
						Done:       getString("NOTION_PERSONAL_STATUS_DONE", status.Done),
						Blocked:    getString("NOTION_PERSONAL_STATUS_BLOCKED", status.Blocked),
					},
					Priority: PriorityLabels{
						Low:    getString("NOTION_PERSONAL_PRIORITY_LOW", priority.Low),
						Medium: getString("NOTION_PERSONAL_PRIORITY_MEDIUM", priority.Medium),
						High:   getString("NOTION_PERSONAL_PRIORITY_HIGH", priority.High),
						Urgent: getString("NOTION_PERSONAL_PRIORITY_URGENT", priority.Urgent),
					},
				},
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:          getBool("SCHEDULER_ENABLED", true),
			Timezone:         getString("SCHEDULER_TIMEZONE", "Asia/Tokyo"),
			SyncTeamCron:     getString("SCHEDULER_SYNC_TEAM_CRON", "*/15 * * * *"),
			SyncPersonalCron: getString("SCHEDULER_SYNC_PERSONAL_CRON", "*/15 * * * *"),
			DueCron:          getString("SCHEDULER_DUE_CRON", "0 9 * * *"),
			OverdueCron:      getString("SCHEDULER_OVERDUE_CRON", "0 9,18 * * *"),
			SummaryCron:      getString("SCHEDULER_SUMMARY_CRON", "0 8 * * 1-5"),
			PruneCron:        getString("SCHEDULER_PRUNE_CRON", "30 3 * * *"),
		},
		Redis: RedisConfig{
			URL:            os.Getenv("REDIS_URL"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             getInt("REDIS_DB", 0),
			IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 7*24*time.Hour),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskhub"),
		},
		History: HistoryConfig{
			Path:           getString("HISTORY_PATH", "./data/history.db"),
			RetentionHours: getInt("HISTORY_RETENTION_HOURS", 24*14),
		},
		Mention: MentionConfig{
			TitleMaxLength: getInt("MENTION_TITLE_MAX", 100),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:    getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Sync: SyncConfig{
			StaleAfter: getDuration("SYNC_STALE_AFTER", time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

var validate = validator.New()

// Validate checks struct constraints and the scheduler time zone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getOptional distinguishes an explicitly empty variable (column absent)
// from an unset one.
func getOptional(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

// Location resolves the scheduler time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
