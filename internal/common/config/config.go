// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

// WhatsAppConfig holds the Cloud API credentials for outbound sends and
// webhook verification.
type WhatsAppConfig struct {
	AccessToken   string `mapstructure:"access_token"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	VerifyToken   string `mapstructure:"verify_token"`
	GraphBaseURL  string `mapstructure:"graph_base_url"`
	PublicBaseURL string `mapstructure:"public_base_url"` // rewrites menu PDF links when set
	SendTimeout   int    `mapstructure:"send_timeout"`    // milliseconds
}

// BackendConfig holds the restaurant order/cart API settings.
type BackendConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	TenantID     string `mapstructure:"tenant_id"`
	APIKey       string `mapstructure:"api_key"`
	RestaurantID int    `mapstructure:"restaurant_id"`
	Timeout      int    `mapstructure:"timeout"`       // milliseconds
	OrderTimeout int    `mapstructure:"order_timeout"` // milliseconds, order placement is slower
	AuditTimeout int    `mapstructure:"audit_timeout"` // milliseconds, best-effort log calls
}

// ClassifierConfig holds the structured-intent classifier API settings.
type ClassifierConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DedupConfig controls the inbound message dedup window and the address
// dedup coordinate precision.
type DedupConfig struct {
	TTL               int `mapstructure:"ttl"` // seconds
	CoordinatePlaces  int `mapstructure:"coordinate_places"`
	SweepEveryInserts int `mapstructure:"sweep_every_inserts"`
}

// RecommendConfig controls recommendation result sizing.
type RecommendConfig struct {
	Limit int `mapstructure:"limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
