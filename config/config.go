package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvironmentProduction is the value of Config.Environment in production deployments
const EnvironmentProduction = "production"

// StoreDriverMongo selects the MongoDB store
const StoreDriverMongo = "mongo"

// StoreDriverSQLite selects the SQLite store, meant for local development
const StoreDriverSQLite = "sqlite"

// Config holds application configuration
type Config struct {
	// HTTPAddr is the HTTP server's bind address
	HTTPAddr string `default:":5000" split_words:"true" required:"true"`

	// Environment is the deployment environment. When set to "production"
	// admin self-provisioning and error details in responses are disabled.
	Environment string `default:"development" required:"true"`

	// PublicURL is the absolute URL at which this API can be reached by browsers.
	// Public URLs of stored objects are built from it.
	PublicURL string `default:"http://localhost:5000" split_words:"true" required:"true"`

	// CORSOrigin is sent as the Access-Control-Allow-Origin header
	CORSOrigin string `default:"*" envconfig:"CORS_ORIGIN"`

	// StoreDriver selects the database implementation, one of: "mongo", "sqlite"
	StoreDriver string `default:"mongo" split_words:"true" required:"true"`

	// DbHost is the MongoDB server host
	DbHost string `default:"localhost" split_words:"true"`

	// DbPort is the MongoDB server port
	DbPort int `default:"27017" split_words:"true"`

	// DbUser is the MongoDB user
	DbUser string `default:"cms-dev" split_words:"true"`

	// DbPassword is the MongoDB password
	DbPassword string `default:"secretpassword" split_words:"true"`

	// DbName is the database to connect to inside MongoDB
	DbName string `default:"cms-api-dev" split_words:"true"`

	// SQLitePath is the database file used when StoreDriver is "sqlite"
	SQLitePath string `default:"data/cms.db" envconfig:"SQLITE_PATH"`

	// StorageDir is the directory under which buckets are stored
	StorageDir string `default:"storage" split_words:"true" required:"true"`

	// StorageBucket is the name of the bucket images are uploaded to
	StorageBucket string `default:"images" split_words:"true" required:"true"`

	// AllowedImageTypes are the MIME types the bucket accepts
	AllowedImageTypes []string `default:"image/png,image/jpeg,image/webp,image/gif,image/avif" split_words:"true"`

	// MaxUploadBytes limits the size of multipart request bodies
	MaxUploadBytes int64 `default:"10485760" split_words:"true"`

	// SessionTTL is how long a session stays valid after it was last used
	SessionTTL time.Duration `default:"168h" envconfig:"SESSION_TTL"`

	// SessionCookieName is the name of the cookie which holds the session token
	SessionCookieName string `default:"cms_session" split_words:"true"`

	// AllowSelfAdminCreate lets authenticated users who are not in the admins
	// list add themselves on login, even in production
	AllowSelfAdminCreate bool `default:"false" split_words:"true"`

	// HighlightsLimit is the maximum number of highlights returned by the public list
	HighlightsLimit int64 `default:"5" split_words:"true"`

	// JobQueueSize is the number of jobs which can wait to be run
	JobQueueSize int `default:"16" split_words:"true"`

	// SessionCleanupInterval is how often expired sessions are deleted
	SessionCleanupInterval time.Duration `default:"1h" split_words:"true"`

	// OrphanCleanupInterval is how often unreferenced objects are removed from the bucket
	OrphanCleanupInterval time.Duration `default:"24h" split_words:"true"`

	// OrphanGracePeriod protects recently uploaded objects from the orphan cleanup
	OrphanGracePeriod time.Duration `default:"1h" split_words:"true"`
}

// NewConfig loads configuration values from environment variables
func NewConfig() (*Config, error) {
	var config Config

	if err := envconfig.Process("app", &config); err != nil {
		return nil, fmt.Errorf("error loading values from environment variables: %s",
			err.Error())
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration is invalid: %s", err.Error())
	}

	return &config, nil
}

// Validate checks constraints envconfig cannot express
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo, StoreDriverSQLite:
	default:
		return fmt.Errorf("StoreDriver must be one of \"%s\", \"%s\", was: \"%s\"",
			StoreDriverMongo, StoreDriverSQLite, c.StoreDriver)
	}

	u, err := url.Parse(c.PublicURL)
	if err != nil {
		return fmt.Errorf("failed to parse PublicURL: %s", err.Error())
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("PublicURL must have an http or https scheme, was: \"%s\"",
			c.PublicURL)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SessionTTL must be positive")
	}

	if len(c.AllowedImageTypes) == 0 {
		return fmt.Errorf("AllowedImageTypes cannot be empty")
	}

	return nil
}

// IsProduction returns true if running in the production environment
func (c Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// SelfAdminCreateAllowed indicates if users may add themselves to the admins list
func (c Config) SelfAdminCreateAllowed() bool {
	return !c.IsProduction() || c.AllowSelfAdminCreate
}

// String returns a log safe version of Config in string form. Redacts any sensative fields.
func (c Config) String() (string, error) {
	if c.DbPassword != "" {
		c.DbPassword = "REDACTED_NOT_EMPTY"
	}

	configBytes, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to convert configuration into JSON: %s", err.Error())
	}

	return string(configBytes), nil
}
