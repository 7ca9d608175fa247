package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		ExternalAPI struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"externalAPI"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
		Redis struct {
			Host     string `mapstructure:"host"`
			Port     string `mapstructure:"port"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			Channel  string `mapstructure:"channel"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Storage struct {
		// Driver is "postgres" or "memory".
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	Generation      GenerationConfig      `mapstructure:"generation"`
	Scheduler       SchedulerConfig       `mapstructure:"scheduler"`
	Scoring         ScoringConfig         `mapstructure:"scoring"`
	Proposer        ProposerConfig        `mapstructure:"proposer"`
	Enrichment      EnrichmentConfig      `mapstructure:"enrichment"`
	Recommendations RecommendationsConfig `mapstructure:"recommendations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	DB       string `mapstructure:"db"`
	SSLMODE  string `mapstructure:"SSLMODE"`
	Pool     struct {
		MaxConns          int32         `mapstructure:"maxConns"`
		MinConns          int32         `mapstructure:"minConns"`
		MaxConnLifetime   time.Duration `mapstructure:"maxConnLifetime"`
		MaxConnIdleTime   time.Duration `mapstructure:"maxConnIdleTime"`
		HealthCheckPeriod time.Duration `mapstructure:"healthCheckPeriod"`
		ConnectTimeout    time.Duration `mapstructure:"connectTimeout"`
	} `mapstructure:"pool"`
	// ConnectAttempts bounds the startup ping loop.
	ConnectAttempts uint `mapstructure:"connectAttempts"`
}

type GenerationConfig struct {
	MaxRetryAttempts    int  `mapstructure:"maxRetryAttempts"`
	Workers             int  `mapstructure:"workers"`
	QueueSize           int  `mapstructure:"queueSize"`
	MinMealCandidates   int  `mapstructure:"minMealCandidates"`
	DetailConcurrency   int  `mapstructure:"detailConcurrency"`
	StatusWriteAttempts uint `mapstructure:"statusWriteAttempts"`
}

type Window struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type SchedulerConfig struct {
	StartTimes struct {
		Early string `mapstructure:"early"`
		Mid   string `mapstructure:"mid"`
		Late  string `mapstructure:"late"`
	} `mapstructure:"startTimes"`
	// DayEnds and DailyCaps are indexed by energy level 1..3.
	DayEnds     []string `mapstructure:"dayEnds"`
	DailyCaps   []int    `mapstructure:"dailyCaps"`
	MealWindows struct {
		Breakfast Window `mapstructure:"breakfast"`
		Lunch     Window `mapstructure:"lunch"`
		Dinner    Window `mapstructure:"dinner"`
	} `mapstructure:"mealWindows"`
	TravelBufferMinutes   int   `mapstructure:"travelBufferMinutes"`
	MaxTripDays           int   `mapstructure:"maxTripDays"`
	AssumeOpenWhenUnknown *bool `mapstructure:"assumeOpenWhenUnknown"`
}

type ScoringConfig struct {
	Weights struct {
		Interest  float64 `mapstructure:"interest"`
		Price     float64 `mapstructure:"price"`
		Quality   float64 `mapstructure:"quality"`
		Crowd     float64 `mapstructure:"crowd"`
		TimeOfDay float64 `mapstructure:"timeOfDay"`
		Proximity float64 `mapstructure:"proximity"`
	} `mapstructure:"weights"`
	ReviewSaturation  int     `mapstructure:"reviewSaturation"`
	ProximityRadiusKm float64 `mapstructure:"proximityRadiusKm"`
}

type ProposerConfig struct {
	// Driver is "gemini" or "pool".
	Driver            string  `mapstructure:"driver"`
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"apiKey"`
	Temperature       float32 `mapstructure:"temperature"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
	Attempts          uint    `mapstructure:"attempts"`
	MaxCandidates     int     `mapstructure:"maxCandidates"`
}

type EnrichmentConfig struct {
	// Driver is "http", "store" or "none".
	Driver    string        `mapstructure:"driver"`
	BaseURL   string        `mapstructure:"baseURL"`
	APIKey    string        `mapstructure:"apiKey"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Attempts  uint          `mapstructure:"attempts"`
	CacheTTL  time.Duration `mapstructure:"cacheTTL"`
	CacheSize int           `mapstructure:"cacheSize"`
}

type RecommendationsConfig struct {
	CacheTTL     time.Duration `mapstructure:"cacheTTL"`
	DefaultLimit int           `mapstructure:"defaultLimit"`
	MaxLimit     int           `mapstructure:"maxLimit"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Environment overrides, e.g. REPOSITORIES_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("proposer.apiKey", "GOOGLE_GEMINI_API_KEY")
	_ = v.BindEnv("auth.jwtSecret", "JWT_SECRET_KEY")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
