package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the classification service
// and its command line tools.
type Config struct {
	AppName  string
	AppEnv   string
	AppPort  string
	LogLevel string

	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	EventsChannel string
	CacheTTL      time.Duration

	JWTSecret       string
	CORSOrigins     string
	RateLimitMax    int
	RateLimitWindow time.Duration

	Model   ModelConfig
	Masking MaskingConfig
	NER     NERConfig
	Train   TrainConfig
}

// ModelConfig locates the fitted artifacts and the category tables used by
// each entry point.
type ModelConfig struct {
	VectorizerPath  string
	KMeansPath      string
	APICategories   string
	BatchCategories string
}

// MaskingConfig tunes the reconciler.
type MaskingConfig struct {
	OverlapPolicy  string
	DisabledLabels []string
}

// NERConfig selects the person-name backend.
type NERConfig struct {
	Backend     string // "heuristic" or "onnx"
	ModelPath   string
	VocabPath   string
	LabelsPath  string
	RuntimePath string
	Lowercase   bool
	MaxSequence int
	ExtraNames  []string
}

// TrainConfig drives the training entry point.
type TrainConfig struct {
	DatasetPath string
	TextColumn  string
	NClusters   int
	MaxIter     int
	Seed        int64
	OutputDir   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables, an optional
// .env file and an optional config file named by MAILSORT_CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MAILSORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Email Classification API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "7860")
	v.SetDefault("log.level", "info")
	v.SetDefault("events.channel", "mailsort")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("ratelimit.max", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("model.vectorizer_path", "tfidf_vectorizer.json")
	v.SetDefault("model.kmeans_path", "email_kmeans.json")
	v.SetDefault("categories.api", "0:Incident,1:Request,2:Change,3:Problem")
	v.SetDefault("categories.batch", "0:Request,1:Incident,2:Change,3:Problem")
	v.SetDefault("masking.overlap_policy", "legacy")
	v.SetDefault("masking.disabled_labels", "")
	v.SetDefault("ner.backend", "heuristic")
	v.SetDefault("ner.model_path", "models/ner/model.onnx")
	v.SetDefault("ner.vocab_path", "models/ner/vocab.txt")
	v.SetDefault("ner.labels_path", "models/ner/labels.json")
	v.SetDefault("ner.runtime_path", "models/ner/libonnxruntime.so")
	v.SetDefault("ner.lowercase", false)
	v.SetDefault("ner.max_sequence", 128)
	v.SetDefault("ner.extra_names", "")
	v.SetDefault("train.dataset_path", "email_dataset.csv")
	v.SetDefault("train.text_column", "email")
	v.SetDefault("train.n_clusters", 4)
	v.SetDefault("train.max_iter", 300)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.output_dir", ".")

	if file := strings.TrimSpace(os.Getenv("MAILSORT_CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cacheTTL, err := parseDuration(v, "cache.ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "ratelimit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		EventsChannel:   v.GetString("events.channel"),
		CacheTTL:        cacheTTL,
		JWTSecret:       v.GetString("auth.jwt_secret"),
		CORSOrigins:     v.GetString("cors.allow_origins"),
		RateLimitMax:    v.GetInt("ratelimit.max"),
		RateLimitWindow: window,
		Model: ModelConfig{
			VectorizerPath:  v.GetString("model.vectorizer_path"),
			KMeansPath:      v.GetString("model.kmeans_path"),
			APICategories:   v.GetString("categories.api"),
			BatchCategories: v.GetString("categories.batch"),
		},
		Masking: MaskingConfig{
			OverlapPolicy:  strings.ToLower(v.GetString("masking.overlap_policy")),
			DisabledLabels: splitList(v.GetString("masking.disabled_labels")),
		},
		NER: NERConfig{
			Backend:     strings.ToLower(v.GetString("ner.backend")),
			ModelPath:   v.GetString("ner.model_path"),
			VocabPath:   v.GetString("ner.vocab_path"),
			LabelsPath:  v.GetString("ner.labels_path"),
			RuntimePath: v.GetString("ner.runtime_path"),
			Lowercase:   v.GetBool("ner.lowercase"),
			MaxSequence: v.GetInt("ner.max_sequence"),
			ExtraNames:  splitList(v.GetString("ner.extra_names")),
		},
		Train: TrainConfig{
			DatasetPath: v.GetString("train.dataset_path"),
			TextColumn:  v.GetString("train.text_column"),
			NClusters:   v.GetInt("train.n_clusters"),
			MaxIter:     v.GetInt("train.max_iter"),
			Seed:        v.GetInt64("train.seed"),
			OutputDir:   v.GetString("train.output_dir"),
		},
	}

	if cfg.RateLimitMax < 0 {
		cfg.RateLimitMax = 0
	}
	if cfg.Train.NClusters <= 0 {
		return Config{}, fmt.Errorf("train.n_clusters must be positive")
	}
	switch cfg.NER.Backend {
	case "heuristic", "onnx", "none":
	default:
		return Config{}, fmt.Errorf("unknown ner backend %q", cfg.NER.Backend)
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
