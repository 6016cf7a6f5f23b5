package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mouaalim/mouaalim-backend/internal/platform/envutil"
)

// Config carries the tutoring policy knobs. Values come from defaults,
// then an optional YAML file (CONFIG_PATH or ./config.yaml), then
// environment overrides for the few deploy-sensitive fields.
type Config struct {
	Server     Server     `yaml:"server"`
	Resolver   Resolver   `yaml:"resolver"`
	Retrieval  Retrieval  `yaml:"retrieval"`
	Context    Context    `yaml:"context"`
	Quiz       Quiz       `yaml:"quiz"`
	Generation Generation `yaml:"generation"`
	Embedding  Embedding  `yaml:"embedding"`
	Report     Report     `yaml:"report"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Resolver struct {
	// Minimum cosine similarity accepted before falling back to manual
	// topic selection.
	Threshold float64 `yaml:"threshold"`
}

type Retrieval struct {
	FetchK          int    `yaml:"fetch_k"`
	RerankK         int    `yaml:"rerank_k"`
	RerankerURL     string `yaml:"reranker_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type Context struct {
	SummaryChunkCap int `yaml:"summary_chunk_cap"`
	QuizChunkCap    int `yaml:"quiz_chunk_cap"`
}

type Quiz struct {
	DefaultMC     int     `yaml:"default_mc"`
	DefaultTF     int     `yaml:"default_tf"`
	PassRatio     float64 `yaml:"pass_ratio"`
	PerfectNote   string  `yaml:"perfect_note"`
	PassNote      string  `yaml:"pass_note"`
	EncourageNote string  `yaml:"encourage_note"`
}

type Generation struct {
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type Embedding struct {
	Provider string `yaml:"provider"` // "genai" | "ollama"
	Model    string `yaml:"model"`
}

type Report struct {
	FontPath   string  `yaml:"font_path"`
	FontName   string  `yaml:"font_name"`
	ImageDir   string  `yaml:"image_dir"`
	LessonsDir string  `yaml:"lessons_dir"`
	ReportsDir string  `yaml:"reports_dir"`
	MaxImageW  float64 `yaml:"max_image_w"`
	MaxImageH  float64 `yaml:"max_image_h"`
}

func Default() Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Resolver.Threshold = 0.25
	c.Retrieval.FetchK = 8
	c.Retrieval.RerankK = 3
	c.Retrieval.CacheTTLSeconds = 600
	c.Retrieval.TimeoutSeconds = 20
	c.Context.SummaryChunkCap = 20
	c.Context.QuizChunkCap = 30
	c.Quiz.DefaultMC = 6
	c.Quiz.DefaultTF = 4
	c.Quiz.PassRatio = 0.7
	c.Quiz.PerfectNote = "ممتاز! 🌟 حافظ على هذا المستوى!"
	c.Quiz.PassNote = "عمل طيب! راجع الأخطاء وحاول مرة أخرى."
	c.Quiz.EncourageNote = "لا تقلق، الأهم هو المحاولة. سنراجع معًا. 💪"
	c.Generation.Model = "gemini-2.0-flash"
	c.Generation.Temperature = 0.5
	c.Generation.MaxTokens = 4000
	c.Generation.TimeoutSeconds = 120
	c.Embedding.Provider = "genai"
	c.Embedding.Model = "gemini-embedding-001"
	c.Report.FontPath = "config_files/NotoNaskhArabic-Regular.ttf"
	c.Report.FontName = "notoarabic"
	c.Report.ImageDir = "config_files/book_images"
	c.Report.LessonsDir = "lessons"
	c.Report.ReportsDir = "reports"
	c.Report.MaxImageW = 180
	c.Report.MaxImageH = 140
	return c
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = envutil.String("CONFIG_PATH", "config.yaml")
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env are enough
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.Server.Addr = envutil.String("SERVER_ADDR", cfg.Server.Addr)
	cfg.Retrieval.RerankerURL = envutil.String("RERANKER_URL", cfg.Retrieval.RerankerURL)
	cfg.Embedding.Provider = envutil.String("EMBED_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = envutil.String("EMBED_MODEL", cfg.Embedding.Model)
	cfg.Generation.Model = envutil.String("GENERATION_MODEL", cfg.Generation.Model)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Resolver.Threshold < 0 || cfg.Resolver.Threshold > 1 {
		return fmt.Errorf("config: resolver.threshold must be within [0,1], got %v", cfg.Resolver.Threshold)
	}
	if cfg.Quiz.PassRatio < 0 || cfg.Quiz.PassRatio > 1 {
		return fmt.Errorf("config: quiz.pass_ratio must be within [0,1], got %v", cfg.Quiz.PassRatio)
	}
	if cfg.Retrieval.FetchK <= 0 || cfg.Retrieval.RerankK <= 0 {
		return fmt.Errorf("config: retrieval fetch_k and rerank_k must be positive")
	}
	if cfg.Retrieval.RerankK > cfg.Retrieval.FetchK {
		return fmt.Errorf("config: retrieval rerank_k cannot exceed fetch_k")
	}
	if cfg.Context.SummaryChunkCap <= 0 || cfg.Context.QuizChunkCap <= 0 {
		return fmt.Errorf("config: context chunk caps must be positive")
	}
	return nil
}
