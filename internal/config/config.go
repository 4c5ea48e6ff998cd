package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Security SecurityConfig
	Storage  StorageConfig
	Provider ProviderConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	LogLevel            string
	Environment         string
	BatchSize           int
	MaxBatchFiles       int
	HybridChunkSize     int
	SaldoTolerance      float64
	ConfidenceThreshold float64
	MinMatchConfidence  float64
	UseSmartMapper      bool
	UseHybridBankFlow   bool
	CORSOrigins         []string
}

type SecurityConfig struct {
	MaxFileSizeMB      int64
	MaxPdfPagesPerFile int
	AllowedExtensions  []string
	EnableVirusScan    bool
}

type StorageConfig struct {
	UploadDir  string
	ResultsDir string
	ExportsDir string
}

// ProviderConfig holds opaque credentials for the external OCR and LLM
// collaborators. Presence of Endpoint+APIKey gates the corresponding code
// path; the core never interprets the values.
type ProviderConfig struct {
	OCRCloudEndpoint string
	OCRCloudAPIKey   string
	SmartMapperURL   string
	SmartMapperKey   string
}

func Load() (*Config, error) {
	batchSize, err := strconv.Atoi(getEnv("BATCH_SIZE", "10000"))
	if err != nil {
		batchSize = 10000
	}

	maxBatchFiles, err := strconv.Atoi(getEnv("MAX_BATCH_FILES", "50"))
	if err != nil {
		maxBatchFiles = 50
	}

	chunkSize, err := strconv.Atoi(getEnv("HYBRID_CHUNK_SIZE", "50"))
	if err != nil {
		chunkSize = 50
	}

	saldoTolerance, err := strconv.ParseFloat(getEnv("SALDO_TOLERANCE", "0.01"), 64)
	if err != nil {
		saldoTolerance = 0.01
	}

	confidenceThreshold, err := strconv.ParseFloat(getEnv("CONFIDENCE_THRESHOLD", "0.90"), 64)
	if err != nil {
		confidenceThreshold = 0.90
	}

	minMatchConfidence, err := strconv.ParseFloat(getEnv("MIN_MATCH_CONFIDENCE", "0.70"), 64)
	if err != nil {
		minMatchConfidence = 0.70
	}

	maxFileSizeMB, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE_MB", "10"), 10, 64)
	if err != nil {
		maxFileSizeMB = 10
	}

	maxPdfPages, err := strconv.Atoi(getEnv("MAX_PDF_PAGES_PER_FILE", "30"))
	if err != nil {
		maxPdfPages = 30
	}

	enableVirusScan, _ := strconv.ParseBool(getEnv("ENABLE_VIRUS_SCAN", "false"))
	useSmartMapper, _ := strconv.ParseBool(getEnv("USE_SMART_MAPPER", "true"))
	useHybridBankFlow, _ := strconv.ParseBool(getEnv("USE_HYBRID_BANK_FLOW", "true"))

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "recon_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			LogLevel:            getEnv("LOG_LEVEL", "info"),
			Environment:         getEnv("ENVIRONMENT", "development"),
			BatchSize:           batchSize,
			MaxBatchFiles:       maxBatchFiles,
			HybridChunkSize:     chunkSize,
			SaldoTolerance:      saldoTolerance,
			ConfidenceThreshold: confidenceThreshold,
			MinMatchConfidence:  minMatchConfidence,
			UseSmartMapper:      useSmartMapper,
			UseHybridBankFlow:   useHybridBankFlow,
			CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "*")),
		},
		Security: SecurityConfig{
			MaxFileSizeMB:      maxFileSizeMB,
			MaxPdfPagesPerFile: maxPdfPages,
			AllowedExtensions:  splitCSV(getEnv("ALLOWED_EXTENSIONS", "pdf,png,jpg,jpeg,tiff,bmp,xlsx,xls")),
			EnableVirusScan:    enableVirusScan,
		},
		Storage: StorageConfig{
			UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),
			ResultsDir: getEnv("RESULTS_DIR", "./results"),
			ExportsDir: getEnv("EXPORTS_DIR", "./exports"),
		},
		Provider: ProviderConfig{
			OCRCloudEndpoint: getEnv("OCR_CLOUD_ENDPOINT", ""),
			OCRCloudAPIKey:   getEnv("OCR_CLOUD_API_KEY", ""),
			SmartMapperURL:   getEnv("SMART_MAPPER_URL", ""),
			SmartMapperKey:   getEnv("SMART_MAPPER_API_KEY", ""),
		},
	}, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
