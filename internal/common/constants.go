package common

// Dataset columns
const (
	ColSalePrice      = "SalePrice"
	ColPredictedPrice = "PredictedPrice"
	ColDiffPercent    = "DiffPercent"
	ColLogSalePrice   = "LogSalePrice"
	ColNeighborhood   = "Neighborhood"
	ColOverallQual    = "OverallQual"
	ColGrLivArea      = "GrLivArea"
	ColGarageCars     = "GarageCars"
	ColTotalBsmtSF    = "TotalBsmtSF"
	ColYearBuilt      = "YearBuilt"
)

// TargetColumns are never fed to the pipeline.
var TargetColumns = []string{ColSalePrice, ColPredictedPrice, ColDiffPercent, ColLogSalePrice}

// SliderFeatures are the inputs exposed on the predict page.
var SliderFeatures = []string{ColOverallQual, ColGrLivArea, ColGarageCars, ColTotalBsmtSF, ColYearBuilt}

// NeighborhoodAll disables the neighborhood filter.
const NeighborhoodAll = "All"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDatasetPath     = "DATASET_PATH"
	EnvDatasetDSN      = "DATASET_DSN"
	EnvDatasetTable    = "DATASET_TABLE"
	EnvModelKind       = "MODEL_KIND"
	EnvModelPath       = "MODEL_PATH"
	EnvPythonPath      = "PYTHON_PATH"
	EnvModelURL        = "MODEL_URL"
	EnvModelTimeout    = "MODEL_TIMEOUT"
	EnvDashboardPort   = "DASHBOARD_PORT"
	EnvMetricsPort     = "METRICS_PORT"
	EnvMLServerPort    = "ML_SERVER_PORT"
	EnvDataPath        = "DATA_PATH"
	EnvCacheSize       = "CACHE_SIZE"
	EnvCacheTTL        = "CACHE_TTL"
	EnvTopN            = "TOP_N"
	EnvDefaultMaxPrice = "DEFAULT_MAX_PRICE"
	EnvDefaultMinQual  = "DEFAULT_MIN_QUALITY"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// Model kinds
const (
	ModelKindLinear = "linear"
	ModelKindPython = "python"
	ModelKindRemote = "remote"
)

// Configuration defaults
const (
	DefaultDatasetPath   = "house_data_with_predictions.csv"
	DefaultDatasetTable  = "house_data_with_predictions"
	DefaultModelKind     = ModelKindLinear
	DefaultModelPath     = "models/best_pipeline.json"
	DefaultModelTimeout  = "10s"
	DefaultDashboardPort = 8501
	DefaultMetricsPort   = 9090
	DefaultCacheSize     = 1000
	DefaultCacheTTL      = "5m"
	DefaultTopN          = 5
	DefaultMaxPrice      = 300000.0
	DefaultMinQuality    = 5
	DefaultLogLevel      = "info"
	DefaultHistogramBins = 50
	DefaultTopFeatures   = 10
)

// Validation constants
const (
	MinPort       = 1024
	MaxPort       = 65535
	MinQuality    = 1
	MaxQuality    = 10
	MaxTopN       = 100
	MaxCacheSize  = 100000
)
