package consts

import "time"

// Server configuration
const (
	DefaultPort         = "8080"
	ReadHeaderTimeout   = 3 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ExportRateRequests  = 5
	ExportRateWindow    = time.Minute
	DefaultSessionTTL   = 24 * time.Hour
	SessionCookieName   = "wc_monthly_sales_session"
	DefaultStoreDriver  = "sqlite"
	DefaultDatabaseFile = "orders.db"
)

// Scheduled export
const (
	ExportTaskName   = "wc_monthly_sales_report_cron_hook"
	CronDailyExport  = "15 0 * * *" // Daily at 00:15 UTC
	DefaultLogLevel  = "info"
	DefaultCurrency  = "CZK"
	DefaultLocale    = "cs"
	CancelledStatus  = "wc-cancelled"
	ManualExportName = "wc_manual_export_csv"
)

// Admin surface
const (
	ReportPagePath    = "/admin/sales-report"
	AdminPostPath     = "/admin/post"
	UploadsRoutePath  = "/uploads"
	ActionField       = "action"
	NonceField        = "wc_manual_export_csv_nonce"
	ExportQueryParam  = "export"
	ExportSuccessFlag = "success"
	PageTitle         = "Woocommerce - Měsíční prodeje"
	MenuTitle         = "Měsíční prodeje"
	ExportButtonLabel = "Manuálně aktualizovat CSV"
)

// File paths and directories
const (
	UploadsDir     = "uploads"
	ReportFileName = "woocommerce-monthly-sales-report.csv"
)

// File permissions
const (
	DirPermissions  = 0750
	FilePermissions = 0644
)

// CSV layout
const (
	CSVMonthHeader = "Month"
	CSVTotalHeader = "Total Sales"
)

// Date formats
const (
	PeriodFormat   = "2006-01"
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)

// Chart configuration
const (
	ChartWidth           = "1200px"
	ChartHeight          = "400px"
	ChartBackgroundColor = "#ffffff"
	ChartTextColor       = "#000000"
	ChartBarColor        = "#2271b1"
	EChartsAssetURL      = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"
)
