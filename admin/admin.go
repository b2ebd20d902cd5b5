package admin

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/digitalka/monthly-sales/charts"
	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	"github.com/digitalka/monthly-sales/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templatesFS, "templates/report.html"))

type SalesSource interface {
	Compute(ctx context.Context) (report.MonthlySales, error)
}

type Exporter interface {
	Run(ctx context.Context) error
}

type Handler struct {
	sales    SalesSource
	exporter Exporter
	sessions *session.Manager
	money    *MoneyFormatter
	fileURL  string
	logger   *zap.Logger
}

func New(
	sales SalesSource,
	exporter Exporter,
	sessions *session.Manager,
	money *MoneyFormatter,
	fileURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sales:    sales,
		exporter: exporter,
		sessions: sessions,
		money:    money,
		fileURL:  fileURL,
		logger:   logger,
	}
}

// Register mounts the report page and the form endpoint. Form posts are rate limited per IP.
func (h *Handler) Register(r chi.Router) {
	r.Get(consts.ReportPagePath, h.ReportPage)
	limiter := httprate.NewRateLimiter(consts.ExportRateRequests, consts.ExportRateWindow, httprate.WithKeyByIP())
	r.With(limiter.Handler).Post(consts.AdminPostPath, h.AdminPost)
}

type row struct {
	Period string
	Total  string
}

type pageData struct {
	Title         string
	FileURL       string
	PostURL       string
	ActionField   string
	Action        string
	NonceField    string
	Nonce         string
	ButtonLabel   string
	Success       bool
	Rows          []row
	ChartOptions  template.JS
	ChartAssetURL string
	ChartWidth    string
	ChartHeight   string
}

// ReportPage renders the monthly totals, recomputed on every view.
func (h *Handler) ReportPage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Load(w, r)
	if err != nil {
		h.logger.Error("Error loading session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	nonce, err := h.sessions.Token(sess, consts.ManualExportName)
	if err != nil {
		h.logger.Error("Error issuing form token", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sales, err := h.sales.Compute(r.Context())
	if err != nil {
		h.logger.Error("Error computing monthly sales", zap.Error(err))
		http.Error(w, "Failed to load data", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:         consts.PageTitle,
		FileURL:       h.fileURL,
		PostURL:       consts.AdminPostPath,
		ActionField:   consts.ActionField,
		Action:        consts.ManualExportName,
		NonceField:    consts.NonceField,
		Nonce:         nonce,
		ButtonLabel:   consts.ExportButtonLabel,
		Success:       r.URL.Query().Get(consts.ExportQueryParam) == consts.ExportSuccessFlag,
		ChartAssetURL: consts.EChartsAssetURL,
		ChartWidth:    consts.ChartWidth,
		ChartHeight:   consts.ChartHeight,
	}
	for _, pt := range sales {
		data.Rows = append(data.Rows, row{Period: pt.Period, Total: h.money.Format(pt.Total)})
	}
	chartOptions, err := charts.OptionsJSON(sales, h.money.Currency())
	if err != nil {
		h.logger.Warn("Error building sales chart", zap.Error(err))
	}
	data.ChartOptions = template.JS(chartOptions)

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("Error rendering report page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// AdminPost dispatches admin form submissions on their action field.
func (h *Handler) AdminPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	switch r.PostForm.Get(consts.ActionField) {
	case consts.ManualExportName:
		h.ManualExport(w, r)
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
	}
}

// ManualExport checks the anti-forgery token, exports synchronously and
// redirects back to the report page.
func (h *Handler) ManualExport(w http.ResponseWriter, r *http.Request) {
	nonce := r.PostFormValue(consts.NonceField)
	if err := h.sessions.Verify(r, consts.ManualExportName, nonce); err != nil {
		h.logger.Warn("Rejected manual export", zap.Error(err), zap.String("remote-addr", r.RemoteAddr))
		http.Error(w, "Security check failed", http.StatusForbidden)
		return
	}

	if err := h.exporter.Run(r.Context()); err != nil {
		h.logger.Error("Error exporting monthly sales report", zap.Error(err))
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	target := consts.ReportPagePath + "?" + url.Values{consts.ExportQueryParam: {consts.ExportSuccessFlag}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}
