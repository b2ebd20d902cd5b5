package main

import (
	"net/http"
	"path/filepath"

	"github.com/digitalka/monthly-sales/admin"
	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func newRouter(uploadsDir string, adminHandler *admin.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger.Named("http")))
	r.Use(logging.PanicRecover(logger))

	// Only the exported report is public; the rest of the uploads directory is not
	reportFile := filepath.Join(uploadsDir, consts.ReportFileName)
	r.Get(consts.UploadsRoutePath+"/"+consts.ReportFileName, func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, reportFile)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, consts.ReportPagePath, http.StatusFound)
	})
	adminHandler.Register(r)
	return r
}
