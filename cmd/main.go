package main

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

func initLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if level == "" {
		return
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("ignoring invalid log level [%s]", level)
		return
	}

	log.SetLevel(lvl)
}

func newRouter(svc *serviceContext) *gin.Engine {
	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	p := ginprometheus.NewPrometheus("gin")

	// roundabout setup of /metrics endpoint to avoid double-gzip of response
	router.Use(p.HandlerFunc())
	h := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}))

	router.GET(p.MetricsPath, func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})

	pprof.Register(router)

	router.GET("/favicon.ico", svc.ignoreHandler)

	router.GET("/version", svc.versionHandler)
	router.GET("/healthcheck", svc.healthCheckHandler)

	if api := router.Group("/api"); api != nil {
		api.POST("/search", svc.authenticateHandler, svc.searchHandler)
		api.POST("/search/fulltext", svc.authenticateHandler, svc.fullTextSearchHandler)
		api.GET("/facets", svc.authenticateHandler, svc.facetsHandler)
		api.POST("/documents", svc.authenticateHandler, svc.adminHandler, svc.addDocumentsHandler)
		api.DELETE("/documents", svc.authenticateHandler, svc.adminHandler, svc.clearDocumentsHandler)
	}

	router.Use(static.Serve("/assets", static.LocalFile("./assets", false)))

	return router
}

/**
 * Main entry point for the web service
 */
func main() {
	// a local .env is optional
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}

	log.Printf("===> solr-search-ws starting up <===")

	cfg := loadConfig()

	initLogging(cfg.Service.LogLevel)

	svc := initializeService(cfg, prometheus.DefaultRegisterer)

	gin.SetMode(gin.ReleaseMode)

	router := newRouter(svc)

	portStr := fmt.Sprintf(":%s", svc.config.Service.Port)
	log.Printf("Start service on %s", portStr)

	log.Fatal(router.Run(portStr))
}
