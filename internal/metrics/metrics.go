// Package metrics - Prometheus-метрики приложения: HTTP-запросы, созданные модели,
// отклоненные загрузки.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics держит собственный реестр, чтобы тесты не делили глобальное состояние.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	modelsCreated       *prometheus.CounterVec
	uploadsRejected     *prometheus.CounterVec
	registrations       prometheus.Counter
	logins              *prometheus.CounterVec
}

// New регистрирует метрики приложения и стандартные коллекторы Go и процесса.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapeshift_http_requests_total",
				Help: "Общее количество HTTP-запросов",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shapeshift_http_request_duration_seconds",
				Help:    "Длительность HTTP-запросов в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		modelsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapeshift_models_created_total",
				Help: "Количество созданных моделей по типу (upload, draw)",
			},
			[]string{"type"},
		),
		uploadsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapeshift_uploads_rejected_total",
				Help: "Количество отклоненных загрузок по причине",
			},
			[]string{"reason"},
		),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shapeshift_registrations_total",
			Help: "Количество успешных регистраций",
		}),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shapeshift_logins_total",
				Help: "Попытки входа по результату (success, failure)",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.modelsCreated,
		m.uploadsRejected,
		m.registrations,
		m.logins,
	)
	return m
}

// Middleware собирает метрики запросов. В качестве метки используется шаблон маршрута
// gin (c.FullPath()), а не сырой путь, чтобы не раздувать кардинальность.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler отдает метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ModelCreated учитывает созданную модель типа upload или draw.
func (m *Metrics) ModelCreated(modelType string) {
	m.modelsCreated.WithLabelValues(modelType).Inc()
}

// UploadRejected учитывает отклоненную загрузку с причиной reason.
func (m *Metrics) UploadRejected(reason string) {
	m.uploadsRejected.WithLabelValues(reason).Inc()
}

// Registered учитывает успешную регистрацию.
func (m *Metrics) Registered() {
	m.registrations.Inc()
}

// Login учитывает попытку входа.
func (m *Metrics) Login(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}
