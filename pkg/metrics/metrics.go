package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HistogramBuckets spreads from fast API responses up to slow generation
// calls (the analyze endpoint can legitimately take tens of seconds).
var HistogramBuckets = []float64{
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	750, 1000, 1500, 2000,
	3000, 5000, 7500, 10000, 15000,
	20000, 30000, 45000, 60000, 90000, 120000,
}

type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	log    *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Prometheus {
	p := &Prometheus{
		reqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "req_total",
			Help: "How many HTTP requests processed, partitioned by status code, method and route.",
		}, []string{"code", "method", "url"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "req_dur_ms",
			Help:    "The HTTP request latencies in milliseconds.",
			Buckets: HistogramBuckets,
		}, []string{"code", "method", "url"}),
		log: log,
	}
	prometheus.MustRegister(p.reqCnt, p.reqDur)
	return p
}

// Middleware records request count and latency per route.
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		url := c.FullPath()
		if url == "" {
			url = c.Request.URL.Path
		}
		code := strconv.Itoa(c.Writer.Status())
		p.reqCnt.WithLabelValues(code, c.Request.Method, url).Inc()
		p.reqDur.WithLabelValues(code, c.Request.Method, url).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// Serve exposes /metrics on its own listener so scrapes never contend with
// API traffic.
func (p *Prometheus) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			p.log.Errorf("metrics listener error: %v", err)
		}
	}()
}
