package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	VideoUploadsTotal    prometheus.Counter
	VideoUploadSizeBytes prometheus.Histogram
	VideoDeletesTotal    prometheus.Counter
	VideoLikesTotal      prometheus.Counter
	VideoCommentsTotal   prometheus.Counter
}

// New registers every collector with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bemaster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bemaster_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		VideoUploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bemaster_video_uploads_total",
			Help: "Total number of videos created",
		}),
		VideoUploadSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bemaster_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		}),
		VideoDeletesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bemaster_video_deletes_total",
			Help: "Total number of videos deleted",
		}),
		VideoLikesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bemaster_video_likes_total",
			Help: "Total number of likes recorded",
		}),
		VideoCommentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bemaster_video_comments_total",
			Help: "Total number of comments posted",
		}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// VideoUploaded records a successful upload of size bytes.
func (m *Metrics) VideoUploaded(size int64) {
	if m == nil {
		return
	}
	m.VideoUploadsTotal.Inc()
	if size > 0 {
		m.VideoUploadSizeBytes.Observe(float64(size))
	}
}

func (m *Metrics) VideoDeleted() {
	if m == nil {
		return
	}
	m.VideoDeletesTotal.Inc()
}

func (m *Metrics) VideoLiked() {
	if m == nil {
		return
	}
	m.VideoLikesTotal.Inc()
}

func (m *Metrics) CommentPosted() {
	if m == nil {
		return
	}
	m.VideoCommentsTotal.Inc()
}
