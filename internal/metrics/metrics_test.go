package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetricsRecordDomainEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.VideoUploaded(2048)
	m.VideoLiked()
	m.VideoLiked()
	m.CommentPosted()
	m.VideoDeleted()
	m.ObserveRequest("GET", "/video/{id}", 200, 10*time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, reg, "bemaster_video_uploads_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "bemaster_video_likes_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "bemaster_video_comments_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "bemaster_video_deletes_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "bemaster_http_requests_total"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.VideoUploaded(1)
		m.VideoLiked()
		m.CommentPosted()
		m.VideoDeleted()
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}
