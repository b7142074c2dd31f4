package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jabolina/distcal/pkg/distcal/metrics"
)

func TestPrometheusRecordsObservations(t *testing.T) {
	rec := metrics.NewPrometheus("0")
	rec.InsertAccepted()
	rec.InsertRejected()
	rec.DeleteApplied()
	rec.MessageSent()
	rec.MessageReceived()
	rec.ConflictDetected()
	rec.LogTruncated()
	rec.LogSize(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	for _, want := range []string{
		`distcal_inserts_total{node="0",outcome="accepted"} 1`,
		`distcal_inserts_total{node="0",outcome="rejected"} 1`,
		`distcal_deletes_total{node="0"} 1`,
		`distcal_log_size{node="0"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestTwoNodesDoNotCollide(t *testing.T) {
	a := metrics.NewPrometheus("0")
	b := metrics.NewPrometheus("1")
	a.InsertAccepted()
	b.InsertAccepted()
	b.InsertAccepted()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	if !strings.Contains(body, `distcal_inserts_total{node="1",outcome="accepted"} 2`) {
		t.Fatalf("expected node 1's own registry to report 2 accepted inserts, got:\n%s", body)
	}
	if strings.Contains(body, `node="0"`) {
		t.Fatalf("node 1's registry must not contain node 0's series")
	}
}
