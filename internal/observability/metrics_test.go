package observability

import (
	"testing"
	"time"

	"github.com/danmuck/wadispatch/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("dispatch-a", "POST", "/api/messages", 200, 12*time.Millisecond)
	RecordSessionTransition("disconnected", "connecting")
	RecordDelivery("delivered", 2*time.Second)
}

func TestRecordDeliveryCountsByKind(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(deliveryOutcomes.WithLabelValues("send_failed"))
	RecordDelivery("send_failed", time.Second)
	RecordDelivery("send_failed", time.Second)
	after := testutil.ToFloat64(deliveryOutcomes.WithLabelValues("send_failed"))
	if after-before != 2 {
		t.Fatalf("expected two recorded outcomes, got delta=%v", after-before)
	}
}
