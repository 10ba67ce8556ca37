package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheLookup(t *testing.T) {
	beforeHit := testutil.ToFloat64(CacheRequests.WithLabelValues("memory", "hit"))
	beforeMiss := testutil.ToFloat64(CacheRequests.WithLabelValues("memory", "miss"))

	RecordCacheLookup("memory", true)
	RecordCacheLookup("memory", false)
	RecordCacheLookup("memory", false)

	if got := testutil.ToFloat64(CacheRequests.WithLabelValues("memory", "hit")) - beforeHit; got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(CacheRequests.WithLabelValues("memory", "miss")) - beforeMiss; got != 2 {
		t.Errorf("expected 2 misses, got %v", got)
	}
}

func TestRecordPairWrites(t *testing.T) {
	before := testutil.ToFloat64(PairWrites.WithLabelValues("swapped"))

	RecordPairWrites(1, 2, 3, 4)

	if got := testutil.ToFloat64(PairWrites.WithLabelValues("swapped")) - before; got != 3 {
		t.Errorf("expected 3 swapped writes, got %v", got)
	}
}

func TestRecordRecalc(t *testing.T) {
	before := testutil.CollectAndCount(RecalcDuration)
	RecordRecalc(true, 10*time.Millisecond)
	RecordRecalc(false, 10*time.Millisecond)
	if after := testutil.CollectAndCount(RecalcDuration); after < before {
		t.Errorf("expected histogram series to be registered, got %d", after)
	}
}
