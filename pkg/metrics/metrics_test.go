package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

		Convey("When lookup events are recorded", func() {
			m.RecordLookupEvent("fired")
			m.RecordLookupEvent("fired")
			m.RecordLookupEvent("discarded")

			Convey("Then each kind is counted separately", func() {
				So(testutil.ToFloat64(m.lookupEvents.WithLabelValues("fired")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.lookupEvents.WithLabelValues("discarded")), ShouldEqual, 1)
			})
		})

		Convey("When history and cache outcomes are recorded", func() {
			m.RecordHistoryOperation("insert")
			m.RecordHistoryOperation("increment")
			m.RecordHistoryOperation("increment")
			m.RecordCacheLookup("flights", true)
			m.RecordCacheLookup("flights", false)

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.historyOperations.WithLabelValues("increment")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.cacheLookups.WithLabelValues("flights", "hit")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cacheLookups.WithLabelValues("flights", "miss")), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			m.RecordSearch("ok", 3)
			m.SetLookupSessions(4)
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition contains the namespaced series", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := rec.Body.String()
				So(body, ShouldContainSubstring, `test_search_requests_total{outcome="ok"} 1`)
				So(body, ShouldContainSubstring, "test_lookup_sessions 4")
				So(strings.Contains(body, "go_goroutines"), ShouldBeFalse)
			})
		})
	})

	Convey("Given the global manager", t, func() {
		So(func() {
			RecordProviderRequest("demo", "flights", "ok", 12)
			RecordHTTPRequest("/health", http.MethodGet, "200", 1)
			RecordPersistenceError("search_history")
		}, ShouldNotPanic)
		So(GetRegistry(), ShouldNotBeNil)
	})
}
