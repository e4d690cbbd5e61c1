package promclient

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var OpenBookSubscriptionsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "bitfinex_open_book_subscriptions",
		Help: "number of order book channels with a confirmed subscription",
	},
)

var DispatchedFramesCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitfinex_dispatched_frames_total",
		Help: "inbound frames fully classified and dispatched",
	},
)

var DroppedFramesCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bitfinex_dropped_frames_total",
		Help: "inbound frames dropped: decode failures and unknown channel ids",
	},
)

func StartPromClientServer() {
	reg := prometheus.NewRegistry()
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	reg.MustRegister(OpenBookSubscriptionsGauge)
	reg.MustRegister(DispatchedFramesCounter)
	reg.MustRegister(DroppedFramesCounter)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promHandler)
	log.Printf("prometheus server listening at :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
