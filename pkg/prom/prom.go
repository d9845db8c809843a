package prom

import (
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/session-ledger/pkg/http"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemTransactions = "transactions"
	SystemSessions     = "sessions"
	SystemStore        = "store"
)

const (
	MetricTransactionsCreated  = "created_total"
	MetricTransactionsReplayed = "replayed_total"
	MetricSessionsMinted       = "minted_total"
	MetricSessionsRejected     = "rejected_total"
	MetricStoreDurationSeconds = "duration_seconds"
	MetricStoreFailures        = "failures_total"
)

const (
	TypeCounter      = "counter"
	TypeCounterVec   = "counterVec"
	TypeHistogramVec = "histogramVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "none"

var MetricSystemEnabled = false

var registerer prometheus.Registerer = prometheus.DefaultRegisterer

var MetricCollectionCounters = make(map[string]prometheus.Counter)
var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers the ledger metrics and turns collection on.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = make(prometheus.Labels)
	defaultLabels["env"] = env
	defaultLabels["instance"] = host
	namespace = nameSpace

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(CreateMetric(TypeCounterVec, SystemTransactions, MetricTransactionsCreated, "type"))
	hasError(CreateMetric(TypeCounter, SystemTransactions, MetricTransactionsReplayed))
	hasError(CreateMetric(TypeCounter, SystemSessions, MetricSessionsMinted))
	hasError(CreateMetric(TypeCounter, SystemSessions, MetricSessionsRejected))
	hasError(CreateMetric(TypeHistogramVec, SystemStore, MetricStoreDurationSeconds, "operation"))
	hasError(CreateMetric(TypeCounterVec, SystemStore, MetricStoreFailures, "operation"))

	if err == nil {
		MetricSystemEnabled = true
	}
	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labelsValues ...string) error {
	switch metricType {
	case TypeCounter:
		return createCounter(metricSubsystem, metricName)
	case TypeCounterVec:
		return createCounterVec(metricSubsystem, metricName, labelsValues)
	case TypeHistogramVec:
		return createHistogramVec(metricSubsystem, metricName, labelsValues)
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

// ListenAndServer exposes the default registry on addr+url. It blocks.
func ListenAndServer(addr string, url string) {
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func createCounter(subsystem, name string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	})
	if err := registerer.Register(c); err != nil {
		return err
	}
	MetricCollectionCounters[subsystem+name] = c
	return nil
}

func createCounterVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
	}, labels)
	if err := registerer.Register(c); err != nil {
		return err
	}
	MetricCollectionCounterVec[subsystem+name] = c
	return nil
}

func createHistogramVec(subsystem, name string, labels []string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		ConstLabels: defaultLabels,
		Buckets:     prometheus.DefBuckets,
	}, labels)
	if err := registerer.Register(h); err != nil {
		return err
	}
	MetricCollectionHistogramVec[subsystem+name] = h
	return nil
}

func IncCounter(subsystem, name string) {
	AddCounter(subsystem, name, 1)
}

func AddCounter(subsystem, name string, number float64) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounters[subsystem+name]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncTransactionCreated(txType string) {
	IncCounterVec(SystemTransactions, MetricTransactionsCreated, txType)
}

func IncTransactionReplayed() {
	IncCounter(SystemTransactions, MetricTransactionsReplayed)
}

func IncSessionMinted() {
	IncCounter(SystemSessions, MetricSessionsMinted)
}

func IncSessionRejected() {
	IncCounter(SystemSessions, MetricSessionsRejected)
}

func ObserveStore(operation string, seconds float64, err error) {
	AddHistogramVec(SystemStore, MetricStoreDurationSeconds, seconds, operation)
	if err != nil {
		IncCounterVec(SystemStore, MetricStoreFailures, operation)
	}
}
