package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/ldapsh/pkg/catalog"
	"github.com/psaab/ldapsh/pkg/queryhistory"
	"github.com/psaab/ldapsh/pkg/session"
)

// sessionCollector implements prometheus.Collector, reading the session and
// query history on each scrape.
type sessionCollector struct {
	ctx  *session.Context
	hist *queryhistory.Store

	commandsTotal      *prometheus.Desc
	commandErrorsTotal *prometheus.Desc
	historyEntries     *prometheus.Desc
	lastResultEntries  *prometheus.Desc

	connected     *prometheus.Desc
	authenticated *prometheus.Desc
	tls           *prometheus.Desc

	queryHistoryEntries *prometheus.Desc
}

func newCollector(ctx *session.Context, hist *queryhistory.Store) *sessionCollector {
	labels := prometheus.Labels{"session": ctx.ID()}
	return &sessionCollector{
		ctx:  ctx,
		hist: hist,

		commandsTotal: prometheus.NewDesc(
			"ldapsh_commands_total",
			"Commands entered, by leading word. Words outside the command catalog count as \"other\".",
			[]string{"command"}, labels,
		),
		commandErrorsTotal: prometheus.NewDesc(
			"ldapsh_command_errors_total",
			"Commands that failed.",
			nil, labels,
		),
		historyEntries: prometheus.NewDesc(
			"ldapsh_history_entries",
			"Lines held in the session command history.",
			nil, labels,
		),
		lastResultEntries: prometheus.NewDesc(
			"ldapsh_last_result_entries",
			"Entries returned by the most recent search.",
			nil, labels,
		),
		connected: prometheus.NewDesc(
			"ldapsh_session_connected",
			"Whether the session holds a directory connection.",
			nil, labels,
		),
		authenticated: prometheus.NewDesc(
			"ldapsh_session_authenticated",
			"Whether the connection is bound with credentials.",
			nil, labels,
		),
		tls: prometheus.NewDesc(
			"ldapsh_session_tls",
			"Whether the connection uses TLS.",
			nil, labels,
		),
		queryHistoryEntries: prometheus.NewDesc(
			"ldapsh_query_history_entries",
			"Remembered values per query history category.",
			[]string{"category"}, labels,
		),
	}
}

func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commandsTotal
	ch <- c.commandErrorsTotal
	ch <- c.historyEntries
	ch <- c.lastResultEntries
	ch <- c.connected
	ch <- c.authenticated
	ch <- c.tls
	ch <- c.queryHistoryEntries
}

func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	counts := make(map[string]int)
	for name, n := range c.ctx.Frequencies() {
		if _, ok := catalog.Lookup(name); !ok {
			name = "other"
		}
		counts[name] += n
	}
	for name, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.commandsTotal, prometheus.CounterValue, float64(n), name)
	}

	ch <- prometheus.MustNewConstMetric(c.commandErrorsTotal, prometheus.CounterValue,
		float64(len(c.ctx.Errors())))
	ch <- prometheus.MustNewConstMetric(c.historyEntries, prometheus.GaugeValue,
		float64(c.ctx.HistoryLen()))

	var results int
	if rs := c.ctx.Current().Results; rs != nil {
		results = rs.Len()
	}
	ch <- prometheus.MustNewConstMetric(c.lastResultEntries, prometheus.GaugeValue, float64(results))

	st := c.ctx.State()
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(st.Connected))
	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, boolValue(st.Authenticated))
	ch <- prometheus.MustNewConstMetric(c.tls, prometheus.GaugeValue, boolValue(st.TLS))

	if c.hist != nil {
		for _, cat := range queryhistory.Categories {
			ch <- prometheus.MustNewConstMetric(c.queryHistoryEntries, prometheus.GaugeValue,
				float64(c.hist.Len(cat)), string(cat))
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
