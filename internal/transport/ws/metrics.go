/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the three series the transport tracks: in-flight tool
// calls, per-tool call latency, and open files per server. They are
// process-global (one registry per codebuddy server instance, like
// every promauto.With(prometheus.DefaultRegisterer) user in the pack).
type metrics struct {
	toolCallsInFlight prometheus.Gauge
	toolCallSeconds   *prometheus.HistogramVec
	openFilesPerLang  *prometheus.GaugeVec
}

func newMetrics() *metrics {
	return &metrics{
		toolCallsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "codebuddy",
			Name:      "tool_calls_in_flight",
			Help:      "Number of tools/call requests currently being handled.",
		}),
		toolCallSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "codebuddy",
			Name:      "tool_call_duration_seconds",
			Help:      "Latency of tools/call requests, including downstream LSP time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		openFilesPerLang: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "codebuddy",
			Name:      "open_files",
			Help:      "Number of files currently open (didOpen sent, no matching didClose) per language server.",
		}, []string{"language"}),
	}
}
