// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	// #nosec
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// relayNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	relayNamespace = "relay"

	// 以下为当前使用的通用标签名。
	roleLabelName   = "role"
	stageLabelName  = "stage"
	reasonLabelName = "reason"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// ConnectedSessions 按角色统计当前在线会话数。
	// 未确认角色的会话计入 "none"。
	ConnectedSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: relayNamespace,
			Name:      "connected_sessions",
			Help:      "number of connected sessions by role",
		}, []string{roleLabelName})

	// AdmissionDenied 统计被并发策略拒绝的角色申请次数。
	AdmissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: relayNamespace,
			Name:      "admission_denied_total",
			Help:      "number of role requests denied by the admission policy",
		}, []string{roleLabelName})

	// BroadcastMessages 统计进入广播通道的消息总数。
	BroadcastMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: relayNamespace,
			Name:      "broadcast_messages_total",
			Help:      "number of messages accepted for fan-out",
		})

	// DeliveryFailures 按失败原因统计丢弃的投递次数。
	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: relayNamespace,
			Name:      "delivery_failures_total",
			Help:      "number of per-recipient deliveries dropped",
		}, []string{reasonLabelName})

	// HistoryFailures 按阶段统计历史存储的失败次数。
	HistoryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: relayNamespace,
			Name:      "history_failures_total",
			Help:      "number of history store failures by stage",
		}, []string{stageLabelName})

	// HistoryReplayLatency 为历史回放快照的读取耗时，单位为毫秒。
	HistoryReplayLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: relayNamespace,
			Name:      "history_replay_latency",
			Help:      "latency in milliseconds of reading a replay snapshot",
			Buckets:   buckets,
		})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(ConnectedSessions)
	r.MustRegister(AdmissionDenied)
	r.MustRegister(BroadcastMessages)
	r.MustRegister(DeliveryFailures)
	r.MustRegister(HistoryFailures)
	r.MustRegister(HistoryReplayLatency)
	metricRegisterer = r
}
