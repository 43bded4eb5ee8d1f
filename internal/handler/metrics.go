package handler

import "time"

// Metrics はハンドラーが記録するメトリクス。metrics.Collectorが実装する。
type Metrics interface {
	RecordPageRender(themeID string)
	RecordExport(success bool, duration time.Duration)
	RecordProfileUpsert()
}

type noopMetrics struct{}

func (noopMetrics) RecordPageRender(string) {}
func (noopMetrics) RecordExport(bool, time.Duration) {}
func (noopMetrics) RecordProfileUpsert() {}

func orNoopMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
