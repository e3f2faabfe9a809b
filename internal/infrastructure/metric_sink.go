package infrastructure

import (
	"strings"

	"go.uber.org/zap"
)

// ParseTensorboardKwargs splits the opaque "key=value,key=value" passthrough
// string into a typed map. Parsing happens here at the boundary; the core
// never interprets the string.
func ParseTensorboardKwargs(raw string) map[string]string {
	kwargs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		kwargs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kwargs
}

// LogMetricSink emits evaluation scalars through the structured logger,
// carrying the tensorboard kwargs as constant fields.
type LogMetricSink struct {
	logger *zap.Logger
}

func NewLogMetricSink(logger *zap.Logger, kwargs map[string]string) *LogMetricSink {
	fields := make([]zap.Field, 0, len(kwargs))
	for k, v := range kwargs {
		fields = append(fields, zap.String(k, v))
	}
	return &LogMetricSink{logger: logger.With(fields...)}
}

func (s *LogMetricSink) RecordScalar(name string, step int, value float64) {
	s.logger.Info("Metric",
		zap.String("name", name),
		zap.Int("step", step),
		zap.Float64("value", value))
}
