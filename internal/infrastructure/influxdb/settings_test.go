package influxdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/notice-client/internal/infrastructure/config"
)

func TestSettingsFor(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.InfluxDBConfig
		wantBatch uint
		wantFlush time.Duration
	}{
		{"zero values use defaults", config.InfluxDBConfig{}, defaultBatchSize, defaultFlushInterval},
		{"negative values use defaults", config.InfluxDBConfig{BatchSize: -1, FlushInterval: -5}, defaultBatchSize, defaultFlushInterval},
		{"configured", config.InfluxDBConfig{BatchSize: 100, FlushInterval: 10}, 100, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := settingsFor(tt.cfg)
			assert.Equal(t, tt.wantBatch, got.BatchSize)
			assert.Equal(t, tt.wantFlush, got.FlushInterval)
			assert.NotEmpty(t, got.Source)
		})
	}
}

func TestSettings_Options(t *testing.T) {
	opts := Settings{BatchSize: 7, FlushInterval: 2 * time.Second, Source: "desk-01"}.options()

	assert.Equal(t, uint(7), opts.BatchSize())
	assert.Equal(t, uint(2000), opts.FlushInterval())
	assert.Equal(t, time.Millisecond, opts.Precision())
	assert.Equal(t, "desk-01", opts.WriteOptions().DefaultTags()["source"])
}
