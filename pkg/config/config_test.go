package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults apply without environment overrides", func(t *testing.T) {
		settings, err := Load()
		assert.Nil(t, err)
		assert.Equal(t, int64(1000), settings.EpochGranularityMs)
		assert.Equal(t, int64(5000), settings.InactivityThresholdMs)
		assert.Equal(t, 4, settings.PartitionCount)
		assert.Equal(t, 0, settings.MaxSessionMessages)
		assert.Equal(t, 10, settings.TopKShapes)
		assert.Equal(t, ":4317", settings.GrpcListenAddr)
		assert.True(t, settings.DrainOnShutdown)
		assert.False(t, settings.ElasticsearchEnabled)
	})

	t.Run("Environment variables override defaults", func(t *testing.T) {
		t.Setenv("WEFT_INACTIVITY_THRESHOLD_MS", "2500")
		t.Setenv("WEFT_PARTITION_COUNT", "8")
		t.Setenv("WEFT_ELASTICSEARCH_ADDRS", "http://es-1:9200,http://es-2:9200")

		settings, err := Load()
		assert.Nil(t, err)
		assert.Equal(t, int64(2500), settings.InactivityThresholdMs)
		assert.Equal(t, 8, settings.PartitionCount)
		assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, settings.ElasticsearchAddrs)
	})

	t.Run("Rejects a non-positive partition count", func(t *testing.T) {
		t.Setenv("WEFT_PARTITION_COUNT", "0")
		_, err := Load()
		assert.NotNil(t, err)
	})

	t.Run("Rejects a non-positive inactivity threshold", func(t *testing.T) {
		t.Setenv("WEFT_INACTIVITY_THRESHOLD_MS", "-1")
		_, err := Load()
		assert.NotNil(t, err)
	})
}
