package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raold/second-brain-core/internal/config"
)

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name          string
		config        *config.Config
		dbPath        func(t *testing.T) string
		expectedError bool
		validate      func(*testing.T, *Container)
	}{
		{
			name:          "mock_store_when_no_db_path",
			config:        config.DefaultConfig(),
			dbPath:        func(t *testing.T) string { return "" },
			expectedError: false,
			validate: func(t *testing.T, c *Container) {
				assert.NotNil(t, c.GetStore())
				assert.NotNil(t, c.GetEmbeddingProvider())
				assert.NotNil(t, c.GetAgingEngine())
				assert.NotNil(t, c.GetImportanceEngine())
				assert.NotNil(t, c.GetRelationshipAnalyzer())
				assert.NotNil(t, c.GetDeduplicationOrchestrator())
			},
		},
		{
			name:          "sqlite_store_when_db_path_given",
			config:        config.DefaultConfig(),
			dbPath:        func(t *testing.T) string { return filepath.Join(t.TempDir(), "container.db") },
			expectedError: false,
			validate: func(t *testing.T, c *Container) {
				assert.NotNil(t, c.GetStore())
				require.NoError(t, c.Shutdown())
			},
		},
		{
			name:          "nil_config_falls_back_to_defaults",
			config:        nil,
			dbPath:        func(t *testing.T) string { return "" },
			expectedError: false,
			validate: func(t *testing.T, c *Container) {
				require.NotNil(t, c.GetConfig())
				assert.Equal(t, config.DefaultConfig().Deduplication.BatchSize, c.GetConfig().Deduplication.BatchSize)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContainer(tt.config, tt.dbPath(t))
			if tt.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
			if tt.validate != nil {
				tt.validate(t, c)
			}
		})
	}
}

func TestContainerHealthCheck(t *testing.T) {
	c, err := NewContainer(config.DefaultConfig(), "")
	require.NoError(t, err)

	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestContainerBatchRecalculateImportanceRunsAgainstOwnStore(t *testing.T) {
	c, err := NewContainer(config.DefaultConfig(), "")
	require.NoError(t, err)

	result, err := c.BatchRecalculateImportance(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

func TestContainerShutdownWithoutSqliteIsNoop(t *testing.T) {
	c, err := NewContainer(config.DefaultConfig(), "")
	require.NoError(t, err)
	assert.NoError(t, c.Shutdown())
}
