package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/importer"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data", "bankfeed.db")
	cfg.Import.BatchSize = 50
	cfg.Import.PossibleDuplicates = "skip"
	cfg.Parsers.HeaderScanRows = 60
	cfg.Parsers.HeaderMatchThreshold = 0.8
	cfg.Categorization.RecurrenceThreshold = 0.7
	cfg.Categorization.KeywordConfidence = 0.5
	cfg.Transfers.DateWindowDays = 3
	cfg.Transfers.AutoLink = true
	cfg.CSV.Delimiter = ","
	return cfg
}

func TestNewContainer(t *testing.T) {
	tests := []struct {
		name     string
		config   func(t *testing.T) *config.Config
		opts     []Option
		errorMsg string
	}{
		{
			name:     "nil config",
			config:   func(*testing.T) *config.Config { return nil },
			errorMsg: "configuration cannot be nil",
		},
		{
			name:   "sqlite store",
			config: testConfig,
		},
		{
			name:   "memory store",
			config: testConfig,
			opts:   []Option{WithMemoryStore(), WithLogger(logging.NewMockLogger())},
		},
		{
			name: "auto-link disabled",
			config: func(t *testing.T) *config.Config {
				cfg := testConfig(t)
				cfg.Transfers.AutoLink = false
				return cfg
			},
			opts: []Option{WithMemoryStore()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContainer(context.Background(), tt.config(t), tt.opts...)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, c.Close()) })

			assert.NotNil(t, c.GetLogger())
			assert.NotNil(t, c.GetConfig())
			assert.NotNil(t, c.GetStore())
			assert.NotNil(t, c.GetRegistry())
			assert.NotNil(t, c.GetDetector())
			assert.NotNil(t, c.GetTransfers())
			assert.NotNil(t, c.GetCategorizer())
			assert.NotNil(t, c.GetImporter())
			assert.Len(t, c.GetRegistry().Adapters(), 4)
			assert.NotEmpty(t, c.GetKeywords())
		})
	}
}

func TestNewContainer_CreatesDatabase(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(context.Background(), cfg, WithLogger(logging.NewMockLogger()))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.GetStore().SaveAccount(ctx, models.Account{ID: "acc-1", Name: "Main", BankID: "hdfc"}))
	_, ok := c.GetStore().(*store.SQLiteStore)
	assert.True(t, ok)
	assert.FileExists(t, cfg.Storage.Path)
}

func TestNewContainer_KeywordOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  housing: [mylandlord]\n"), 0600))

	cfg := testConfig(t)
	cfg.Categorization.KeywordsFile = path
	c, err := NewContainer(context.Background(), cfg, WithMemoryStore())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, models.CategoryHousing, c.GetKeywords()["MYLANDLORD"])
	assert.Equal(t, models.CategoryFood, c.GetKeywords()["SWIGGY"], "built-in keywords stay")
}

func TestContainer_ImportOptions(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t), WithMemoryStore())
	require.NoError(t, err)
	defer c.Close()

	opts := c.ImportOptions("acc-1")
	assert.Equal(t, "acc-1", opts.AccountID)
	assert.Equal(t, importer.PolicySkip, opts.PossibleDuplicates)
	assert.Equal(t, 50, opts.BatchSize)
}
