package app

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aryan0dhankhar/teamspace/pkg/config"
	"github.com/aryan0dhankhar/teamspace/pkg/database"
)

func TestTeamDefaultsCopiesEveryField(t *testing.T) {
	in := config.TeamDefaults{
		ChatModel:       "qwen-plus",
		EmbeddingModel:  "bge-m3@BAAI",
		ASRModel:        "paraformer",
		Image2TextModel: "qwen-vl",
		RerankModel:     "bge-reranker",
		Parsers:         "naive:General",
		LLMFactory:      "Tongyi-Qianwen",
		APIKey:          "sk-test",
		BaseURL:         "http://llm.local",
	}

	out := TeamDefaults(in)
	assert.Equal(t, in.ChatModel, out.ChatModel)
	assert.Equal(t, in.EmbeddingModel, out.EmbeddingModel)
	assert.Equal(t, in.ASRModel, out.ASRModel)
	assert.Equal(t, in.Image2TextModel, out.Image2TextModel)
	assert.Equal(t, in.RerankModel, out.RerankModel)
	assert.Equal(t, in.Parsers, out.Parsers)
	assert.Equal(t, in.LLMFactory, out.LLMFactory)
	assert.Equal(t, in.APIKey, out.APIKey)
	assert.Equal(t, in.BaseURL, out.BaseURL)
}

func TestNewServicesWiresEveryRepository(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := database.Open(sqlDB, gormlogger.Silent)
	require.NoError(t, err)

	svc := NewServices(db, &config.Config{JWTSecret: "secret", TokenTTL: time.Hour, CatalogCacheTTL: time.Minute}, nil)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.Repos.Users)
	assert.NotNil(t, svc.Repos.Tenants)
	assert.NotNil(t, svc.Repos.Members)
	assert.NotNil(t, svc.Repos.Dialogs)
	assert.NotNil(t, svc.Repos.Knowledgebases)
	assert.NotNil(t, svc.Repos.Catalog)
	assert.NotNil(t, svc.Repos.TenantLLMs)
	assert.NotNil(t, svc.Teams)
	assert.NotNil(t, svc.Dialogs)
	assert.NotNil(t, svc.Auth)
	assert.NotNil(t, svc.Tokens)
}
