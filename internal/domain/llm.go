package domain

import "context"

// Model types known to the catalog.
const (
	ModelTypeChat      = "chat"
	ModelTypeEmbedding = "embedding"
	ModelTypeSpeech    = "speech2text"
	ModelTypeImage     = "image2text"
	ModelTypeRerank    = "rerank"
)

// LLM is a platform catalog entry.
type LLM struct {
	LLMName   string `json:"llm_name" gorm:"column:llm_name;primaryKey;type:varchar(128)"`
	FID       string `json:"fid" gorm:"column:fid;primaryKey;type:varchar(128)"`
	ModelType string `json:"model_type" gorm:"type:varchar(32)"`
	MaxTokens int    `json:"max_tokens"`
	Tags      string `json:"tags" gorm:"type:varchar(255)"`
	Status    Status `json:"status" gorm:"type:varchar(1);default:'1'"`
	Timestamps
}

func (LLM) TableName() string { return "llm" }

// TenantLLM is a provider credential row owned by a tenant.
type TenantLLM struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(32)"`
	TenantID   string `json:"tenant_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_tenant_llm,priority:1"`
	LLMFactory string `json:"llm_factory" gorm:"column:llm_factory;type:varchar(128);uniqueIndex:idx_tenant_llm,priority:2"`
	LLMName    string `json:"llm_name" gorm:"column:llm_name;type:varchar(128);uniqueIndex:idx_tenant_llm,priority:3"`
	ModelType  string `json:"model_type" gorm:"type:varchar(32)"`
	APIKey     string `json:"-" gorm:"column:api_key;type:varchar(1024)"`
	APIBase    string `json:"api_base" gorm:"column:api_base;type:varchar(255)"`
	MaxTokens  int    `json:"max_tokens"`
	Timestamps
}

func (TenantLLM) TableName() string { return "tenant_llm" }

// LLMRepository is the platform model catalog.
type LLMRepository interface {
	Create(ctx context.Context, m *LLM) error
	ListByFactory(ctx context.Context, factory string) ([]*LLM, error)
	List(ctx context.Context) ([]*LLM, error)
}

// TenantLLMRepository stores per-tenant model credentials.
type TenantLLMRepository interface {
	Create(ctx context.Context, m *TenantLLM) error
}
