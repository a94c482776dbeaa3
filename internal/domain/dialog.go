package domain

import (
	"context"

	"gorm.io/datatypes"
)

// Parameter is a named slot of the system prompt.
type Parameter struct {
	Key      string `json:"key"`
	Optional bool   `json:"optional"`
}

// LLMSetting holds sampling options passed to the chat model.
type LLMSetting struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	MaxTokens        int     `json:"max_tokens"`
}

// PromptConfig is the prompt section of a dialog.
type PromptConfig struct {
	System                 string      `json:"system"`
	Prologue               string      `json:"prologue"`
	Parameters             []Parameter `json:"parameters"`
	Quote                  bool        `json:"quote"`
	Keyword                bool        `json:"keyword"`
	TTS                    bool        `json:"tts"`
	EmptyResponse          string      `json:"empty_response"`
	SimilarityThreshold    float64     `json:"similarity_threshold"`
	VectorSimilarityWeight float64     `json:"vector_similarity_weight"`
	TopN                   int         `json:"top_n"`
	LLMSetting             LLMSetting  `json:"llm_setting"`
}

// Dialog is a saved assistant configuration owned by a tenant.
type Dialog struct {
	ID                     string                           `json:"id" gorm:"primaryKey;type:varchar(32)"`
	TenantID               string                           `json:"tenant_id" gorm:"type:varchar(32);not null;index"`
	Name                   string                           `json:"name" gorm:"type:varchar(255)"`
	Description            string                           `json:"description" gorm:"type:text"`
	Icon                   string                           `json:"icon" gorm:"type:text"`
	KBIDs                  datatypes.JSONSlice[string]      `json:"kb_ids" gorm:"column:kb_ids"`
	LLMID                  string                           `json:"llm_id" gorm:"column:llm_id;type:varchar(128)"`
	LLMSetting             datatypes.JSONType[LLMSetting]   `json:"llm_setting" gorm:"column:llm_setting"`
	PromptConfig           datatypes.JSONType[PromptConfig] `json:"prompt_config" gorm:"column:prompt_config"`
	SimilarityThreshold    float64                          `json:"similarity_threshold"`
	VectorSimilarityWeight float64                          `json:"vector_similarity_weight"`
	TopN                   int                              `json:"top_n"`
	TopK                   int                              `json:"top_k"`
	RerankID               string                           `json:"rerank_id" gorm:"column:rerank_id;type:varchar(128)"`
	Status                 Status                           `json:"status" gorm:"type:varchar(1);default:'1';index"`
	Timestamps
}

func (Dialog) TableName() string { return "dialog" }

// DialogRepository is the dialog store.
type DialogRepository interface {
	Create(ctx context.Context, d *Dialog) error
	GetByID(ctx context.Context, id string) (*Dialog, error)
	UpdateByID(ctx context.Context, id string, fields map[string]any) (int64, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Dialog, error)
	SoftDelete(ctx context.Context, ids []string) error
}

// Knowledgebase is a document collection. It is only read here.
type Knowledgebase struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(32)"`
	TenantID string `json:"tenant_id" gorm:"type:varchar(32);index"`
	Name     string `json:"name" gorm:"type:varchar(128)"`
	EmbdID   string `json:"embd_id" gorm:"column:embd_id;type:varchar(128)"`
	Status   Status `json:"status" gorm:"type:varchar(1);default:'1'"`
	Timestamps
}

func (Knowledgebase) TableName() string { return "knowledgebase" }

// KnowledgebaseRepository looks up knowledge bases by id.
type KnowledgebaseRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*Knowledgebase, error)
}
