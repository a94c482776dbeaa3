package service

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

// Top level defaults applied when a dialog is created.
const (
	DefaultDialogName                   = "New Dialog"
	DefaultDialogDescription            = "A helpful dialog"
	DefaultDialogTopN                   = 6
	DefaultDialogTopK                   = 1024
	DefaultDialogSimilarityThreshold    = 0.1
	DefaultDialogVectorSimilarityWeight = 0.3
)

const defaultSystemPrompt = `You are an intelligent assistant. Please summarize the content of the knowledge base to answer the question. Please list the data in the knowledge base and answer in detail. When all knowledge base content is irrelevant to the question, your answer must include the sentence "The answer you are looking for is not found in the knowledge base!" Answers need to consider chat history.
Here is the knowledge base:
{knowledge}
The above is the knowledge base.`

// DefaultPromptConfig returns the prompt every dialog starts from.
func DefaultPromptConfig() domain.PromptConfig {
	return domain.PromptConfig{
		System:     defaultSystemPrompt,
		Prologue:   "Hi! I'm your assistant, what can I do for you?",
		Parameters: []domain.Parameter{{Key: "knowledge", Optional: false}},
		Quote:      true,
		Keyword:    false,
		TTS:        false,
		LLMSetting: domain.LLMSetting{
			Temperature:      0.1,
			TopP:             0.3,
			PresencePenalty:  0.4,
			FrequencyPenalty: 0.7,
			MaxTokens:        512,
		},
		SimilarityThreshold:    0.2,
		VectorSimilarityWeight: 0.3,
		TopN:                   8,
		EmptyResponse:          "Sorry! No relevant content was found in the knowledge base!",
	}
}

// PromptConfigRequest carries the prompt fields a caller supplied. A nil
// field was not supplied.
type PromptConfigRequest struct {
	System                 *string             `json:"system"`
	Prologue               *string             `json:"prologue"`
	Parameters             *[]domain.Parameter `json:"parameters"`
	Quote                  *bool               `json:"quote"`
	Keyword                *bool               `json:"keyword"`
	TTS                    *bool               `json:"tts"`
	EmptyResponse          *string             `json:"empty_response"`
	SimilarityThreshold    *float64            `json:"similarity_threshold"`
	VectorSimilarityWeight *float64            `json:"vector_similarity_weight"`
	TopN                   *int                `json:"top_n"`
	LLMSetting             *domain.LLMSetting  `json:"llm_setting"`
}

// DialogRequest is a create (no DialogID) or partial update of a dialog.
type DialogRequest struct {
	DialogID               *string              `json:"dialog_id"`
	Name                   *string              `json:"name"`
	Description            *string              `json:"description"`
	Icon                   *string              `json:"icon"`
	KBIDs                  *[]string            `json:"kb_ids"`
	LLMID                  *string              `json:"llm_id"`
	LLMSetting             *domain.LLMSetting   `json:"llm_setting"`
	PromptConfig           *PromptConfigRequest `json:"prompt_config"`
	TopN                   *int                 `json:"top_n"`
	TopK                   *int                 `json:"top_k"`
	RerankID               *string              `json:"rerank_id"`
	SimilarityThreshold    *float64             `json:"similarity_threshold"`
	VectorSimilarityWeight *float64             `json:"vector_similarity_weight"`
}

// IsUpdate reports whether the request targets an existing dialog.
func (r DialogRequest) IsUpdate() bool {
	return r.DialogID != nil && *r.DialogID != ""
}

// Resolution is the outcome of merging a request with defaults.
type Resolution struct {
	// Dialog is the resulting dialog. For updates it is existing with the
	// supplied fields applied.
	Dialog *domain.Dialog
	// Patch holds the columns to store on update, keyed by column name.
	Patch map[string]any
	// Reverted lists prompt fields supplied empty that took their default.
	Reverted []string
}

// ResolveDialog merges req over the defaults (create) or over existing
// (update) and validates the prompt. Nothing is persisted.
func ResolveDialog(existing *domain.Dialog, req DialogRequest) (*Resolution, error) {
	if req.IsUpdate() && existing == nil {
		return nil, domain.NewError(domain.KindNotFound, "Dialog not found!")
	}

	var (
		prompt   domain.PromptConfig
		reverted []string
	)
	if req.PromptConfig != nil || !req.IsUpdate() {
		prompt, reverted = resolvePromptConfig(req.PromptConfig)
		if err := ValidatePlaceholders(prompt); err != nil {
			return nil, err
		}
	}

	if !req.IsUpdate() {
		return &Resolution{Dialog: newDialog(req, prompt), Reverted: reverted}, nil
	}

	d := *existing
	patch := map[string]any{}
	if req.Name != nil {
		d.Name = *req.Name
		patch["name"] = d.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
		patch["description"] = d.Description
	}
	if req.Icon != nil {
		d.Icon = *req.Icon
		patch["icon"] = d.Icon
	}
	if req.KBIDs != nil {
		d.KBIDs = datatypes.JSONSlice[string](nonNil(*req.KBIDs))
		patch["kb_ids"] = d.KBIDs
	}
	if req.LLMID != nil {
		d.LLMID = *req.LLMID
		patch["llm_id"] = d.LLMID
	}
	if req.LLMSetting != nil {
		d.LLMSetting = datatypes.NewJSONType(*req.LLMSetting)
		patch["llm_setting"] = d.LLMSetting
	}
	if req.PromptConfig != nil {
		d.PromptConfig = datatypes.NewJSONType(prompt)
		patch["prompt_config"] = d.PromptConfig
	}
	if req.TopN != nil {
		d.TopN = *req.TopN
		patch["top_n"] = d.TopN
	}
	if req.TopK != nil {
		d.TopK = *req.TopK
		patch["top_k"] = d.TopK
	}
	if req.RerankID != nil {
		d.RerankID = *req.RerankID
		patch["rerank_id"] = d.RerankID
	}
	if req.SimilarityThreshold != nil {
		d.SimilarityThreshold = *req.SimilarityThreshold
		patch["similarity_threshold"] = d.SimilarityThreshold
	}
	if req.VectorSimilarityWeight != nil {
		d.VectorSimilarityWeight = *req.VectorSimilarityWeight
		patch["vector_similarity_weight"] = d.VectorSimilarityWeight
	}

	return &Resolution{Dialog: &d, Patch: patch, Reverted: reverted}, nil
}

func newDialog(req DialogRequest, prompt domain.PromptConfig) *domain.Dialog {
	d := &domain.Dialog{
		ID:                     domain.NewID(),
		Name:                   stringOr(req.Name, DefaultDialogName),
		Description:            stringOr(req.Description, DefaultDialogDescription),
		Icon:                   stringOr(req.Icon, ""),
		KBIDs:                  datatypes.JSONSlice[string]{},
		LLMID:                  stringOr(req.LLMID, ""),
		PromptConfig:           datatypes.NewJSONType(prompt),
		TopN:                   DefaultDialogTopN,
		TopK:                   DefaultDialogTopK,
		RerankID:               stringOr(req.RerankID, ""),
		SimilarityThreshold:    DefaultDialogSimilarityThreshold,
		VectorSimilarityWeight: DefaultDialogVectorSimilarityWeight,
		Status:                 domain.StatusValid,
	}
	if req.KBIDs != nil {
		d.KBIDs = datatypes.JSONSlice[string](nonNil(*req.KBIDs))
	}
	if req.LLMSetting != nil {
		d.LLMSetting = datatypes.NewJSONType(*req.LLMSetting)
	} else {
		d.LLMSetting = datatypes.NewJSONType(domain.LLMSetting{})
	}
	if req.TopN != nil {
		d.TopN = *req.TopN
	}
	if req.TopK != nil {
		d.TopK = *req.TopK
	}
	if req.SimilarityThreshold != nil {
		d.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.VectorSimilarityWeight != nil {
		d.VectorSimilarityWeight = *req.VectorSimilarityWeight
	}
	return d
}

// resolvePromptConfig fills every field of req the caller left out or
// supplied empty from the defaults. Empty fields whose default differs are
// reported.
func resolvePromptConfig(req *PromptConfigRequest) (domain.PromptConfig, []string) {
	out := DefaultPromptConfig()
	if req == nil {
		return out, nil
	}

	var reverted []string
	revert := func(field string, differs bool) {
		if differs {
			reverted = append(reverted, field)
		}
	}

	if req.Parameters != nil {
		if len(*req.Parameters) > 0 {
			out.Parameters = *req.Parameters
		} else {
			revert("parameters", true)
		}
	}
	if req.Prologue != nil {
		if *req.Prologue != "" {
			out.Prologue = *req.Prologue
		} else {
			revert("prologue", out.Prologue != "")
		}
	}
	if req.Quote != nil {
		if *req.Quote {
			out.Quote = true
		} else {
			revert("quote", out.Quote)
		}
	}
	if req.Keyword != nil {
		if *req.Keyword {
			out.Keyword = true
		} else {
			revert("keyword", out.Keyword)
		}
	}
	if req.TTS != nil {
		if *req.TTS {
			out.TTS = true
		} else {
			revert("tts", out.TTS)
		}
	}
	if req.System != nil {
		if *req.System != "" {
			out.System = *req.System
		} else {
			revert("system", true)
		}
	}
	if req.VectorSimilarityWeight != nil {
		if *req.VectorSimilarityWeight != 0 {
			out.VectorSimilarityWeight = *req.VectorSimilarityWeight
		} else {
			revert("vector_similarity_weight", out.VectorSimilarityWeight != 0)
		}
	}
	if req.LLMSetting != nil {
		if *req.LLMSetting != (domain.LLMSetting{}) {
			out.LLMSetting = *req.LLMSetting
		} else {
			revert("llm_setting", true)
		}
	}
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold != 0 {
			out.SimilarityThreshold = *req.SimilarityThreshold
		} else {
			revert("similarity_threshold", out.SimilarityThreshold != 0)
		}
	}
	if req.TopN != nil {
		if *req.TopN != 0 {
			out.TopN = *req.TopN
		} else {
			revert("top_n", out.TopN != 0)
		}
	}
	if req.EmptyResponse != nil {
		out.EmptyResponse = *req.EmptyResponse
	}
	return out, reverted
}

// ValidatePlaceholders fails on the first required parameter whose {key}
// does not occur in the system prompt.
func ValidatePlaceholders(prompt domain.PromptConfig) error {
	for _, p := range prompt.Parameters {
		if p.Optional {
			continue
		}
		if !strings.Contains(prompt.System, "{"+p.Key+"}") {
			return &domain.Error{
				Kind:    domain.KindMissingPlaceholder,
				Message: fmt.Sprintf("Parameter '%s' is not used", p.Key),
				Details: []string{p.Key},
			}
		}
	}
	return nil
}

// CheckEmbeddingModels fails when the knowledge bases were embedded with
// different models. The @vendor suffix of an embedding id is ignored.
func CheckEmbeddingModels(kbs []*domain.Knowledgebase) error {
	models := map[string]struct{}{}
	ids := make([]string, 0, len(kbs))
	for _, kb := range kbs {
		ids = append(ids, kb.EmbdID)
		models[embeddingModelName(kb.EmbdID)] = struct{}{}
	}
	if len(models) > 1 {
		return &domain.Error{
			Kind:    domain.KindInconsistentEmbeddingModel,
			Message: fmt.Sprintf("Datasets use different embedding models: [%s]", strings.Join(ids, ", ")),
			Details: ids,
		}
	}
	return nil
}

func embeddingModelName(id string) string {
	if i := strings.LastIndex(id, "@"); i >= 0 {
		return id[:i]
	}
	return id
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
