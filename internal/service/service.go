package service

import (
	"errors"
	"log/slog"

	"github.com/aryan0dhankhar/teamspace/internal/domain"
	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
)

// Repositories bundles the stores the services read and write.
type Repositories struct {
	Users          domain.UserRepository
	Tenants        domain.TenantRepository
	Members        domain.MembershipRepository
	Dialogs        domain.DialogRepository
	Knowledgebases domain.KnowledgebaseRepository
	Catalog        domain.LLMRepository
	TenantLLMs     domain.TenantLLMRepository
}

const msgNoAuthorization = "No authorization."

func unauthorized() *domain.Error {
	return domain.NewError(domain.KindUnauthorized, msgNoAuthorization)
}

// serviceError passes service errors through and wraps anything else as a
// store failure.
func serviceError(err error) error {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if errors.As(err, &e) {
		return e
	}
	return domain.StoreFailure(err)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}

func observe(logger *slog.Logger, op string, err error) {
	metrics.ObserveTeamOperation(op, resultLabel(err))
	if domain.IsKind(err, domain.KindStoreFailure) {
		logger.Error("membership operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
	}
}
