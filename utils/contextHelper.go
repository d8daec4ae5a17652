package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/books_ledger/appctx"
	"github.com/google/uuid"
)

func GetBusinessIdFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.BusinessId)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.Value[int](ctx, appctx.UserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.UserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.Value[string](ctx, appctx.CorrelationId)
}

func SetBusinessIdInContext(ctx context.Context, businessId string) context.Context {
	return appctx.With(ctx, appctx.BusinessId, businessId)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.With(ctx, appctx.UserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.With(ctx, appctx.UserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.With(ctx, appctx.CorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context) context.Context {
	return appctx.With(ctx, appctx.SkipTenantScope, true)
}

// CorrelationIdFromContextOrNew returns the request correlation id, minting a uuid when absent.
func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ActorFromContext names the user behind the request for audit trails.
func ActorFromContext(ctx context.Context) string {
	if name, ok := GetUserNameFromContext(ctx); ok && name != "" {
		return name
	}
	return "System"
}
