package utils

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmdatafocus/boletos_backend/appctx"
)

var (
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyDatasetId     = appctx.ContextKeyDatasetId
)

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetDatasetIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDatasetId)
}

func SetDatasetIdInContext(ctx context.Context, datasetId string) context.Context {
	return appctx.Set(ctx, ContextKeyDatasetId, datasetId)
}

// EnsureCorrelationId returns ctx carrying a correlation id, minting one if absent.
func EnsureCorrelationId(ctx context.Context) (context.Context, string) {
	if v, ok := GetCorrelationIdFromContext(ctx); ok && v != "" {
		return ctx, v
	}
	id := uuid.NewString()
	return SetCorrelationIdInContext(ctx, id), id
}
