package models

import (
	"context"

	"github.com/mmdatafocus/boletos_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("boletos-backend/models")

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// operator names the caller in logs; empty when the context carries no user.
func operator(ctx context.Context) string {
	name, _ := utils.GetUserNameFromContext(ctx)
	return name
}
