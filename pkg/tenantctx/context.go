package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const (
	schoolIDKey keyType = "school_id"
	actorIDKey  keyType = "actor_id"
)

// WithSchoolID scopes the context to one school. Every repository query
// filters on this id; the server middleware resolves it once per request.
func WithSchoolID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, schoolIDKey, id)
}

func SchoolID(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(schoolIDKey).(snowflake.ID)
	return id, ok && id != 0
}

// WithActorID records the acting staff member for audit trails.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

func ActorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorIDKey).(string)
	return id, ok && id != ""
}
