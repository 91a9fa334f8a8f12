package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-profiles/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards bootstrap events to a go-users ActivitySink so profile
// decisions land in the same audit trail as user activity.
type Hook struct {
	Sink usertypes.ActivitySink
	// SystemActor is recorded when the event carries no parseable actor.
	SystemActor uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actor := parseUUID(normalized.ActorID)
	if actor == uuid.Nil {
		actor = h.SystemActor
	}

	data := make(map[string]any, len(normalized.Metadata)+2)
	for key, value := range normalized.Metadata {
		data[key] = value
	}
	if normalized.DefinitionCode != "" {
		data["definition_code"] = normalized.DefinitionCode
	}
	if len(normalized.Recipients) > 0 {
		data["recipients"] = append([]string{}, normalized.Recipients...)
	}
	if len(data) == 0 {
		data = nil
	}

	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    actor,
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	})
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
