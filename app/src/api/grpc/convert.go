package grpcapi

import (
	"encoding/json"
	"math"
	"time"

	"mission-telemetry/app/src/core"
	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/shared/constants"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// missionIDFrom reads mission_id as a whole number or a decimal string.
func missionIDFrom(req *structpb.Struct) (int64, error) {
	value, ok := req.GetFields()["mission_id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "mission_id is required")
	}

	switch kind := value.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
			return 0, status.Error(codes.InvalidArgument, "invalid mission_id")
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		id, err := constants.ParseID(kind.StringValue)
		if err != nil {
			return 0, status.Error(codes.InvalidArgument, "invalid mission_id")
		}
		return id, nil
	default:
		return 0, status.Error(codes.InvalidArgument, "invalid mission_id")
	}
}

// importPayloadsFrom unwraps records:[{data:{...}}]. A record without data imports as an empty
// payload, exactly like the REST transport.
func importPayloadsFrom(req *structpb.Struct) ([]domain.Payload, error) {
	list := req.GetFields()["records"].GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "records must be a list")
	}

	payloads := make([]domain.Payload, len(list.GetValues()))
	for i, item := range list.GetValues() {
		record := item.GetStructValue()
		if record == nil {
			return nil, status.Errorf(codes.InvalidArgument, "records[%d] must be an object", i)
		}
		payloads[i] = domain.Payload{}
		if data := record.GetFields()["data"].GetStructValue(); data != nil {
			payloads[i] = domain.Payload(data.AsMap())
		}
	}
	return payloads, nil
}

func missionUpdateFrom(req *structpb.Struct) (domain.MissionUpdate, error) {
	var update domain.MissionUpdate
	for key, dst := range map[string]**string{"end_date": &update.EndDate, "duration": &update.Duration} {
		value, ok := req.GetFields()[key]
		if !ok {
			continue
		}
		switch kind := value.GetKind().(type) {
		case *structpb.Value_NullValue:
		case *structpb.Value_StringValue:
			text := kind.StringValue
			*dst = &text
		default:
			return domain.MissionUpdate{}, status.Errorf(codes.InvalidArgument, "%s must be a string", key)
		}
	}
	return update, nil
}

func missionToMap(m domain.Mission) map[string]any {
	out := map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"start_date":  formatTime(m.StartDate),
		"end_date":    formatTime(m.EndDate),
		"duration":    nil,
		"is_realtime": m.IsRealtime(),
		"created_at":  m.CreatedAt.UTC().Format(constants.TimeFormat),
	}
	if m.Duration != nil {
		out["duration"] = core.FormatDuration(*m.Duration)
	}
	return out
}

func recordToMap(r domain.TelemetryRecord) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"data":       structSafe(map[string]any(r.Data)),
		"created_at": r.CreatedAt.UTC().Format(constants.TimeFormat),
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(constants.TimeFormat)
}

// structSafe rewrites json.Number leaves, which structpb cannot encode, as plain numbers.
func structSafe(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = structSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = structSafe(item)
		}
		return out
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}
