package logs

import "go.uber.org/zap"

// Ключи полей, общие для всех компонентов.
const (
	KeyRequestID = "request_id"
	KeySessionID = "session_id"
	KeySnippetID = "snippet_id"
	KeyImageID   = "image_id"
	KeyRevision  = "revision"
)

func RequestID(id string) zap.Field { return zap.String(KeyRequestID, id) }

func SessionID(id string) zap.Field { return zap.String(KeySessionID, id) }

func SnippetID(id string) zap.Field { return zap.String(KeySnippetID, id) }

func ImageID(id string) zap.Field { return zap.String(KeyImageID, id) }

func Revision(rev uint64) zap.Field { return zap.Uint64(KeyRevision, rev) }

// EntityID поле с id сущности по её виду: session, snippet или image.
func EntityID(kind, id string) zap.Field {
	switch kind {
	case "session":
		return SessionID(id)
	case "snippet":
		return SnippetID(id)
	case "image":
		return ImageID(id)
	default:
		return zap.String("id", id)
	}
}
