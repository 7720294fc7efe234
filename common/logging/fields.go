package logging

import (
	"log/slog"
	"time"
)

// Field names shared by the ingest service and modelctl.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldSubject   = "subject"
	FieldModel     = "model"
	FieldStage     = "stage"
	FieldBucket    = "bucket"
	FieldKey       = "key"
	FieldBackend   = "backend"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Model is the timestamped model name a log line refers to.
func Model(name string) slog.Attr {
	return slog.String(FieldModel, name)
}

// Stage is a pipeline checkpoint state such as NAME_UNIQUE.
func Stage(state string) slog.Attr {
	return slog.String(FieldStage, state)
}

func Bucket(bucket string) slog.Attr {
	return slog.String(FieldBucket, bucket)
}

func Key(key string) slog.Attr {
	return slog.String(FieldKey, key)
}

func Backend(name string) slog.Attr {
	return slog.String(FieldBackend, name)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Duration logs d in whole milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns an error attribute. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
