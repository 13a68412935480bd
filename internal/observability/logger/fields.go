package logger

import (
	"time"

	"go.uber.org/zap"
)

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func AssetID(v string) zap.Field { return zap.String("asset_id", v) }

func KID(v string) zap.Field { return zap.String("kid", v) }

func Subject(v string) zap.Field { return zap.String("subject_id", v) }

func Reason(v string) zap.Field { return zap.String("reason", v) }

func Err(err error) zap.Field { return zap.Error(err) }
