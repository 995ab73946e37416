// Package snsctx carries per-call diagnostics settings through a context.
package snsctx

import (
	"context"
	"encoding/hex"
	"log/slog"
)

type ctxIndex int

const ctxIndexVerbose ctxIndex = iota

func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Dump logs a hex dump of buf at debug level when ctx is verbose.
func Dump(ctx context.Context, msg string, buf []byte) {
	if !IsVerbose(ctx) {
		return
	}
	slog.DebugContext(ctx, msg+"\n"+hex.Dump(buf))
}
