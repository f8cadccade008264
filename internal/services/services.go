package services

import (
	"context"
	"fmt"

	"planforge/internal/events"
)

func makeSessionKey(sessionID uint) string {
	return fmt.Sprintf("session:%d", sessionID)
}

func emitSessionInfo(ctx context.Context, sessionKey string, message string) {
	evt := events.NewInfo(message)
	evt.SessionKey = sessionKey
	events.Emit(ctx, events.AppInfo, evt)
}

func emitSessionWarn(ctx context.Context, sessionKey string, message string) {
	evt := events.NewWarn(message)
	evt.SessionKey = sessionKey
	events.Emit(ctx, events.AppInfo, evt)
}

func emitSessionError(ctx context.Context, sessionKey string, message string) {
	evt := events.NewError(message)
	evt.SessionKey = sessionKey
	events.Emit(ctx, events.AppInfo, evt)
}
