package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var Emit = func(ctx context.Context, name string, evt ToolEvent) {}

// EmitStream delivers stream events to the frontend. Defaults to a no-op so
// headless callers (CLI, tests) work without the Wails runtime.
var EmitStream = func(ctx context.Context, evt StreamEvent) {}

// EmitProgress delivers forge progress tuples to the frontend.
var EmitProgress = func(ctx context.Context, evt ProgressEvent) {}

func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, evt ToolEvent) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}

		if evt.Type == EventSuccess || evt.Type == EventError {
			runtime.EventsEmit(ctx, name, evt)
		}

		logRuntimeEvent(ctx, name, evt)
	}

	EmitStream = func(ctx context.Context, evt StreamEvent) {
		runtime.EventsEmit(ctx, ChatStream, evt)
	}

	EmitProgress = func(ctx context.Context, evt ProgressEvent) {
		runtime.EventsEmit(ctx, ForgeProgress, evt)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt ToolEvent)) {
	if f == nil {
		Emit = func(context.Context, string, ToolEvent) {}
		return
	}
	Emit = func(ctx context.Context, name string, evt ToolEvent) {
		if evt.SessionKey == "" {
			if session := SessionFromContext(ctx); session != "" {
				evt.SessionKey = session
			}
		}
		f(ctx, name, evt)
	}
}

// SetCustomStreamEmitter replaces the stream emitter; passing nil restores
// the no-op.
func SetCustomStreamEmitter(f func(ctx context.Context, evt StreamEvent)) {
	if f == nil {
		EmitStream = func(context.Context, StreamEvent) {}
		return
	}
	EmitStream = f
}
