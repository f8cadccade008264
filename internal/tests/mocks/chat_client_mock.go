package mocks

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ChatClientMock satisfies services.ChatClient. The default StreamChat
// replays Fragments as a finished stream.
type ChatClientMock struct {
	StreamChatFunc func(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
	Provider       string
	Model          string
	Fragments      []string
}

func (m *ChatClientMock) StreamChat(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, messages)
	}
	reader, writer := schema.Pipe[*schema.Message](len(m.Fragments) + 1)
	go func() {
		defer writer.Close()
		for _, fragment := range m.Fragments {
			writer.Send(schema.AssistantMessage(fragment, nil), nil)
		}
	}()
	return reader, nil
}

func (m *ChatClientMock) ProviderID() string {
	if m.Provider != "" {
		return m.Provider
	}
	return "local"
}

func (m *ChatClientMock) APIName() string {
	if m.Model != "" {
		return m.Model
	}
	return "mock-model"
}
