// Package openai implements the chat-completion text provider and the
// primary tier of the image fallback chain on top of the OpenAI API.
package openai

import (
	"errors"

	"github.com/sashabaranov/go-openai"
)

// Config holds the settings for both OpenAI-backed providers.
type Config struct {
	APIKey     string
	BaseURL    string // optional override for OpenAI-compatible gateways
	ChatModel  string
	ImageModel string
}

const (
	defaultChatModel  = openai.GPT4oMini
	defaultImageModel = openai.CreateImageModelDallE3
)

// newClient builds the shared API client, normalising config defaults.
func newClient(cfg Config) (*openai.Client, Config, error) {
	if cfg.APIKey == "" {
		return nil, cfg, errors.New("openai: API key not configured")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig), cfg, nil
}
