// Package lark delivers claim notifications over Lark messaging.
package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark app credentials
type Config struct {
	AppID     string
	AppSecret string
}

// SDKClient wraps the Lark SDK client
type SDKClient struct {
	client *lark.Client
	logger *zap.Logger
}

// NewSDKClient creates a new Lark SDK client
func NewSDKClient(cfg Config, logger *zap.Logger) *SDKClient {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &SDKClient{client: client, logger: logger}
}

// Client returns the underlying Lark SDK client
func (c *SDKClient) Client() *lark.Client {
	return c.client
}
