package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
	"github.com/clearledger/claimflow/internal/domain/entity"
)

// Notifier implements port.Notifier by sending text messages to the
// recipient's Lark account. The recipient ID on the outbox row is the Lark
// open_id provisioned for the employee.
type Notifier struct {
	client *lark.Client
	logger *zap.Logger
}

// NewNotifier creates a new Lark notifier
func NewNotifier(sdk *SDKClient, logger *zap.Logger) *Notifier {
	return &Notifier{client: sdk.Client(), logger: logger}
}

// Send delivers one outbox notification
func (n *Notifier) Send(ctx context.Context, notification *entity.Notification) error {
	if notification.RecipientID == "" {
		return fmt.Errorf("notification %d has no recipient", notification.ID)
	}

	content, err := json.Marshal(map[string]string{"text": notification.Message})
	if err != nil {
		return fmt.Errorf("failed to encode message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(notification.RecipientID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send Lark message",
			zap.Int64("notification_id", notification.ID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark message rejected: %s (code %d)", resp.Msg, resp.Code)
	}

	n.logger.Debug("Lark message sent",
		zap.Int64("notification_id", notification.ID),
		zap.String("recipient", notification.RecipientID))
	return nil
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
