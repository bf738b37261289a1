// Package vanity notifies the vanity URL collaborator about holder changes so
// it can drop mappings set up before the change.
package vanity

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/webhook"
)

// Notifier is the vanity URL collaborator
//
//go:generate mockgen -source=vanity.go -destination=../mocks/vanity.go -package=mocks -mock_names=Notifier=MockVanityNotifier
type Notifier interface {
	// HolderChanged reports that name changed holder at changedAt. The
	// collaborator compares changedAt against its own mapping timestamp.
	HolderChanged(ctx context.Context, notice Notice) error
}

// Notice is a single holder change. PreviousHolder is the zero address for
// the first acquisition of a name.
type Notice struct {
	EventID        string
	Name           string
	Key            domain.NameKey
	Holder         common.Address
	PreviousHolder common.Address
	ChangedAt      time.Time
}

// NewWebhookNotifier posts signed notices to url. An empty url yields a
// notifier that only logs.
func NewWebhookNotifier(url string, signer *webhook.Signer, httpClient adapter.HTTPClient) Notifier {
	if url == "" {
		return noopNotifier{}
	}
	return &webhookNotifier{url: url, signer: signer, http: httpClient}
}

type webhookNotifier struct {
	url    string
	signer *webhook.Signer
	http   adapter.HTTPClient
}

func (n *webhookNotifier) HolderChanged(ctx context.Context, notice Notice) error {
	payload, err := n.signer.Sign(webhook.WebhookEvent{
		EventID:   notice.EventID,
		EventType: string(domain.EventTypeHolderChanged),
		Timestamp: notice.ChangedAt,
		Data: map[string]any{
			"name":            notice.Name,
			"key":             notice.Key.Hex(),
			"holder":          notice.Holder.Hex(),
			"previous_holder": notice.PreviousHolder.Hex(),
			"changed_at":      notice.ChangedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return err
	}

	resp, err := n.http.PostJSON(ctx, n.url, payload.Body, payload.Headers())
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("vanity notification for %s failed (status %d): %w", notice.Name, status, err)
	}

	logger.DebugCtx(ctx, "vanity collaborator notified", zap.String("name", notice.Name), zap.Int("status", resp.StatusCode))
	return nil
}

type noopNotifier struct{}

func (noopNotifier) HolderChanged(ctx context.Context, notice Notice) error {
	logger.DebugCtx(ctx, "no vanity collaborator configured", zap.String("name", notice.Name))
	return nil
}
