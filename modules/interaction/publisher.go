package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/go-monolith/mono/pkg/types"
	nanoid "github.com/jaevor/go-nanoid"
)

var (
	// ErrRender wraps any failure to post or delete a rendered message.
	// Callers log it and carry on.
	ErrRender = errors.New("render failure")
	// ErrMessageNotFound is returned when deleting a message that is already gone.
	ErrMessageNotFound = errors.New("message not found")
)

// Rendered is a catalog message ready to be posted to a channel.
type Rendered struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Image       string `json:"image,omitempty"`
	Footer      string `json:"footer,omitempty"`
	ButtonLabel string `json:"button_label,omitempty"`
	// Token is the encoded control token; empty for messages without a button.
	Token string `json:"token,omitempty"`
}

// Publisher posts and deletes rendered messages on the chat surface.
type Publisher interface {
	Post(ctx context.Context, channel string, msg Rendered) (string, error)
	Delete(ctx context.Context, channel, messageID string) error
}

// RenderProduct builds the shop message for a product.
func RenderProduct(p catalog.Product) (Rendered, error) {
	token, err := catalog.NewToken(catalog.KindProduct, p.ID).Encode()
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Title:       p.Name,
		Body:        fmt.Sprintf("%s\n\nPrice: R$ %s\nStock: %d", p.Description, p.Price, p.Stock),
		Image:       p.Image,
		Footer:      "ID: " + p.ID,
		ButtonLabel: "Add to cart",
		Token:       token,
	}, nil
}

// RenderFreeItem builds the giveaway message for a free item.
func RenderFreeItem(f catalog.FreeItem) (Rendered, error) {
	token, err := catalog.NewToken(catalog.KindFreeItem, f.ID).Encode()
	if err != nil {
		return Rendered{}, err
	}
	stock := "unlimited"
	if f.Stock != nil {
		stock = fmt.Sprintf("%d", *f.Stock)
	}
	return Rendered{
		Title:       f.Name,
		Body:        fmt.Sprintf("%s\n\nAvailable: %s", f.Description, stock),
		Image:       f.Image,
		Footer:      "ID: " + f.ID,
		ButtonLabel: "Get it for free",
		Token:       token,
	}, nil
}

// RenderProject builds the portfolio message for a project.
func RenderProject(p catalog.Project) Rendered {
	var b strings.Builder
	b.WriteString(p.Description)
	if p.Client != "" {
		fmt.Fprintf(&b, "\n\nClient: %s", p.Client)
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "\nLink: %s", p.URL)
	}
	return Rendered{
		Title:  p.Name,
		Body:   b.String(),
		Image:  p.Image,
		Footer: "ID: " + p.ID,
	}
}

// LogPublisher writes rendered messages to the logger and keeps track of
// the ids it handed out. It stands in for a chat platform client.
type LogPublisher struct {
	logger   types.Logger
	newID    func() string
	mu       sync.Mutex
	messages map[string]string
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger types.Logger) (*LogPublisher, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &LogPublisher{
		logger:   logger,
		newID:    gen,
		messages: make(map[string]string),
	}, nil
}

// Post logs the message and returns a fresh message id.
func (p *LogPublisher) Post(_ context.Context, channel string, msg Rendered) (string, error) {
	if channel == "" {
		return "", fmt.Errorf("%w: no channel configured", ErrRender)
	}
	id := p.newID()

	p.mu.Lock()
	p.messages[id] = channel
	p.mu.Unlock()

	p.logger.Info("Message posted",
		"channel", channel,
		"message_id", id,
		"title", msg.Title,
		"button", msg.ButtonLabel,
		"token", msg.Token,
	)
	return id, nil
}

// Delete forgets a posted message.
func (p *LogPublisher) Delete(_ context.Context, channel, messageID string) error {
	p.mu.Lock()
	_, ok := p.messages[messageID]
	delete(p.messages, messageID)
	p.mu.Unlock()

	if !ok {
		return ErrMessageNotFound
	}
	p.logger.Info("Message deleted", "channel", channel, "message_id", messageID)
	return nil
}

// Posted reports whether a message id is currently live.
func (p *LogPublisher) Posted(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.messages[messageID]
	return ok
}
