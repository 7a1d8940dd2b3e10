package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/nats-io/nats.go"
)

// Requester performs JSON request-reply calls.
type Requester interface {
	Request(ctx context.Context, subject string, req, resp any) error
	Close()
}

// Dialer opens a Requester for a server URL.
type Dialer func(url string) (Requester, error)

// Subject returns the request-reply subject of a module service.
func Subject(module, service string) string {
	return fmt.Sprintf("services.%s.%s", module, service)
}

type natsRequester struct {
	nc *nats.Conn
}

// DialNATS connects to the NATS server at url.
func DialNATS(url string) (Requester, error) {
	nc, err := nats.Connect(url,
		nats.Name("catalogctl"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &natsRequester{nc: nc}, nil
}

func (r *natsRequester) Request(ctx context.Context, subject string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	msg, err := r.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return fmt.Errorf("no engine is serving %s", subject)
		}
		return fmt.Errorf("request %s: %w", subject, err)
	}
	return decodeReply(msg.Data, resp)
}

func (r *natsRequester) Close() {
	r.nc.Close()
}

// decodeReply unmarshals a service reply, turning an error reply back into
// a catalog error.
func decodeReply(data []byte, resp any) error {
	var failure struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &failure); err == nil && failure.Error != "" {
		return catalog.FromServiceError(errors.New(failure.Error))
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}
