package interaction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// DispatchRequest is the request for the dispatch service.
type DispatchRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// DispatchResponse is the response for the dispatch service.
type DispatchResponse struct {
	Response Response `json:"response"`
}

// ListControlsRequest is the request for the list-controls service.
type ListControlsRequest struct{}

// ListControlsResponse is the response for the list-controls service.
type ListControlsResponse struct {
	Controls []Control `json:"controls"`
	Total    int       `json:"total"`
}

// InteractionPort is the cross-module view of the click router.
type InteractionPort interface {
	Dispatch(ctx context.Context, click Click) (Response, error)
}

type interactionAdapter struct {
	container mono.ServiceContainer
}

// NewInteractionAdapter creates an adapter for the interaction services.
func NewInteractionAdapter(container mono.ServiceContainer) InteractionPort {
	if container == nil {
		panic("interaction adapter requires non-nil ServiceContainer")
	}
	return &interactionAdapter{container: container}
}

// Dispatch routes a click via the dispatch service.
func (a *interactionAdapter) Dispatch(ctx context.Context, click Click) (Response, error) {
	req := DispatchRequest(click)
	var resp DispatchResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"dispatch",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return Response{}, fmt.Errorf("dispatch service call failed: %w", err)
	}
	return resp.Response, nil
}
