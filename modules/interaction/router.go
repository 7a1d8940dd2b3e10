package interaction

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/example/catalog-engine/domain/catalog"
	"github.com/go-monolith/mono/pkg/types"
)

// User-facing replies.
const (
	MsgProductNotFound   = "Product not found."
	MsgItemNotFound      = "Item not found."
	MsgProductOutOfStock = "Product out of stock!"
	MsgItemSoldOut       = "Item sold out at the moment."
	MsgAlreadyInCart     = "This product is already in your cart! Wait for the administrator to contact you."
	MsgGenericFailure    = "Something went wrong, please try again later."
	MsgSlowDown          = "You are clicking too fast, please slow down."
)

// Result classifies the outcome of a click.
type Result string

const (
	ResultAdded       Result = "added"
	ResultRedeemed    Result = "redeemed"
	ResultNotFound    Result = "not_found"
	ResultOutOfStock  Result = "out_of_stock"
	ResultDuplicate   Result = "duplicate"
	ResultRateLimited Result = "rate_limited"
	ResultFailed      Result = "failed"
)

// Click is a user pressing a rendered control.
type Click struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Response is what the clicking user sees. Ephemeral replies are visible
// to that user only.
type Response struct {
	Message   string            `json:"message"`
	Ephemeral bool              `json:"ephemeral"`
	Result    Result            `json:"result"`
	EntityID  string            `json:"entity_id,omitempty"`
	Download  *catalog.Download `json:"download,omitempty"`
}

// Engine is the part of the inventory the router drives.
type Engine interface {
	AddToCart(ctx context.Context, userID, productID string) (*catalog.CartEntry, error)
	RedeemFreeItem(ctx context.Context, itemID, userID string) (*catalog.Download, error)
}

// ClickLimiter throttles clicks per user.
type ClickLimiter interface {
	AllowClick(ctx context.Context, userID string) (bool, error)
}

// Router turns clicks into engine calls and engine outcomes into replies.
type Router struct {
	engine   Engine
	registry *Registry
	limiter  ClickLimiter
	logger   types.Logger
}

// NewRouter creates a Router. limiter may be nil.
func NewRouter(engine Engine, registry *Registry, limiter ClickLimiter, logger types.Logger) *Router {
	return &Router{
		engine:   engine,
		registry: registry,
		limiter:  limiter,
		logger:   logger,
	}
}

// Dispatch handles one click. It never panics and never returns an error;
// every outcome is a reply for the user.
func (r *Router) Dispatch(ctx context.Context, click Click) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Dispatch panicked",
				"panic", fmt.Sprint(rec),
				"user_id", click.UserID,
				"stack", string(debug.Stack()),
			)
			resp = reply(ResultFailed, MsgGenericFailure)
		}
	}()

	token, err := catalog.ParseToken(click.Token)
	if err != nil {
		r.logger.Warn("Rejected click with undecodable token", "user_id", click.UserID, "error", err)
		return reply(ResultNotFound, MsgItemNotFound)
	}

	ctrl, known := r.registry.Lookup(token)
	if known && ctrl.State == StateRetired {
		return r.withEntity(reply(ResultNotFound, notFoundMessage(token.Kind)), token)
	}

	if r.limiter != nil {
		allowed, err := r.limiter.AllowClick(ctx, click.UserID)
		if err != nil {
			r.logger.Warn("Click limiter unavailable, allowing click", "user_id", click.UserID, "error", err)
		} else if !allowed {
			return r.withEntity(reply(ResultRateLimited, MsgSlowDown), token)
		}
	}

	switch token.Kind {
	case catalog.KindProduct:
		resp = r.addToCart(ctx, token, click.UserID)
	case catalog.KindFreeItem:
		resp = r.redeem(ctx, token, click.UserID)
	default:
		resp = reply(ResultNotFound, MsgItemNotFound)
	}

	switch resp.Result {
	case ResultNotFound:
		r.registry.Retire(token)
	case ResultAdded, ResultRedeemed:
		if !known {
			if err := r.registry.Register(token, ""); err == nil {
				r.logger.Info("Control registered on first click", "token", token.String())
			}
		}
	}
	return r.withEntity(resp, token)
}

func (r *Router) addToCart(ctx context.Context, token catalog.Token, userID string) Response {
	entry, err := r.engine.AddToCart(ctx, userID, token.ID)
	if err != nil {
		return r.failure(token, userID, err)
	}
	return reply(ResultAdded, fmt.Sprintf(
		"**%s** added to your cart! Wait for the administrator to contact you to complete your purchase.",
		entry.ProductName,
	))
}

func (r *Router) redeem(ctx context.Context, token catalog.Token, userID string) Response {
	download, err := r.engine.RedeemFreeItem(ctx, token.ID, userID)
	if err != nil {
		return r.failure(token, userID, err)
	}
	resp := reply(ResultRedeemed, fmt.Sprintf(
		"**Download: %s**\n%s\n\nDownload link: %s",
		download.Name, download.Description, download.Link,
	))
	resp.Download = download
	return resp
}

func (r *Router) failure(token catalog.Token, userID string, err error) Response {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return reply(ResultNotFound, notFoundMessage(token.Kind))
	case errors.Is(err, catalog.ErrOutOfStock):
		if token.Kind == catalog.KindFreeItem {
			return reply(ResultOutOfStock, MsgItemSoldOut)
		}
		return reply(ResultOutOfStock, MsgProductOutOfStock)
	case errors.Is(err, catalog.ErrDuplicateEntry):
		return reply(ResultDuplicate, MsgAlreadyInCart)
	default:
		r.logger.Error("Click failed", "token", token.String(), "user_id", userID, "error", err)
		return reply(ResultFailed, MsgGenericFailure)
	}
}

func (r *Router) withEntity(resp Response, token catalog.Token) Response {
	resp.EntityID = token.ID
	return resp
}

func notFoundMessage(kind catalog.Kind) string {
	if kind == catalog.KindProduct {
		return MsgProductNotFound
	}
	return MsgItemNotFound
}

func reply(result Result, message string) Response {
	return Response{Message: message, Ephemeral: true, Result: result}
}
