package interaction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/catalog-engine/domain/catalog"
)

// State is the lifecycle stage of an interactive control.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateActive
	StateRetired
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateActive:
		return "active"
	case StateRetired:
		return "retired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrControlRetired is returned when a retired token is bound again.
	ErrControlRetired = errors.New("control retired")
	// ErrInvalidTransition is returned for a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid control transition")
)

// Control is the registry's view of one rendered button.
type Control struct {
	Token     catalog.Token `json:"token"`
	State     State         `json:"state"`
	MessageID string        `json:"message_id,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CatalogSource lists the entities that own controls.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	ListFreeItems(ctx context.Context) ([]catalog.FreeItem, error)
}

// Registry maps tokens to controls. It is rebuilt from the store at start
// and never persisted.
type Registry struct {
	mu       sync.RWMutex
	controls map[catalog.Token]*Control
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		controls: make(map[catalog.Token]*Control),
		now:      time.Now,
	}
}

// Bind moves a token from Unbound to Bound. Binding a Bound or Active
// token is a no-op.
func (r *Registry) Bind(token catalog.Token) error {
	if err := token.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controls[token]; ok {
		if c.State == StateRetired {
			return fmt.Errorf("%w: %s", ErrControlRetired, token.ID)
		}
		return nil
	}
	r.controls[token] = &Control{Token: token, State: StateBound, UpdatedAt: r.now()}
	return nil
}

// Activate moves a Bound token to Active and records its message.
func (r *Registry) Activate(token catalog.Token, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[token]
	if !ok {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, token.ID, StateUnbound)
	}
	switch c.State {
	case StateBound:
		c.State = StateActive
		c.MessageID = messageID
		c.UpdatedAt = r.now()
		return nil
	case StateRetired:
		return fmt.Errorf("%w: %s", ErrControlRetired, token.ID)
	default:
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, token.ID, c.State)
	}
}

// Register binds and activates a token in one step. An Active token is
// left unchanged unless it has no message yet.
func (r *Registry) Register(token catalog.Token, messageID string) error {
	if err := token.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[token]
	if !ok {
		r.controls[token] = &Control{Token: token, State: StateActive, MessageID: messageID, UpdatedAt: r.now()}
		return nil
	}
	switch c.State {
	case StateRetired:
		return fmt.Errorf("%w: %s", ErrControlRetired, token.ID)
	case StateActive:
		if c.MessageID == "" && messageID != "" {
			c.MessageID = messageID
			c.UpdatedAt = r.now()
		}
		return nil
	default:
		c.State = StateActive
		c.MessageID = messageID
		c.UpdatedAt = r.now()
		return nil
	}
}

// Retire marks a token as permanently dead and returns its previous
// control. Retiring an unknown token records it as retired so late clicks
// are still refused.
func (r *Registry) Retire(token catalog.Token) Control {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[token]
	if !ok {
		c = &Control{Token: token, State: StateUnbound}
		r.controls[token] = c
	}
	prev := *c
	c.State = StateRetired
	c.UpdatedAt = r.now()
	return prev
}

// Lookup returns the control for a token.
func (r *Registry) Lookup(token catalog.Token) (Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controls[token]
	if !ok {
		return Control{}, false
	}
	return *c, true
}

// Snapshot returns a copy of every control ordered by kind and id.
func (r *Registry) Snapshot() []Control {
	r.mu.RLock()
	out := make([]Control, 0, len(r.controls))
	for _, c := range r.controls {
		out = append(out, *c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Token.Kind != out[j].Token.Kind {
			return out[i].Token.Kind < out[j].Token.Kind
		}
		return out[i].Token.ID < out[j].Token.ID
	})
	return out
}

// Rehydrate registers an Active control for every persisted product and
// free item. No messages are sent. It returns the number of controls registered.
func (r *Registry) Rehydrate(ctx context.Context, source CatalogSource) (int, error) {
	products, err := source.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}
	items, err := source.ListFreeItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list free items: %w", err)
	}

	count := 0
	for _, p := range products {
		if err := r.Register(catalog.NewToken(catalog.KindProduct, p.ID), p.MessageID); err == nil {
			count++
		}
	}
	for _, f := range items {
		if err := r.Register(catalog.NewToken(catalog.KindFreeItem, f.ID), f.MessageID); err == nil {
			count++
		}
	}
	return count, nil
}
