// Package session holds the client side of a quoting conversation: the chat
// transcript, the requirements the service extracted, the latest price
// quote and the latest order confirmation.
//
// Every command folds the service's answer into the state through a fixed
// sequence of mutations, and every mutation is announced to subscribed
// listeners right after it is applied.
//
// Commands are not serialized against each other. Two commands in flight at
// once fold their results in completion order, and the loading flag and
// error message end up reflecting whichever finished last. Callers that
// need a coherent view issue one command at a time, e.g. by ignoring input
// while IsLoading reports true.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quotedesk/internal/model"
	"quotedesk/internal/remote"
	"quotedesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AnonymousClientID is sent as client_id when an order is placed before the
// client identified itself.
const AnonymousClientID = "anonymous"

const (
	msgChatFailed    = "Error communicating with server"
	msgPricingFailed = "Error calculating pricing"
	msgOrderFailed   = "Error creating order"
	msgNoPricing     = "No pricing available"
)

// ErrNoPricing is returned by CreateOrder when there is no quote with a
// numeric final_price to order against.
var ErrNoPricing = errors.New("no pricing available")

// Service is the remote quoting service as the session uses it.
type Service interface {
	Chat(ctx context.Context, req *remote.ChatRequest) (model.Record, error)
	Pricing(ctx context.Context, req *remote.PricingRequest) (model.Record, error)
	CreateOrder(ctx context.Context, req *remote.OrderRequest) (model.Record, error)
}

// Listener observes mutations. The State is a copy taken right after the
// mutation and is shared by all listeners of that mutation; treat it as
// read-only. Listeners run on the goroutine that issued the command.
type Listener func(m Mutation, st State)

type Option func(*Session)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithIDGenerator replaces the UUID generator used for message IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		s.newID = newID
	}
}

// WithClientID presets the client identifier.
func WithClientID(clientID string) Option {
	return func(s *Session) {
		s.state.ClientID = clientID
	}
}

type Session struct {
	svc   Service
	now   func() time.Time
	newID func() string

	mu           sync.Mutex
	state        State
	listeners    []listenerEntry
	nextListener int
}

type listenerEntry struct {
	id int
	fn Listener
}

func New(svc Service, opts ...Option) *Session {
	s := &Session{
		svc:   svc,
		now:   time.Now,
		newID: uuid.NewString,
		state: State{
			Messages:     []model.Message{},
			Requirements: []model.Record{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for all future mutations. The returned function
// removes it again.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// commit applies one mutation under the lock and notifies listeners after
// releasing it. apply reports whether it changed anything; unchanged
// mutations are not announced.
func (s *Session) commit(m Mutation, apply func(st *State) bool) {
	s.mu.Lock()
	if !apply(&s.state) {
		s.mu.Unlock()
		return
	}
	var snapshot State
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	if len(listeners) > 0 {
		snapshot = s.state.clone()
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(m, snapshot)
	}
}

// SetClientID sets the identifier sent with every request. It survives
// ResetConversation.
func (s *Session) SetClientID(clientID string) {
	s.commit(MutationSetClientID, func(st *State) bool {
		st.ClientID = clientID
		return true
	})
}

func (s *Session) setLoading(loading bool) {
	s.commit(MutationSetLoading, func(st *State) bool {
		st.IsLoading = loading
		return true
	})
}

func (s *Session) setError(msg string) {
	s.commit(MutationSetError, func(st *State) bool {
		st.Error = msg
		return true
	})
}

func (s *Session) addMessage(content string, isUser bool) {
	msg := model.Message{
		ID:        s.newID(),
		Content:   content,
		IsUser:    isUser,
		Timestamp: s.now(),
	}
	s.commit(MutationAddMessage, func(st *State) bool {
		st.Messages = append(st.Messages, msg)
		return true
	})
}

// latchConversationID adopts id only while no conversation is known.
func (s *Session) latchConversationID(id string) {
	if id == "" {
		return
	}
	s.commit(MutationSetConversationID, func(st *State) bool {
		if st.ConversationID != "" {
			return false
		}
		st.ConversationID = id
		return true
	})
}

func (s *Session) replaceRequirements(reqs []model.Record) {
	s.commit(MutationClearRequirements, func(st *State) bool {
		st.Requirements = []model.Record{}
		return true
	})
	for _, item := range reqs {
		item := item.Clone()
		s.commit(MutationAddRequirement, func(st *State) bool {
			st.Requirements = append(st.Requirements, item)
			return true
		})
	}
}

func (s *Session) setPricing(pricing model.Record) {
	pricing = pricing.Clone()
	s.commit(MutationSetPricing, func(st *State) bool {
		st.Pricing = pricing
		return true
	})
}

func (s *Session) setOrderStatus(status model.Record) {
	status = status.Clone()
	s.commit(MutationSetOrderStatus, func(st *State) bool {
		st.OrderStatus = status
		return true
	})
}

// begin marks a command as in flight and clears the previous failure.
func (s *Session) begin() {
	s.setLoading(true)
	s.setError("")
}

// fail records the failure message shown to the user: the service's own
// detail when it sent one, fallback otherwise.
func (s *Session) fail(command string, err error, fallback string) {
	msg := fallback
	if detail, ok := remote.Detail(err); ok {
		msg = detail
	}
	s.setError(msg)

	logger.WithFields(logrus.Fields{
		"command": command,
	}).WithError(err).Warn("command failed")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SendMessage appends text to the transcript, sends it to the service and
// folds the reply in. The user message stays in the transcript when the
// call fails. On success the whole response record is returned.
func (s *Session) SendMessage(ctx context.Context, text string) (model.Record, error) {
	s.begin()
	defer s.setLoading(false)

	s.addMessage(text, true)

	s.mu.Lock()
	req := &remote.ChatRequest{
		Message:        text,
		ConversationID: optional(s.state.ConversationID),
		ClientID:       optional(s.state.ClientID),
	}
	s.mu.Unlock()

	rec, err := s.svc.Chat(ctx, req)
	if err != nil {
		s.fail("send_message", err, msgChatFailed)
		return nil, fmt.Errorf("send message: %w", err)
	}

	reply := model.ParseChatReply(rec)
	s.latchConversationID(reply.ConversationID)
	s.addMessage(reply.Message, false)
	if reply.Requirements != nil {
		s.replaceRequirements(reply.Requirements)
	}
	if reply.Pricing != nil {
		s.setPricing(reply.Pricing)
	}

	return rec, nil
}

// RequestPricing asks the service to quote the current requirements, which
// may be empty. The response becomes the pricing snapshot.
func (s *Session) RequestPricing(ctx context.Context) (model.Record, error) {
	s.begin()
	defer s.setLoading(false)

	s.mu.Lock()
	req := &remote.PricingRequest{
		ClientID:     optional(s.state.ClientID),
		Requirements: model.CloneRecords(s.state.Requirements),
	}
	s.mu.Unlock()

	rec, err := s.svc.Pricing(ctx, req)
	if err != nil {
		s.fail("request_pricing", err, msgPricingFailed)
		return nil, fmt.Errorf("request pricing: %w", err)
	}

	s.setPricing(rec)
	return rec, nil
}

// CreateOrder places an order at the current quote's final_price. Without a
// quote it fails with ErrNoPricing and makes no call.
func (s *Session) CreateOrder(ctx context.Context) (model.Record, error) {
	s.begin()
	defer s.setLoading(false)

	s.mu.Lock()
	pricing := s.state.Pricing
	clientID := s.state.ClientID
	req := &remote.OrderRequest{
		ConversationID: optional(s.state.ConversationID),
		Requirements:   model.CloneRecords(s.state.Requirements),
	}
	s.mu.Unlock()

	if pricing == nil {
		s.fail("create_order", ErrNoPricing, msgNoPricing)
		return nil, fmt.Errorf("create order: %w", ErrNoPricing)
	}
	price, ok := pricing.Float("final_price")
	if !ok {
		err := fmt.Errorf("%w: final_price missing or not numeric", ErrNoPricing)
		s.fail("create_order", err, msgNoPricing)
		return nil, fmt.Errorf("create order: %w", err)
	}

	req.Price = price
	req.ClientID = clientID
	if req.ClientID == "" {
		req.ClientID = AnonymousClientID
	}

	rec, err := s.svc.CreateOrder(ctx, req)
	if err != nil {
		s.fail("create_order", err, msgOrderFailed)
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.setOrderStatus(rec)
	return rec, nil
}

// ResetConversation forgets the conversation locally. The client ID and
// the loading flag are left as they are.
func (s *Session) ResetConversation() {
	s.commit(MutationClearMessages, func(st *State) bool {
		st.Messages = []model.Message{}
		return true
	})
	s.commit(MutationSetConversationID, func(st *State) bool {
		st.ConversationID = ""
		return true
	})
	s.commit(MutationClearRequirements, func(st *State) bool {
		st.Requirements = []model.Record{}
		return true
	})
	s.commit(MutationSetPricing, func(st *State) bool {
		st.Pricing = nil
		return true
	})
	s.commit(MutationSetOrderStatus, func(st *State) bool {
		st.OrderStatus = nil
		return true
	})
	s.setError("")
}
