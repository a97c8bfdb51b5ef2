package session

import (
	"slices"

	"quotedesk/internal/model"
)

// Mutation names a single state change.
type Mutation string

const (
	MutationSetLoading        Mutation = "set_loading"
	MutationSetError          Mutation = "set_error"
	MutationAddMessage        Mutation = "add_message"
	MutationClearMessages     Mutation = "clear_messages"
	MutationSetConversationID Mutation = "set_conversation_id"
	MutationSetClientID       Mutation = "set_client_id"
	MutationClearRequirements Mutation = "clear_requirements"
	MutationAddRequirement    Mutation = "add_requirement"
	MutationSetPricing        Mutation = "set_pricing"
	MutationSetOrderStatus    Mutation = "set_order_status"
)

// State is a point-in-time copy of a session. Empty strings stand for
// "not set"; nil records for "no snapshot".
type State struct {
	ConversationID string
	ClientID       string
	Messages       []model.Message
	Requirements   []model.Record
	Pricing        model.Record
	OrderStatus    model.Record
	IsLoading      bool
	Error          string
}

func (st State) clone() State {
	out := st
	out.Messages = slices.Clone(st.Messages)
	if out.Messages == nil {
		out.Messages = []model.Message{}
	}
	out.Requirements = model.CloneRecords(st.Requirements)
	if out.Requirements == nil {
		out.Requirements = []model.Record{}
	}
	out.Pricing = st.Pricing.Clone()
	out.OrderStatus = st.OrderStatus.Clone()
	return out
}

// Snapshot returns a copy of the whole state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Messages)
}

func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsLoading
}

// ErrorMessage is the failure of the last command, or "" when it succeeded.
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Error
}

func (s *Session) Requirements() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneRecords(s.state.Requirements)
}

// Pricing returns the latest quote, nil if there is none.
func (s *Session) Pricing() model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pricing.Clone()
}

// OrderStatus returns the latest order confirmation, nil if there is none.
func (s *Session) OrderStatus() model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.OrderStatus.Clone()
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConversationID
}

func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ClientID
}
