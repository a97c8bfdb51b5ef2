// Package cli is the interactive front end of a quoting session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"quotedesk/internal/model"
	"quotedesk/internal/session"
)

const helpText = `Type a message to chat with the sales assistant.
Commands:
  /pricing      quote the collected requirements
  /order        place an order at the current quote
  /reset        start a new conversation
  /client <id>  set the client identifier
  /state        show the session state
  /help         show this help
  /quit         exit`

// REPL reads lines and turns them into session commands. Chat, pricing and
// order commands run in the background; new commands are refused until the
// running one finishes.
type REPL struct {
	sess *session.Session

	outMu sync.Mutex
	out   io.Writer

	// set from launch until the background command returns
	busy        atomic.Bool
	wg          sync.WaitGroup
	unsubscribe func()
}

func NewREPL(sess *session.Session, out io.Writer) *REPL {
	r := &REPL{
		sess: sess,
		out:  out,
	}
	r.unsubscribe = sess.Subscribe(r.render)
	return r
}

func (r *REPL) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// render prints what a mutation tells the user.
func (r *REPL) render(m session.Mutation, st session.State) {
	switch m {
	case session.MutationAddMessage:
		msg := st.Messages[len(st.Messages)-1]
		if !msg.IsUser {
			r.printf("assistant> %s\n", msg.Content)
		}
	case session.MutationSetError:
		if st.Error != "" {
			r.printf("error: %s\n", st.Error)
		}
	case session.MutationAddRequirement:
		req := st.Requirements[len(st.Requirements)-1]
		r.printf("  + requirement: %s\n", requirementName(req))
	case session.MutationSetPricing:
		if st.Pricing != nil {
			r.printf("%s", formatPricing(st.Pricing))
		}
	case session.MutationSetOrderStatus:
		if st.OrderStatus != nil {
			orderID, _ := st.OrderStatus.String("order_id")
			status, _ := st.OrderStatus.String("status")
			r.printf("order %s: %s\n", orderID, status)
		}
	}
}

func requirementName(req model.Record) string {
	if name, ok := req.String("feature_name"); ok {
		return name
	}
	if id, ok := req.String("feature_id"); ok {
		return id
	}
	return "(unnamed)"
}

func formatPricing(pricing model.Record) string {
	var b strings.Builder
	currency, ok := pricing.String("currency")
	if !ok {
		currency = "USD"
	}
	if base, ok := pricing.Float("base_price"); ok {
		fmt.Fprintf(&b, "pricing: base %.2f %s\n", base, currency)
	}
	if breakdown, ok := pricing.Record("breakdown"); ok {
		names := make([]string, 0, len(breakdown))
		for name := range breakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if amount, ok := breakdown.Float(name); ok {
				fmt.Fprintf(&b, "  %-24s %12.2f\n", name, amount)
			}
		}
	}
	if final, ok := pricing.Float("final_price"); ok {
		fmt.Fprintf(&b, "pricing: final %.2f %s\n", final, currency)
	} else {
		b.WriteString("pricing: no final price\n")
	}
	return b.String()
}

// background runs cmd unless another command is still loading.
func (r *REPL) background(ctx context.Context, cmd func(ctx context.Context) error) {
	if r.sess.IsLoading() || !r.busy.CompareAndSwap(false, true) {
		r.printf("busy: wait for the current request to finish\n")
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.busy.Store(false)
		// the session already recorded and rendered the failure
		_ = cmd(ctx)
	}()
}

// Wait blocks until background commands finish.
func (r *REPL) Wait() {
	r.wg.Wait()
}

// Handle executes one input line. It reports false once the user asked to
// quit.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	if !strings.HasPrefix(line, "/") {
		r.background(ctx, func(ctx context.Context) error {
			_, err := r.sess.SendMessage(ctx, line)
			return err
		})
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		r.printf("%s\n", helpText)
	case "/pricing":
		r.background(ctx, func(ctx context.Context) error {
			_, err := r.sess.RequestPricing(ctx)
			return err
		})
	case "/order":
		r.background(ctx, func(ctx context.Context) error {
			_, err := r.sess.CreateOrder(ctx)
			return err
		})
	case "/reset":
		if r.busy.Load() || r.sess.IsLoading() {
			r.printf("busy: wait for the current request to finish\n")
			return true
		}
		r.sess.ResetConversation()
		r.printf("conversation reset\n")
	case "/client":
		if arg == "" {
			r.printf("client: %s\n", valueOrNone(r.sess.ClientID()))
			return true
		}
		r.sess.SetClientID(arg)
		r.printf("client set to %s\n", arg)
	case "/state":
		r.printState()
	default:
		r.printf("unknown command %s, try /help\n", cmd)
	}
	return true
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func (r *REPL) printState() {
	st := r.sess.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "conversation: %s\n", valueOrNone(st.ConversationID))
	fmt.Fprintf(&b, "client:       %s\n", valueOrNone(st.ClientID))
	fmt.Fprintf(&b, "messages:     %d\n", len(st.Messages))
	fmt.Fprintf(&b, "loading:      %t\n", st.IsLoading)
	if st.Error != "" {
		fmt.Fprintf(&b, "error:        %s\n", st.Error)
	}
	fmt.Fprintf(&b, "requirements: %d\n", len(st.Requirements))
	for _, req := range st.Requirements {
		fmt.Fprintf(&b, "  - %s\n", requirementName(req))
	}
	if st.Pricing != nil {
		b.WriteString(formatPricing(st.Pricing))
	}
	if st.OrderStatus != nil {
		orderID, _ := st.OrderStatus.String("order_id")
		status, _ := st.OrderStatus.String("status")
		fmt.Fprintf(&b, "order:        %s (%s)\n", orderID, status)
	}
	r.printf("%s", b.String())
}

// Run reads commands from in until EOF, /quit or ctx ends, then waits for
// the running command.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	defer r.unsubscribe()
	defer r.Wait()

	r.printf("%s\n", helpText)

	// stops the reader without cancelling commands already running
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if !r.Handle(ctx, line) {
				return nil
			}
		}
	}
}
