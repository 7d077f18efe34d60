package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/agendabot/internal/booking"
	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/keylock"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/router"
	"github.com/teemow/agendabot/internal/session"
	"github.com/teemow/agendabot/internal/store"
)

// Defaults for driving a run.
const (
	DefaultRunTimeout   = 30 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 15
)

// Apology is the reply sent when a message could not be answered.
const Apology = "Sorry, I could not process your message right now. Please try again in a few minutes."

// ErrRunTimeout is returned when a run does not finish within the run
// timeout or the poll budget.
var ErrRunTimeout = errors.New("agent run timed out")

// Tools executes operations requested by a run. Only the operations
// AgentDefinitions lists are offered to runs, and AgentAllowed gates every
// call.
type Tools interface {
	Dispatch(ctx context.Context, req router.Request) router.Envelope
	AgentDefinitions() []router.Definition
	AgentAllowed(name string) bool
}

// BusinessDirectory looks up business configuration.
type BusinessDirectory interface {
	GetBusinessConfig(ctx context.Context, businessID string) (*store.BusinessConfig, error)
}

// Inbound is one message from a customer.
type Inbound struct {
	Sender string
	Text   string
	// BusinessID is the business the messaging platform routed the message
	// to. Empty uses the configured default business.
	BusinessID string
}

// Config configures a Dispatcher.
type Config struct {
	Service    Service
	Tools      Tools
	Sessions   session.Store
	Businesses BusinessDirectory

	DefaultBusinessID  string
	DefaultAssistantID string

	RunTimeout   time.Duration
	PollInterval time.Duration
	MaxPolls     int

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	Clock   booking.Clock
}

// Dispatcher answers inbound messages through agent runs. It is safe for
// concurrent use; messages from the same sender are handled one at a time.
type Dispatcher struct {
	service    Service
	tools      Tools
	sessions   session.Store
	businesses BusinessDirectory
	senders    *keylock.Map

	defaultBusinessID  string
	defaultAssistantID string

	runTimeout   time.Duration
	pollInterval time.Duration
	maxPolls     int

	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     booking.Clock
}

// NewDispatcher validates cfg and applies defaults.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Service == nil {
		return nil, errors.New("agent service is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("tools are required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore(session.DefaultMemorySize, session.DefaultTTL)
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Dispatcher{
		service:            cfg.Service,
		tools:              cfg.Tools,
		sessions:           cfg.Sessions,
		businesses:         cfg.Businesses,
		senders:            keylock.New(),
		defaultBusinessID:  cfg.DefaultBusinessID,
		defaultAssistantID: cfg.DefaultAssistantID,
		runTimeout:         cfg.RunTimeout,
		pollInterval:       cfg.PollInterval,
		maxPolls:           cfg.MaxPolls,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger.With("component", "agent"),
		now:                cfg.Clock,
	}, nil
}

// conversation is the routing state of one HandleMessage call.
type conversation struct {
	sender       string
	businessID   string
	businessName string
	threadID     string
}

// HandleMessage answers in. On failure it returns Apology together with the
// error, so callers can always send the reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, in Inbound) (string, error) {
	if strings.TrimSpace(in.Sender) == "" {
		return Apology, errors.New("sender is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return Apology, errors.New("message text is required")
	}

	businessID := in.BusinessID
	if businessID == "" {
		businessID = d.defaultBusinessID
	}
	if businessID == "" {
		return Apology, errors.New("no business id for message and no default business configured")
	}

	unlock, err := d.senders.Lock(ctx, in.Sender)
	if err != nil {
		return Apology, fmt.Errorf("failed to wait for sender lock: %w", err)
	}
	defer unlock()

	logger := logging.WithBusiness(d.logger, businessID).With(logging.SenderHash(in.Sender))

	conv, assistantID, err := d.openConversation(ctx, logger, in.Sender, businessID)
	if err != nil {
		logger.Error("failed to open conversation", logging.Err(err))
		return Apology, err
	}

	if err := d.service.AddMessage(ctx, conv.threadID, in.Text); err != nil {
		logger.Error("failed to add message", logging.Err(err))
		return Apology, err
	}
	if err := d.service.AddMessage(ctx, conv.threadID, d.contextMessage(conv)); err != nil {
		logger.Error("failed to add context message", logging.Err(err))
		return Apology, err
	}

	reply, err := d.execute(ctx, logger, conv, assistantID)
	if err != nil {
		logger.Error("agent run failed", logging.Err(err))
		return Apology, err
	}
	if strings.TrimSpace(reply) == "" {
		logger.Warn("agent run completed without a reply")
		return Apology, errors.New("agent run completed without a reply")
	}
	return reply, nil
}

// openConversation resolves the assistant and returns the sender's
// thread, creating one when there is none or the assistant changed.
func (d *Dispatcher) openConversation(ctx context.Context, logger *slog.Logger, sender, businessID string) (conversation, string, error) {
	conv := conversation{sender: sender, businessID: businessID}

	assistantID := d.defaultAssistantID
	if d.businesses != nil {
		cfg, err := d.businesses.GetBusinessConfig(ctx, businessID)
		switch {
		case err == nil:
			conv.businessName = cfg.Name
			if cfg.AssistantID != "" {
				assistantID = cfg.AssistantID
			}
		case errors.Is(err, store.ErrNotFound):
			logger.Warn("business not configured, using default assistant")
		default:
			return conv, "", fmt.Errorf("failed to load business config: %w", err)
		}
	}
	if assistantID == "" {
		return conv, "", fmt.Errorf("no assistant configured for business %s", businessID)
	}

	sess, err := d.sessions.Get(ctx, sender)
	if err != nil {
		return conv, "", fmt.Errorf("failed to load session: %w", err)
	}

	switch {
	case sess == nil:
		logger.Debug("starting new thread")
	case sess.AssistantID != assistantID:
		logger.Info("assistant changed, starting new thread",
			"previous_assistant", sess.AssistantID, "assistant", assistantID)
		sess = nil
	case sess.BusinessID != businessID:
		logger.Warn("session business differs from routed business, keeping thread",
			"session_business", sess.BusinessID)
	}

	if sess == nil {
		threadID, err := d.service.CreateThread(ctx)
		if err != nil {
			return conv, "", err
		}
		sess = &session.Session{Sender: sender, ThreadID: threadID, AssistantID: assistantID}
	}
	sess.BusinessID = businessID
	sess.UpdatedAt = d.now()
	if err := d.sessions.Put(ctx, *sess); err != nil {
		return conv, "", fmt.Errorf("failed to save session: %w", err)
	}

	conv.threadID = sess.ThreadID
	return conv, assistantID, nil
}

func (d *Dispatcher) contextMessage(conv conversation) string {
	today := d.now().In(booking.Location())
	var b strings.Builder
	fmt.Fprintf(&b, "[System context] Today is %s (%s), timezone %s.\n",
		today.Format("2006-01-02"), booking.WeekdayName(today), booking.OperatingTimezone)
	fmt.Fprintf(&b, "Business ID: %s", conv.businessID)
	if conv.businessName != "" {
		fmt.Fprintf(&b, " (%s)", conv.businessName)
	}
	b.WriteString(". Use this business ID for every calendar operation.\n")
	fmt.Fprintf(&b, "Customer phone: %s.", conv.sender)
	return b.String()
}

// execute starts a run and drives it to a final state.
func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, conv conversation, assistantID string) (reply string, err error) {
	ctx, span := instrumentation.StartAgentSpan(ctx, "run",
		attribute.String(instrumentation.SpanAttrThread, conv.threadID),
		attribute.String(instrumentation.SpanAttrBusiness, conv.businessID),
	)
	defer span.End()

	start := time.Now()
	d.metrics.AgentRunStarted(ctx)
	status := string(RunFailed)
	defer func() {
		d.metrics.AgentRunFinished(ctx, status, time.Since(start))
		span.SetAttributes(attribute.String(instrumentation.SpanAttrStatus, status))
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
	}()

	run, err := d.service.CreateRun(ctx, conv.threadID, RunRequest{
		AssistantID: assistantID,
		Tools:       d.tools.AgentDefinitions(),
	})
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String(instrumentation.SpanAttrRun, run.ID))
	logger = logger.With("run_id", run.ID)

	run, err = d.drive(ctx, logger, conv, run)
	if run != nil {
		status = string(run.Status)
	}
	if errors.Is(err, ErrRunTimeout) {
		status = "timeout"
	}
	if err != nil {
		return "", err
	}

	return d.service.RunReply(ctx, conv.threadID, run.ID)
}

// drive follows run until it completes. Waiting is bounded by the run
// timeout and the poll budget and aborts when ctx is canceled.
func (d *Dispatcher) drive(ctx context.Context, logger *slog.Logger, conv conversation, run *Run) (*Run, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.runTimeout)
	defer cancel()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		switch run.Status {
		case RunCompleted:
			return run, nil
		case RunRequiresAction:
			if runCtx.Err() != nil {
				if ctx.Err() != nil {
					return run, ctx.Err()
				}
				return run, fmt.Errorf("%w: tool calls pending after %s", ErrRunTimeout, d.runTimeout)
			}
			outputs := d.answerToolCalls(runCtx, logger, conv, run.ToolCalls)
			next, err := d.service.SubmitToolOutputs(runCtx, conv.threadID, run.ID, outputs)
			if err != nil {
				return run, err
			}
			run = next
			continue
		}
		if run.Status.Terminal() {
			if run.LastError != "" {
				return run, fmt.Errorf("run %s ended with status %s: %s", run.ID, run.Status, run.LastError)
			}
			return run, fmt.Errorf("run %s ended with status %s", run.ID, run.Status)
		}

		if polls >= d.maxPolls {
			return run, fmt.Errorf("%w: still %s after %d polls", ErrRunTimeout, run.Status, polls)
		}
		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				return run, ctx.Err()
			}
			return run, fmt.Errorf("%w: still %s after %s", ErrRunTimeout, run.Status, d.runTimeout)
		case <-ticker.C:
		}
		polls++

		next, err := d.service.GetRun(runCtx, conv.threadID, run.ID)
		if err != nil {
			if ctx.Err() == nil && runCtx.Err() != nil {
				return run, fmt.Errorf("%w: %v", ErrRunTimeout, err)
			}
			return run, err
		}
		run = next
	}
}

// answerToolCalls returns exactly one output per call, in call order.
func (d *Dispatcher) answerToolCalls(ctx context.Context, logger *slog.Logger, conv conversation, calls []ToolCall) []ToolOutput {
	outputs := make([]ToolOutput, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, ToolOutput{
			ToolCallID: call.ID,
			Output:     d.answerToolCall(ctx, logger, conv, call),
		})
	}
	return outputs
}

func (d *Dispatcher) answerToolCall(ctx context.Context, logger *slog.Logger, conv conversation, call ToolCall) (output string) {
	logger = logging.WithTool(logger, call.Name)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool call panicked", "panic", rec)
			output = errorOutput(fmt.Sprintf("internal error handling %s", call.Name))
		}
	}()

	if !d.tools.AgentAllowed(call.Name) {
		logger.Warn("agent requested an operation it may not call")
		return errorOutput(fmt.Sprintf("operation %s is not available", call.Name))
	}

	args, patch, err := prepareArguments(call.Arguments, conv.businessID, conv.sender)
	if err != nil {
		logger.Warn("tool call with unreadable arguments", logging.Err(err))
		return errorOutput(err.Error())
	}
	if patch.OverriddenBusiness != "" {
		logger.Warn("replaced business id supplied by agent", "agent_business", patch.OverriddenBusiness)
	}

	env := d.tools.Dispatch(ctx, router.Request{
		Name:      call.Name,
		Arguments: args,
		Sender:    conv.sender,
		Source:    instrumentation.SourceAgent,
	})
	return env.JSON()
}

func errorOutput(msg string) string {
	out, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return string(out)
}
