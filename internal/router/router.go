package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/teemow/agendabot/internal/booking"
	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// Engine is the booking functionality the router dispatches to.
type Engine interface {
	CheckAvailability(ctx context.Context, businessID, date string) (*booking.DayAvailability, error)
	MonthAvailability(ctx context.Context, businessID, startDate, endDate string) (*booking.MonthView, error)
	ListCalendarEvents(ctx context.Context, businessID, startDate, endDate string) ([]booking.DayEvent, error)
	CreateEvent(ctx context.Context, businessID string, details booking.EventDetails) (*booking.Booking, error)
	DeleteEvent(ctx context.Context, businessID, eventID string) (*booking.Cancellation, error)
	FindCustomerAppointments(ctx context.Context, businessID, phone string) ([]booking.Appointment, error)
	AssistantCalendarInfo(ctx context.Context, businessID, date string) (*booking.CalendarInfo, error)
	GetBusinessHours(ctx context.Context, businessID string) (*store.BusinessHours, error)
	SaveBusinessHours(ctx context.Context, businessID string, hours store.WeeklyHours, allowOverlapping bool, maxOverlapping int) (*store.BusinessHours, error)
	ListAppointmentTypes(ctx context.Context, businessID string) ([]store.AppointmentType, error)
	SaveAppointmentType(ctx context.Context, t store.AppointmentType) (*store.AppointmentType, error)
	DeleteAppointmentType(ctx context.Context, businessID, id string) error
}

// Request is one operation call.
type Request struct {
	Name      string
	Arguments json.RawMessage
	// Sender and Source are recorded in the audit log only.
	Sender string
	Source string
}

// Definition describes an operation as a function tool.
type Definition struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]any
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (Envelope, error)

type operation struct {
	description string
	parameters  map[string]any
	calendar    bool
	// admin operations change business settings or expose other
	// customers' data. They are never offered to agent runs.
	admin  bool
	handle handlerFunc
}

// Router dispatches operations. It is safe for concurrent use.
type Router struct {
	engine  Engine
	ops     map[string]operation
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records a tool call metric per dispatch.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithAuditLogger writes an audit line per dispatch.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(r *Router) { r.audit = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New returns a Router over engine.
func New(engine Engine, opts ...Option) *Router {
	r := &Router{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	r.ops = r.operations()
	return r
}

// Dispatch runs one operation and always returns an envelope.
func (r *Router) Dispatch(ctx context.Context, req Request) (env Envelope) {
	businessID := peekBusinessID(req.Arguments)
	ctx, span := instrumentation.StartToolSpan(ctx, req.Name, businessID)
	defer span.End()

	invocation := instrumentation.NewToolInvocation(req.Name).
		WithBusiness(businessID).
		WithSender(req.Sender, req.Source).
		WithSpanContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("operation panicked", logging.Tool(req.Name),
				"panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			env = Envelope{"success": false, "error": fmt.Sprintf("internal error while running %s", req.Name), "error_kind": KindInternal}
		}

		invocation.Complete(env.Success(), env.ErrorMessage(), env.ErrorKind())
		r.metrics.RecordToolCall(ctx, req.Name, invocation.Status(), businessID, invocation.Duration)
		r.audit.LogToolInvocation(invocation)
		if env.Success() {
			instrumentation.SetSpanSuccess(span)
		} else {
			instrumentation.SetSpanError(span, fmt.Errorf("%s: %s", env.ErrorKind(), env.ErrorMessage()))
		}
	}()

	op, ok := r.ops[req.Name]
	if !ok {
		return Failure(booking.RoutingError("unknown operation %q", req.Name))
	}
	result, err := op.handle(ctx, req.Arguments)
	if err != nil {
		r.logger.Debug("operation failed", logging.Tool(req.Name), logging.Business(businessID), logging.Err(err))
		return Failure(err)
	}
	result["success"] = true
	return result
}

// Definitions returns every operation as a function tool, sorted by name.
func (r *Router) Definitions() []Definition {
	return r.definitions(func(operation) bool { return true })
}

// AgentDefinitions returns the operations a customer-facing agent may
// call, sorted by name.
func (r *Router) AgentDefinitions() []Definition {
	return r.definitions(func(op operation) bool { return !op.admin })
}

func (r *Router) definitions(keep func(operation) bool) []Definition {
	defs := make([]Definition, 0, len(r.ops))
	for name, op := range r.ops {
		if keep(op) {
			defs = append(defs, Definition{Name: name, Description: op.description, Parameters: op.parameters})
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// AgentAllowed reports whether name is an operation agents may call.
func (r *Router) AgentAllowed(name string) bool {
	op, ok := r.ops[name]
	return ok && !op.admin
}

// Has reports whether name is a known operation.
func (r *Router) Has(name string) bool {
	_, ok := r.ops[name]
	return ok
}

// IsCalendarOperation reports whether name reads or writes a business's
// calendar.
func (r *Router) IsCalendarOperation(name string) bool {
	return r.ops[name].calendar
}

// peekBusinessID reads businessId from raw arguments for labelling.
func peekBusinessID(args json.RawMessage) string {
	var peek struct {
		BusinessID string `json:"businessId"`
	}
	if len(args) == 0 || json.Unmarshal(args, &peek) != nil {
		return ""
	}
	return peek.BusinessID
}

// decode unmarshals args into v. Empty arguments leave v untouched.
func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return booking.ValidationError("invalid_arguments", "invalid arguments: %v", err)
	}
	return nil
}
