package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/agendabot/internal/logging"
)

// Tool call sources.
const (
	SourceAgent = "agent"
	SourceMCP   = "mcp"
	SourceCLI   = "cli"
)

// ToolInvocation captures one router operation for audit logging.
type ToolInvocation struct {
	Tool       string
	BusinessID string
	Sender     string // raw sender identity; hashed unless PII logging is on
	Source     string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	ErrorKind string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing an invocation of tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithBusiness sets the business the call was routed to.
func (ti *ToolInvocation) WithBusiness(businessID string) *ToolInvocation {
	ti.BusinessID = businessID
	return ti
}

// WithSender sets the sender identity and the call source.
func (ti *ToolInvocation) WithSender(sender, source string) *ToolInvocation {
	ti.Sender = sender
	ti.Source = source
	return ti
}

// WithSpanContext copies trace and span ids from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the timer and records the outcome.
func (ti *ToolInvocation) Complete(success bool, errMsg, errKind string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	ti.Error = errMsg
	ti.ErrorKind = errKind
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes of the invocation. The sender is hashed
// unless includePII is set.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		logging.Tool(ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.BusinessID != "" {
		attrs = append(attrs, logging.Business(ti.BusinessID))
	}
	if ti.Sender != "" {
		if includePII {
			attrs = append(attrs, slog.String("sender", ti.Sender))
		} else {
			attrs = append(attrs, logging.SenderHash(ti.Sender))
		}
	}
	if ti.Source != "" {
		attrs = append(attrs, slog.String("source", ti.Source))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error), slog.String("error_kind", ti.ErrorKind))
	}
	return attrs
}

// AuditLogger writes one structured line per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger writing to logger.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, includePII: config.IncludePII, enabled: config.Enabled}
}

// LogToolInvocation logs ti at info level on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs(al.includePII)...)
}
