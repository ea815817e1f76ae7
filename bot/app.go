package bot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prepline/prepbot/catalog"
	"github.com/prepline/prepbot/chat"
	"github.com/prepline/prepbot/config"
	"github.com/prepline/prepbot/gate"
	"github.com/prepline/prepbot/internal/cache"
	"github.com/prepline/prepbot/internal/metrics"
	"github.com/prepline/prepbot/internal/store"
	"github.com/prepline/prepbot/llm"
	"github.com/prepline/prepbot/llm/tokenizer"
	"github.com/prepline/prepbot/stream"
)

// Deps are the collaborators the app composes. Dedup and Store may be
// nil: deduplication and analytics are then skipped.
type Deps struct {
	Logger    *zap.Logger
	Provider  llm.Provider
	Transport chat.Transport
	Gate      *gate.Engine
	Catalog   *catalog.Catalog
	Store     *store.Store
	Dedup     *cache.Dedup
	Metrics   *metrics.Collector
	Estimator tokenizer.Estimator
}

// App is the assembled bot.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	provider  llm.Provider
	transport chat.Transport
	gate      *gate.Engine
	catalog   *catalog.Catalog
	store     *store.Store
	dedup     *cache.Dedup
	metrics   *metrics.Collector
	tracer    trace.Tracer
	estimator tokenizer.Estimator
}

// New assembles the app from its dependencies.
func New(cfg *config.Config, deps Deps) *App {
	return &App{
		cfg:       cfg,
		logger:    deps.Logger.With(zap.String("component", "bot")),
		provider:  deps.Provider,
		transport: meteredTransport{inner: deps.Transport, metrics: deps.Metrics},
		gate:      deps.Gate,
		catalog:   deps.Catalog,
		store:     deps.Store,
		dedup:     deps.Dedup,
		metrics:   deps.Metrics,
		tracer:    otel.Tracer("prepbot/bot"),
		estimator: deps.Estimator,
	}
}

// HandleUpdate processes one webhook update end to end.
func (a *App) HandleUpdate(ctx context.Context, upd *chat.Update) {
	if upd == nil || upd.Message == nil || strings.TrimSpace(upd.Message.Text) == "" {
		a.metrics.RecordUpdate("ignored")
		return
	}
	if a.dedup != nil && a.dedup.Seen(ctx, upd.UpdateID) {
		a.metrics.RecordUpdate("duplicate")
		a.logger.Debug("duplicate update dropped", zap.Int64("update_id", upd.UpdateID))
		return
	}

	msg := upd.Message
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		a.metrics.RecordUpdate("command")
		a.handleCommand(ctx, msg.Chat.ID, text)
		return
	}

	a.metrics.RecordUpdate("text")
	a.handleText(ctx, msg.Chat.ID, text)
}

// handleText runs the reply pipeline: gate first, then a streamed model
// answer with live edits, then gear suggestions.
func (a *App) handleText(ctx context.Context, chatID int64, text string) {
	ctx, span := a.tracer.Start(ctx, "bot.handle_text",
		trace.WithAttributes(attribute.Int("request.chars", len(text))))
	defer span.End()

	start := time.Now()

	if err := a.transport.SendChatAction(ctx, chatID, chat.ActionTyping); err != nil {
		a.logger.Debug("chat action failed", zap.Error(err))
	}

	cls := a.gate.Evaluate(text)
	a.metrics.RecordGateOutcome(string(cls.Outcome), cls.Rule)
	span.SetAttributes(
		attribute.String("gate.outcome", string(cls.Outcome)),
		attribute.String("gate.rule", cls.Rule),
	)

	switch cls.Outcome {
	case gate.Rejected:
		a.sendCanned(ctx, chatID, gate.NudgeText(), store.KindNudge, cls.Rule)
		return
	case gate.Redirect:
		a.sendCanned(ctx, chatID, gate.RedirectText(), store.KindRedirect, cls.Rule)
		return
	}

	a.answer(ctx, chatID, text, cls.Rule, start)
}

// answer streams the model reply into one edited message.
func (a *App) answer(ctx context.Context, chatID int64, text, rule string, start time.Time) {
	msgID, err := a.transport.SendMessage(ctx, chatID, a.cfg.Stream.Placeholder)
	if err != nil {
		a.logger.Error("placeholder send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	req := a.buildRequest(text)
	tokenizer.ClampMaxTokens(a.estimator, req)

	streamCtx, cancel := context.WithTimeout(ctx, a.cfg.Stream.SessionTimeout)
	defer cancel()

	ch, err := a.provider.Stream(streamCtx, req)
	if err != nil {
		a.failSession(ctx, chatID, msgID, err, "upstream")
		return
	}

	session := stream.NewSession(a.transport, chatID, msgID, a.cfg.Stream, a.logger)
	var usage *llm.ChatUsage
	var streamErr error

	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
			break
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if session.Append(chunk.Delta.Content) {
			// Cap reached: release the upstream stream instead of
			// waiting it out.
			cancel()
			break
		}
		if err := session.Render(streamCtx); err != nil {
			a.failSession(ctx, chatID, msgID, err, "transport")
			return
		}
	}

	if streamErr != nil {
		a.failSession(ctx, chatID, msgID, streamErr, "upstream")
		return
	}
	timedOut := streamCtx.Err() == context.DeadlineExceeded
	if timedOut {
		a.metrics.RecordStreamFailure("timeout")
		a.logger.Warn("session timed out, delivering partial reply",
			zap.Int64("chat_id", chatID), zap.Int("chars", session.Len()))
	}

	// Finalize on the parent context: the stream context may already be
	// cancelled by the cap or the timeout.
	if err := session.Finalize(ctx); err != nil {
		a.failSession(ctx, chatID, msgID, err, "transport")
		return
	}

	if session.Truncated() {
		a.metrics.RecordTruncation()
	}
	a.metrics.RecordSession(time.Since(start), session.Len())
	if usage != nil {
		model := req.Model
		if model == "" {
			model = a.cfg.Ollama.Model
		}
		a.metrics.RecordLLMRequest(a.provider.Name(), model, time.Since(start),
			usage.PromptTokens, usage.CompletionTokens)
	}

	a.suggestGear(ctx, chatID, text)

	a.recordInteraction(ctx, store.Interaction{
		ChatID:    chatID,
		Kind:      store.KindReply,
		Rule:      rule,
		Chars:     session.Len(),
		Truncated: session.Truncated(),
		Duration:  time.Since(start),
	})
}

// buildRequest maps the bot's generation settings onto one request.
func (a *App) buildRequest(text string) *llm.ChatRequest {
	return &llm.ChatRequest{
		TraceID: uuid.NewString(),
		Model:   a.cfg.Bot.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.cfg.Bot.SystemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens:     a.cfg.Bot.MaxTokens,
		ContextWindow: a.cfg.Bot.ContextWindow,
		Temperature:   a.cfg.Bot.Temperature,
		TopP:          a.cfg.Bot.TopP,
		RepeatPenalty: a.cfg.Bot.RepeatPenalty,
	}
}

// failSession surfaces a model failure in the placeholder message. When
// the edit itself fails, a fresh message is sent instead.
func (a *App) failSession(ctx context.Context, chatID int64, msgID int, cause error, reason string) {
	a.metrics.RecordStreamFailure(reason)
	a.logger.Error("stream failed", zap.Int64("chat_id", chatID), zap.Error(cause))

	text := "Model error: " + cause.Error()
	if err := a.transport.EditMessage(ctx, chatID, msgID, text); err != nil {
		if _, err := a.transport.SendMessage(ctx, chatID, text); err != nil {
			a.logger.Error("error report failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	a.recordInteraction(ctx, store.Interaction{ChatID: chatID, Kind: store.KindError})
}

// sendCanned delivers a fixed gate response.
func (a *App) sendCanned(ctx context.Context, chatID int64, text, kind, rule string) {
	if _, err := a.transport.SendMessage(ctx, chatID, text); err != nil {
		a.logger.Error("canned send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	a.recordInteraction(ctx, store.Interaction{ChatID: chatID, Kind: kind, Rule: rule})
}

// suggestGear appends matching catalog links after a delivered reply.
func (a *App) suggestGear(ctx context.Context, chatID int64, text string) {
	items := a.catalog.Suggest(text, a.cfg.Bot.MaxSuggests)
	if len(items) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("Gear that can help:")
	for _, item := range items {
		b.WriteString("\n• ")
		b.WriteString(item.Title)
		b.WriteString("\n  ")
		b.WriteString(item.URL)
	}
	if _, err := a.transport.SendMessage(ctx, chatID, b.String()); err != nil {
		a.logger.Warn("suggestion send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (a *App) recordInteraction(ctx context.Context, in store.Interaction) {
	if a.store == nil {
		return
	}
	a.store.RecordInteraction(ctx, in)
}
