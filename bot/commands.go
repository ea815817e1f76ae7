package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/prepline/prepbot/gate"
	"github.com/prepline/prepbot/internal/store"
)

const welcomeText = "Hi! I'm PrepBot. Ask me anything about emergency preparedness:\n" +
	"power outages, storm prep, go-bags, water storage, first aid basics.\n\n" +
	"Commands:\n" +
	"/topics — example scenarios\n" +
	"/buy <keyword> — quick gear links (try /buy radio)\n" +
	"/subscribe — occasional preparedness tips\n" +
	"/help — this message"

// handleCommand dispatches one slash command. Telegram may suffix
// commands with the bot username in group chats; the suffix is ignored.
func (a *App) handleCommand(ctx context.Context, chatID int64, text string) {
	name, arg, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(strings.ToLower(name), "@")
	arg = strings.TrimSpace(arg)

	var reply string
	switch name {
	case "/start", "/help":
		reply = welcomeText
	case "/topics":
		reply = gate.TopicsText()
	case "/buy":
		reply = a.buyText(arg)
	case "/subscribe":
		reply = a.subscribeText(ctx, chatID)
	case "/unsubscribe":
		reply = a.unsubscribeText(ctx, chatID)
	default:
		reply = "Unknown command. Send /help for what I can do."
	}

	if _, err := a.transport.SendMessage(ctx, chatID, reply); err != nil {
		a.logger.Error("command reply failed",
			zap.Int64("chat_id", chatID), zap.String("command", name), zap.Error(err))
		return
	}
	a.recordInteraction(ctx, store.Interaction{ChatID: chatID, Kind: store.KindCommand, Rule: name})
}

func (a *App) buyText(query string) string {
	if query == "" {
		return "Tell me what you're after, e.g. /buy radio or /buy first aid."
	}
	items := a.catalog.Suggest(query, 3)
	if len(items) == 0 {
		return "No matching gear for that. Try /buy radio, /buy water, or /buy first aid."
	}
	var b strings.Builder
	b.WriteString("Here's what I'd look at:")
	for _, item := range items {
		b.WriteString("\n• ")
		b.WriteString(item.Title)
		if item.Notes != "" {
			b.WriteString("\n  ")
			b.WriteString(item.Notes)
		}
		b.WriteString("\n  ")
		b.WriteString(item.URL)
	}
	return b.String()
}

func (a *App) subscribeText(ctx context.Context, chatID int64) string {
	if a.store == nil {
		return "Subscriptions aren't available right now."
	}
	added, err := a.store.Subscribe(ctx, chatID)
	if err != nil {
		a.logger.Error("subscribe failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong, please try again later."
	}
	if !added {
		return "You're already subscribed. Send /unsubscribe to stop."
	}
	return "Subscribed! I'll send occasional preparedness tips. Send /unsubscribe to stop."
}

func (a *App) unsubscribeText(ctx context.Context, chatID int64) string {
	if a.store == nil {
		return "Subscriptions aren't available right now."
	}
	removed, err := a.store.Unsubscribe(ctx, chatID)
	if err != nil {
		a.logger.Error("unsubscribe failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Something went wrong, please try again later."
	}
	if !removed {
		return "You weren't subscribed."
	}
	return "Unsubscribed. Send /subscribe any time to opt back in."
}
