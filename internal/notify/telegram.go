package notify

import (
	"context"
	"fmt"
	"strings"

	"bistro/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// telegramSender is satisfied by *tgbotapi.BotAPI.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a short order summary to an admin chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
	logger zerolog.Logger
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, logger), nil
}

func newTelegramNotifier(bot telegramSender, chatID int64, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With().Str("notifier", "telegram").Logger(),
	}
}

// OrderPlaced implements Notifier.
func (n *TelegramNotifier) OrderPlaced(ctx context.Context, order *model.Order) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatOrderText(order))

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}

	n.logger.Debug().Str("order_id", order.ID.String()).Msg("telegram notification sent")

	return nil
}

// FormatOrderText renders a plain-text order summary.
func FormatOrderText(order *model.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New order from %s\n", order.CustomerName)
	if order.CustomerEmail != nil && *order.CustomerEmail != "" {
		fmt.Fprintf(&b, "Email: %s\n", *order.CustomerEmail)
	}
	if order.Notes != nil && *order.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", *order.Notes)
	}
	b.WriteString("\n")

	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", item.Quantity, item.DishName, item.Subtotal().StringFixed(2))
		if item.Note != "" {
			fmt.Fprintf(&b, "   (%s)\n", item.Note)
		}
	}

	fmt.Fprintf(&b, "\nTotal: %s\nOrder: %s", order.Total().StringFixed(2), order.ID)

	return b.String()
}
