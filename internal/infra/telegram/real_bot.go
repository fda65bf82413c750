package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-coin-bot/internal/application"
	"telegram-coin-bot/internal/config"
	"telegram-coin-bot/internal/domain/ports/adapter"
	"telegram-coin-bot/internal/infra/i18n"
	"telegram-coin-bot/internal/infra/logging"
	"telegram-coin-bot/internal/infra/metrics"
	red "telegram-coin-bot/internal/infra/redis"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to
// BotFacade.Dispatch. It owns nothing but transport concerns: worker fan-out,
// per-user rate limiting and reply delivery.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.Config
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	tr          *i18n.Translator
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.Config,
	facade *application.BotFacade,
	rateLimiter *red.RateLimiter,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, err
	}

	workers := cfg.Bot.Workers
	if workers <= 0 {
		workers = 5
	}

	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		facade:        facade,
		rateLimiter:   rateLimiter,
		tr:            tr,
		log:           logger,
		updateWorkers: workers,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	if err := r.setMenuCommands(); err != nil {
		r.log.Warn().Err(err).Msg("failed to set menu commands")
	}

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	msg := up.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}
	// Commands are only served in private chats, never in groups.
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}

	command := msg.Command()
	senderID := msg.From.ID

	ctx = logging.WithTgID(ctx, senderID)
	log := logging.With(ctx, r.log)

	if r.rateLimiter != nil {
		key := red.UserCommandKey(senderID, command)
		allowed, err := r.rateLimiter.Allow(ctx, key, r.cfg.RateLimit.PerCommand, r.cfg.RateLimit.Window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, letting command through")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.SendMessage(ctx, msg.Chat.ID, r.tr.T("error_rate_limited"))
		}
	}

	from := application.Sender{ID: senderID, Username: msg.From.UserName}
	args := strings.Fields(msg.CommandArguments())

	text, err := r.facade.Dispatch(ctx, command, from, args)
	if err != nil {
		// The facade already produced a user-facing reply; the error itself is
		// a storage failure that belongs in the logs.
		log.Error().Err(err).Str("command", command).Msg("dispatch failed")
	}
	if text == "" {
		return nil
	}
	return r.SendMessage(ctx, msg.Chat.ID, text)
}

// SendMessage implements the adapter port.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	msg := tgbotapi.NewMessage(tgID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			switch {
			case btn.URL != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			case btn.Data != "":
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			default:
				kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Text))
			}
		}
		kbRows = append(kbRows, kbRow)
	}

	msg := tgbotapi.NewMessage(tgID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

// setMenuCommands publishes the user-facing command menu.
func (r *RealTelegramBotAdapter) setMenuCommands() error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Main menu"},
		tgbotapi.BotCommand{Command: "profile", Description: "My profile"},
		tgbotapi.BotCommand{Command: "balance", Description: "My balance"},
		tgbotapi.BotCommand{Command: "referrals", Description: "My referrals"},
		tgbotapi.BotCommand{Command: "help", Description: "Help"},
	)
	_, err := r.bot.Request(cmds)
	return err
}
