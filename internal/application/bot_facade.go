package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telegram-coin-bot/internal/domain"
	"telegram-coin-bot/internal/domain/model"
	"telegram-coin-bot/internal/infra/i18n"
	"telegram-coin-bot/internal/infra/metrics"
	"telegram-coin-bot/internal/usecase"
)

// listPageSize caps chat list replies; the remainder is shown as "+N more".
const listPageSize = 30

// Sender identifies the author of an incoming command.
type Sender struct {
	ID       int64
	Username string
}

// BotFacade composes usecases into bot commands. It is the command router:
// stateless between invocations, directly unit-testable without a live
// transport. Facade methods return strings so the Telegram adapter just
// forwards them to the chat.
type BotFacade struct {
	ProfileUC usecase.ProfileUseCase
	WalletUC  usecase.WalletUseCase
	StatsUC   usecase.StatsUseCase

	tr         *i18n.Translator
	admins     map[int64]struct{}
	channelURL string
}

func NewBotFacade(
	profileUC usecase.ProfileUseCase,
	walletUC usecase.WalletUseCase,
	statsUC usecase.StatsUseCase,
	tr *i18n.Translator,
	adminIDs []int64,
	channelURL string,
) *BotFacade {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &BotFacade{
		ProfileUC:  profileUC,
		WalletUC:   walletUC,
		StatsUC:    statsUC,
		tr:         tr,
		admins:     admins,
		channelURL: channelURL,
	}
}

// IsAdmin reports whether the sender may run admin commands.
func (b *BotFacade) IsAdmin(tgID int64) bool {
	_, ok := b.admins[tgID]
	return ok
}

type commandHandler func(ctx context.Context, from Sender, args []string) (string, error)

type route struct {
	fn    commandHandler
	admin bool
}

func (b *BotFacade) routes() map[string]route {
	return map[string]route{
		"start":     {fn: b.handleStart},
		"profile":   {fn: b.handleProfile},
		"balance":   {fn: b.handleBalance},
		"referrals": {fn: b.handleReferrals},
		"help":      {fn: b.handleHelp},

		"admin_stats":           {fn: b.handleAdminStats, admin: true},
		"admin_users":           {fn: b.handleAdminUsers, admin: true},
		"admin_help":            {fn: b.handleAdminHelp, admin: true},
		"grant":                 {fn: b.handleGrant, admin: true},
		"add_referral_earnings": {fn: b.handleAddReferralEarnings, admin: true},
		"set_referral_percent":  {fn: b.handleSetReferralPercent, admin: true},
	}
}

// Dispatch resolves a command to its handler, enforces admin authorization
// (fail closed: non-admins get the fixed reply and no handler runs) and maps
// domain.ErrNotFound to the "not registered" reply. Storage errors propagate
// to the caller together with a generic reply text; they never crash the
// dispatch loop.
func (b *BotFacade) Dispatch(ctx context.Context, command string, from Sender, args []string) (string, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), "/"))

	r, ok := b.routes()[name]
	if !ok {
		// Command names are user input; unrecognized ones collapse into a
		// single label value to keep the counter cardinality bounded.
		metrics.IncTelegramCommand("unknown")
		return b.tr.T("error_unknown_command"), nil
	}
	metrics.IncTelegramCommand(name)
	if r.admin {
		if !b.IsAdmin(from.ID) {
			metrics.IncAdminCommand(name, "unauthorized")
			return b.tr.T("error_unauthorized"), nil
		}
		metrics.IncAdminCommand(name, "authorized")
	}

	text, err := r.fn(ctx, from, args)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("error_not_registered"), nil
		}
		return b.tr.T("error_generic"), err
	}
	return text, nil
}

func (b *BotFacade) handleStart(ctx context.Context, from Sender, args []string) (string, error) {
	refCode := ""
	if len(args) > 0 {
		refCode = strings.TrimSpace(args[0])
	}
	p, err := b.ProfileUC.RegisterOrFetch(ctx, from.ID, from.Username, refCode)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	if b.channelURL != "" {
		return b.tr.T("welcome_channel", p.ReferralCode, p.Balance, b.channelURL), nil
	}
	return b.tr.T("welcome", p.ReferralCode, p.Balance), nil
}

func (b *BotFacade) handleProfile(ctx context.Context, from Sender, _ []string) (string, error) {
	p, err := b.ProfileUC.GetByTelegramID(ctx, from.ID)
	if err != nil {
		return "", err
	}
	text := b.tr.T("profile", p.TelegramID, p.ReferralCode, p.Balance, p.InvitedCount, p.ReferralEarnings)
	if p.InvitedBy != "" {
		text += b.tr.T("profile_invited_by", p.InvitedBy)
	} else {
		text += b.tr.T("profile_invited_by_none")
	}
	return text, nil
}

func (b *BotFacade) handleBalance(ctx context.Context, from Sender, _ []string) (string, error) {
	p, err := b.ProfileUC.GetByTelegramID(ctx, from.ID)
	if err != nil {
		return "", err
	}
	return b.tr.T("balance", p.Balance), nil
}

func (b *BotFacade) handleReferrals(ctx context.Context, from Sender, _ []string) (string, error) {
	refs, err := b.ProfileUC.Referrals(ctx, from.ID)
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return b.tr.T("referrals_empty"), nil
	}
	var sb strings.Builder
	sb.WriteString(b.tr.T("referrals_header"))
	for _, ref := range firstN(refs, listPageSize) {
		sb.WriteString(b.tr.T("referrals_item", ref.TelegramID, ref.Balance))
	}
	if rest := len(refs) - listPageSize; rest > 0 {
		sb.WriteString(b.tr.T("referrals_more", rest))
	}
	return sb.String(), nil
}

func (b *BotFacade) handleHelp(_ context.Context, _ Sender, _ []string) (string, error) {
	return b.tr.T("help"), nil
}

func (b *BotFacade) handleAdminStats(ctx context.Context, _ Sender, _ []string) (string, error) {
	users, coins, err := b.StatsUC.Totals(ctx)
	if err != nil {
		return "", fmt.Errorf("stats totals: %w", err)
	}
	if users == 0 {
		return b.tr.T("admin_stats_empty"), nil
	}
	avg := float64(coins) / float64(users)
	return b.tr.T("admin_stats", users, coins, avg), nil
}

func (b *BotFacade) handleAdminUsers(ctx context.Context, _ Sender, _ []string) (string, error) {
	profiles, err := b.StatsUC.ListUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	if len(profiles) == 0 {
		return b.tr.T("admin_users_empty"), nil
	}
	var sb strings.Builder
	sb.WriteString(b.tr.T("admin_users_header", len(profiles)))
	for i, p := range firstN(profiles, listPageSize) {
		sb.WriteString(b.tr.T("admin_users_item", i+1, p.TelegramID, p.ReferralCode, p.Balance))
	}
	if rest := len(profiles) - listPageSize; rest > 0 {
		sb.WriteString(b.tr.T("admin_users_more", rest))
	}
	return sb.String(), nil
}

func (b *BotFacade) handleAdminHelp(_ context.Context, _ Sender, _ []string) (string, error) {
	return b.tr.T("admin_help"), nil
}

func (b *BotFacade) handleGrant(ctx context.Context, _ Sender, args []string) (string, error) {
	if len(args) != 2 {
		return b.tr.T("usage_grant"), nil
	}
	tgID, err1 := strconv.ParseInt(args[0], 10, 64)
	coins, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || coins == 0 {
		return b.tr.T("usage_grant"), nil
	}
	newBalance, err := b.WalletUC.Adjust(ctx, tgID, coins, "admin grant")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("error_user_not_found", args[0]), nil
		}
		return "", fmt.Errorf("grant: %w", err)
	}
	return b.tr.T("grant_success", coins, tgID, newBalance), nil
}

func (b *BotFacade) handleAddReferralEarnings(ctx context.Context, _ Sender, args []string) (string, error) {
	if len(args) != 2 {
		return b.tr.T("usage_add_referral_earnings"), nil
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return b.tr.T("usage_add_referral_earnings"), nil
	}
	_, earnings, err := b.WalletUC.AddReferralEarnings(ctx, args[0], amount)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("error_user_not_found", args[0]), nil
		}
		return "", fmt.Errorf("add referral earnings: %w", err)
	}
	return b.tr.T("add_referral_earnings_success", amount, args[0], earnings), nil
}

func (b *BotFacade) handleSetReferralPercent(ctx context.Context, _ Sender, args []string) (string, error) {
	if len(args) != 2 {
		return b.tr.T("usage_set_referral_percent"), nil
	}
	percent, err := strconv.Atoi(args[1])
	if err != nil {
		return b.tr.T("usage_set_referral_percent"), nil
	}
	if percent < 0 || percent > 100 {
		return b.tr.T("error_percent_range"), nil
	}
	_, old, err := b.WalletUC.SetReferralPercent(ctx, args[0], percent)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.tr.T("error_user_not_found", args[0]), nil
		}
		return "", fmt.Errorf("set referral percent: %w", err)
	}
	return b.tr.T("set_referral_percent_success", args[0], percent, old), nil
}

func firstN(profiles []*model.UserProfile, n int) []*model.UserProfile {
	if len(profiles) <= n {
		return profiles
	}
	return profiles[:n]
}
