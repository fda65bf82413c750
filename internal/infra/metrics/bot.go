package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersRegisteredTotal,
		referralBonusesTotal,
		telegramCommandsReceivedTotal,
		adminCommandsTotal,
		telegramRateLimitTriggeredTotal,
	)
}

var (
	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new users registered.",
		},
	)

	referralBonusesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_bonuses_total",
			Help: "Total number of referral bonuses credited to inviters.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming commands from users.",
		},
		[]string{"command"},
	)

	adminCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_commands_total",
			Help: "Admin command invocations by authorization outcome.",
		},
		[]string{"command", "outcome"}, // outcome: 'authorized' | 'unauthorized'
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)
)

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

func IncReferralBonus() {
	referralBonusesTotal.Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncAdminCommand(command, outcome string) {
	adminCommandsTotal.WithLabelValues(norm(command), norm(outcome)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}
