package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramChannelPostsTotal,
		telegramAPIErrorsTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Commands received from groups, labeled by command and outcome.",
		},
		[]string{"command", "result"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramChannelPostsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_channel_posts_total",
			Help: "Channel posts recorded by the feed.",
		},
	)

	telegramAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_errors_total",
			Help: "Bot API call failures by method.",
		},
		[]string{"method"},
	)
)

func IncTelegramCommand(command, result string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command), norm(result)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncChannelPost() {
	telegramChannelPostsTotal.Inc()
}

func IncTelegramAPIError(method string) {
	telegramAPIErrorsTotal.WithLabelValues(norm(method)).Inc()
}
