package bot

// Command constants for Telegram bot commands.
const (
	CommandStart        = "/start"
	CommandHelp         = "/help"
	CommandCancel       = "/cancel"
	CommandBuy          = "/buy"
	CommandSell         = "/sell"
	CommandOrders       = "/orders"
	CommandBalance      = "/balance"
	CommandPrice        = "/price"
	CommandStats        = "/stats"
	CommandParams       = "/params"
	CommandAutobuy      = "/autobuy"
	CommandSubscription = "/subscription"
	CommandLanguage     = "/language"
)
