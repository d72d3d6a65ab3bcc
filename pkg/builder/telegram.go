package builder

// Telegram sets the bot token used for the Bot API and the default webhook path
func (b *Builder) Telegram(botToken string) *Builder {
	b.cfg.Telegram.BotToken = botToken
	return b
}

func (b *Builder) TelegramAPIBaseURL(url string) *Builder {
	b.cfg.Telegram.APIBaseURL = url
	return b
}

// Webhook registers baseURL with Telegram at startup. secret is echoed back by
// Telegram in every update and checked by the webhook handler.
func (b *Builder) Webhook(baseURL, secret string) *Builder {
	b.cfg.Telegram.WebhookBaseURL = baseURL
	b.cfg.Telegram.WebhookSecret = secret
	return b
}

func (b *Builder) BotUsername(username string) *Builder {
	b.cfg.Telegram.BotUsername = username
	return b
}

func (b *Builder) MaxMessageLength(units int) *Builder {
	b.cfg.Telegram.MaxMessageLength = units
	return b
}
