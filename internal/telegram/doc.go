// Package telegram sends quiz schedule notifications through the Telegram Bot API.
//
// Messages are formatted as HTML. The client is a thin wrapper over telego and
// accepts a custom API server so it can be pointed at a local test server.
//
// Authentication requires a bot token (from @BotFather) and a chat ID, which
// may be numeric or a public @channel username.
package telegram
