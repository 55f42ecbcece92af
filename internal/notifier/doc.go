// Package notifier delivers the outcome of a watch cycle to notification channels.
//
// A Report carries the current snapshot and the filtered diff of one cycle.
// Each channel turns it into messages with Report.Messages, so the only_new,
// send_summary and max_messages options behave the same everywhere. Supported
// channels are stdout (dry run), Telegram, Slack incoming webhooks and Twitter.
package notifier
