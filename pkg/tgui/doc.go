// Package tgui holds small helpers for building Telegram HTML messages.
//
// Everything the bot sends uses ParseMode="HTML"; the H type marks strings
// that are already escaped so formatting code can't accidentally double-escape
// or inject markup from post text.
package tgui
