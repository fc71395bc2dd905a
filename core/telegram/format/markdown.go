// Package format escapes user text for Telegram parse modes.
package format

import "strings"

// legacyMD escapes the four characters that open an entity in the legacy
// Markdown parse mode. A closing ] needs no escape there.
var legacyMD = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// MD escapes text for tele.ModeMarkdown so product names and customer input
// cannot break the message layout.
func MD(text string) string {
	return legacyMD.Replace(text)
}
