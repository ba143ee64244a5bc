package workflow

import (
	"regexp"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

const (
	MinPollOptions = 1
	MaxPollOptions = 6
)

// Пробелы, переводы строк и обратные слеши (так приходят эмодзи, пересланные из like-ботов)
var symbolNoise = regexp.MustCompile(`[\r\n\s\\]+`)

// ExtractSymbols возвращает эмодзи из текста в порядке появления. Повторы сохраняются:
// каждый становится отдельным вариантом ответа. Остальные символы игнорируются.
func ExtractSymbols(text string) []string {
	text = symbolNoise.ReplaceAllString(text, "")
	var symbols []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		cluster := gr.Str()
		if gomoji.ContainsEmoji(cluster) {
			symbols = append(symbols, cluster)
		}
	}
	return symbols
}

func validSymbolCount(n int) bool {
	return n >= MinPollOptions && n <= MaxPollOptions
}
