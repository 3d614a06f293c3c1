package ai

import "strings"

// Language detection is a deterministic heuristic: a fixed Spanish word
// list plus inverted punctuation. Two or more hits switch the reply
// language to Spanish.

var spanishWords = []string{
	"hola", "gracias", "por favor", "ayuda", "necesito", "cuenta",
	"reporte", "crédito", "credito", "buenos días", "buenas tardes",
	"pueden", "quiero", "cuando", "cómo", "usted",
}

type LanguageResult struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

func DetectLanguage(subject, body string) LanguageResult {
	text := strings.ToLower(subject + " " + body)

	hits := 0
	for _, w := range spanishWords {
		if strings.Contains(text, w) {
			hits++
		}
	}
	if strings.ContainsAny(text, "¿¡") {
		hits += 2
	}

	if hits >= 2 {
		conf := 60 + float64(hits)*10
		if conf > 95 {
			conf = 95
		}
		return LanguageResult{Language: "es", Confidence: conf}
	}
	return LanguageResult{Language: "en", Confidence: 80}
}
