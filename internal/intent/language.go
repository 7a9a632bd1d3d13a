package intent

import "strings"

var spanishMarkers = []string{
	"pregunta", "candidato", "entrevista", "trabajo", "por favor", "gracias", "puedes",
	"enviar", "envía", "envia", "seguimiento", "mensaje", "haz", "dime", "cuéntame", "hola",
	"muestra", "muéstrame", "referencia", "qué", "cuál",
}

// DetectLanguage guesses es or en from keywords. Spanish wins on any marker.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	for _, m := range spanishMarkers {
		if strings.Contains(lower, m) {
			return LanguageES
		}
	}
	return LanguageEN
}
