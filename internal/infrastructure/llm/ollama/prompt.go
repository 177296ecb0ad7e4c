package ollama

func buildTranslationPrompt(text string) string {
	return "Übersetze exakt ins Deutsche. Erhalte Namen, Zahlen, Fachbegriffe. " +
		"Nicht zusammenfassen oder umformulieren.\n\nTEXT:\n" + text + "\n\nDEUTSCH:"
}
