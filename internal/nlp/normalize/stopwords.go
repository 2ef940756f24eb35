package normalize

// stopWords holds normalized Romanian and English function words. Entries
// must already be in Normalize form.
var stopWords = func() map[string]struct{} {
	words := []string{
		// Romanian
		"unde", "pot", "sa", "care", "ce", "cu", "la", "un", "vreau", "caut",
		"si", "sau", "pentru", "in", "pe", "de", "din", "mi", "imi", "ma",
		"este", "sunt", "niste", "ceva", "doresc", "as", "vrea", "aici",
		"acolo", "te", "rog", "mai", "arata", "spune", "ne", "noi", "eu",
		"al", "ale", "lui", "cel", "cea", "cei", "cele", "una", "unei", "unui",
		"fi", "am", "ai", "are", "avem", "acum",
		// English
		"the", "an", "and", "or", "to", "of", "for", "on", "at", "me", "is",
		"are", "find", "show", "want", "some", "with", "my", "please", "where",
		"what", "can", "do", "does", "looking", "look", "need", "any", "there",
		"this", "that", "it", "be", "you", "your", "we", "our", "get", "give",
		"would", "like", "about", "from", "by", "into", "recommend", "suggest",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
