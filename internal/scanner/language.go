package scanner

import "strings"

// phpExtensions are the file extensions PHP interpreters commonly execute.
var phpExtensions = map[string]bool{
	".php":   true,
	".phtml": true,
	".php3":  true,
	".php4":  true,
	".php5":  true,
	".php7":  true,
	".php8":  true,
	".phps":  true,
	".inc":   true,
}

// DetectLanguage returns "php" for PHP source extensions and "" otherwise.
func DetectLanguage(ext string) string {
	if phpExtensions[strings.ToLower(ext)] {
		return "php"
	}
	return ""
}
