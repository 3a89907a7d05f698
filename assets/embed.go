// assets/embed.go
//
// Embedded default word list. The server runs without any external files;
// WORDS_FILE overrides this list at startup.
package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed dictionary.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToUpper(s))
	}
	return out, sc.Err()
}

// Dictionary returns the embedded word list, uppercased, comments skipped.
func Dictionary() ([]string, error) {
	return readLines("dictionary.txt")
}
