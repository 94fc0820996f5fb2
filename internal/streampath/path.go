package streampath

import "strings"

// Path identifie une combinaison série/saison/audio sur le CDN, ex: "a/x".
type Path string

func (p Path) String() string { return string(p) }

const (
	marker = "/stream/"
	suffix = ".mp4"
)

// Extract cherche le premier Path valide dans blob.
// Un blob vide ou sans forme reconnue renvoie ("", false): ce n'est pas une erreur.
// "/stream/" et ".mp4" sont reconnus sans tenir compte de la casse; le Path
// renvoyé garde la sienne.
func Extract(blob string) (Path, bool) {
	for i := 0; i < len(blob); {
		j := indexFold(blob[i:], marker)
		if j < 0 {
			return "", false
		}
		start := i + j + len(marker)
		if p, ok := parseAfterMarker(blob[start:]); ok {
			return p, true
		}
		i = i + j + 1
	}
	return "", false
}

// parseAfterMarker lit "<lettre>/<slug>/<chiffres>.mp4" en tête de s.
func parseAfterMarker(s string) (Path, bool) {
	if len(s) < 2 || !isLetter(s[0]) || s[1] != '/' {
		return "", false
	}
	rest := s[2:]
	n := 0
	for n < len(rest) && isSlugByte(rest[n]) {
		n++
	}
	if n == 0 || n >= len(rest) || rest[n] != '/' {
		return "", false
	}
	tail := rest[n+1:]
	d := 0
	for d < len(tail) && tail[d] >= '0' && tail[d] <= '9' {
		d++
	}
	if d < 2 || !hasPrefixFold(tail[d:], suffix) {
		return "", false
	}
	return Path(s[:2+n]), true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func indexFold(s, sub string) int {
	for k := 0; k+len(sub) <= len(s); k++ {
		if hasPrefixFold(s[k:], sub) {
			return k
		}
	}
	return -1
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSlugByte(b byte) bool {
	switch b {
	case '/', '"', '\'', '<', '>', ' ', '\t', '\n', '\r':
		return false
	}
	return true
}
