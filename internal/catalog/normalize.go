package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	maxTitleLen = 300
	maxSlugLen  = 180
)

// Normalized is the result of cleaning a raw channel caption.
type Normalized struct {
	Title string
	Slug  string
	Year  *int
}

// Removal order matters: the extension must go first so later token
// patterns cannot false-match inside it.
var (
	extensionRe = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|mov|webm|zip|rar)$`)
	mentionRe   = regexp.MustCompile(`@[\w_]+`)
	promoRe     = regexp.MustCompile(`(?i)join premium.*`)
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// Quality, codec, language and release-group junk. The codec-group
	// patterns come first so "x264-GROUP" is removed whole.
	junkRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(x264|x265|hevc)[-.]\w+`),
		regexp.MustCompile(`(?i)\b\d{3,4}p\b`),
		regexp.MustCompile(`(?i)\b(bluray|brrip|hdtc|webrip|hdrip|web[- ]?dl|camrip)\b`),
		regexp.MustCompile(`(?i)\b(x264|x265|hevc|h264|aac|ddp?5?\.?1)\b`),
		regexp.MustCompile(`(?i)\b(hindi|english|tamil|telugu|malayalam|dual|line|audio|dubbed|ms|lol|esub|subs?)\b`),
	}

	separatorRe = regexp.MustCompile(`[_.+\-×]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
	slugRe      = regexp.MustCompile(`[^a-z0-9]+`)
)

// timeNow is swapped in tests so fallback slugs are deterministic.
var timeNow = time.Now

// Normalize turns a raw caption or filename into a display title, a
// URL-safe slug and an optional release year. Only the first caption line
// is considered; the rest is assumed to be promo noise.
func Normalize(raw string) Normalized {
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)

	line = extensionRe.ReplaceAllString(line, "")
	line = mentionRe.ReplaceAllString(line, " ")
	line = promoRe.ReplaceAllString(line, " ")

	var year *int
	if m := yearRe.FindString(line); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			year = &y
		}
		line = yearRe.ReplaceAllString(line, " ")
	}

	for _, re := range junkRes {
		line = re.ReplaceAllString(line, " ")
	}

	line = separatorRe.ReplaceAllString(line, " ")
	line = spaceRe.ReplaceAllString(line, " ")
	line = strings.TrimSpace(line)

	line = strings.TrimSpace(TruncateRunes(line, maxTitleLen))

	return Normalized{
		Title: line,
		Slug:  slugify(line),
		Year:  year,
	}
}

// slugify lowercases the title and reduces it to [a-z0-9-]. An empty
// result falls back to a time-based placeholder so a slug always exists.
func slugify(title string) string {
	s := strings.ToLower(title)
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	if s == "" {
		s = strconv.FormatInt(timeNow().Unix(), 10)
	}
	return s
}

// TruncateRunes caps s at n characters. Caption and title caps count
// characters, so a multi-byte sequence is never split mid-rune.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
