package zone

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Loading a zone is all or nothing: the first bad line aborts the parse
// and the zone is not served. All parse failures wrap one of these.
var (
	// ErrUnsupportedDirective marks $INCLUDE, $GENERATE and any other
	// $-directive this parser does not implement.
	ErrUnsupportedDirective = errors.New("unsupported zone directive")

	// ErrUnsupportedClass marks record classes other than IN.
	ErrUnsupportedClass = errors.New("unsupported record class")

	// ErrUnsupportedType marks record types with no registered builder.
	ErrUnsupportedType = errors.New("unsupported record type")

	// ErrMalformedRecord marks lines that do not fit the record grammar.
	ErrMalformedRecord = errors.New("malformed zone record")
)

// defaultFileTTL applies to records parsed before any $TTL directive.
// Three hours, the historical BIND default.
const defaultFileTTL = 10800

// lineContext is the parse state threaded from one logical line to the
// next: the active origin, the active default TTL, and the owner name
// that implicit-owner lines inherit.
type lineContext struct {
	origin     string
	defaultTTL uint32
	owner      string
}

// ParseFile loads a BIND master file. The zone origin is derived from
// the file's base name; a $ORIGIN directive inside the file overrides
// it.
func ParseFile(path string, logger *slog.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone file: %w", err)
	}
	store, err := Parse(string(data), filepath.Base(path), logger)
	if err != nil {
		return nil, fmt.Errorf("parse zone file %s: %w", path, err)
	}
	return store, nil
}

// Parse reads master-file text into a fresh record store. Comments and
// parenthesized continuations are resolved first, then each logical
// line is either a $-directive or a record line. The first error aborts
// the whole parse.
func Parse(text, origin string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lines, err := logicalLines(text)
	if err != nil {
		return nil, err
	}

	ctx := lineContext{origin: ensureAbsolute(origin), defaultTTL: defaultFileTTL}
	ctx.owner = ctx.origin
	store := NewStore()
	for _, tokens := range lines {
		ctx, err = parseLine(store, ctx, tokens, logger)
		if err != nil {
			return nil, err
		}
	}
	return store, nil
}

// stripComment truncates a physical line at the first unescaped
// semicolon. A backslash escapes the following semicolon, which stays
// in the line as a literal without its backslash.
func stripComment(line string) string {
	i := strings.IndexByte(line, ';')
	if i < 0 {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == ';' {
			b.WriteByte(';')
			i++
			continue
		}
		if c == ';' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// logicalLines turns master-file text into one token list per logical
// line. Physical lines are stripped of comments; an unbalanced opening
// parenthesis joins the following lines into the same logical line
// until the matching close. The parentheses themselves are dropped, so
// a record spread over several lines tokenizes exactly like its
// single-line form. Blank lines vanish.
func logicalLines(text string) ([][]string, error) {
	var (
		out   [][]string
		buf   []string
		depth int
	)
	flush := func() {
		joined := strings.NewReplacer("(", " ", ")", " ").Replace(strings.Join(buf, " "))
		buf = buf[:0]
		if tokens := strings.Fields(joined); len(tokens) > 0 {
			out = append(out, tokens)
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := stripComment(sc.Text())
		depth += strings.Count(line, "(") - strings.Count(line, ")")
		buf = append(buf, line)
		if depth > 0 {
			continue
		}
		depth = 0
		flush()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan zone text: %w", err)
	}
	if depth > 0 {
		return nil, fmt.Errorf("%w: unterminated parenthesized continuation", ErrMalformedRecord)
	}
	return out, nil
}

// parseLine dispatches one logical line: $-directives mutate the
// context, anything else is a record line. It returns the context the
// next line should see.
func parseLine(store *Store, ctx lineContext, tokens []string, logger *slog.Logger) (lineContext, error) {
	switch directive := strings.ToUpper(tokens[0]); directive {
	case "$TTL":
		if len(tokens) != 2 {
			return ctx, fmt.Errorf("%w: $TTL wants exactly one value", ErrMalformedRecord)
		}
		ttl, err := parseTTL(tokens[1])
		if err != nil {
			return ctx, err
		}
		ctx.defaultTTL = ttl
		return ctx, nil
	case "$ORIGIN":
		if len(tokens) != 2 {
			return ctx, fmt.Errorf("%w: $ORIGIN wants exactly one name", ErrMalformedRecord)
		}
		ctx.origin = ensureAbsolute(tokens[1])
		return ctx, nil
	default:
		if strings.HasPrefix(directive, "$") {
			return ctx, fmt.Errorf("%w: %s", ErrUnsupportedDirective, tokens[0])
		}
	}
	return parseRecordLine(store, ctx, tokens, logger)
}

// parseRecordLine applies the record grammar:
//
//	[owner] [domain] [ttl] [class] type rdata...
//
// where owner is "@" for the origin, any name, or absent to reuse the
// owner of the previous line. A second leading name addresses this one
// record to a different domain without moving the persisted owner; a
// line with a single leading name uses it as both. TTL and class are
// optional and may appear in either order. Keyword recognition is
// exact, so a lower-case "ns" or "a" is a name, never a mnemonic. Only
// class IN is supported.
func parseRecordLine(store *Store, ctx lineContext, tokens []string, logger *slog.Logger) (lineContext, error) {
	rest := tokens

	// Owner. "@" pins the origin, an explicit name replaces the
	// persisted owner, and a leading TTL/class/type token means the
	// line inherits the owner of the line before it.
	switch {
	case rest[0] == "@":
		ctx.owner = ctx.origin
		rest = rest[1:]
	case !isNumeric(rest[0]) && !isClassKeyword(rest[0]) && !isTypeKeyword(rest[0]):
		ctx.owner = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return ctx, fmt.Errorf("%w: missing record type in %q", ErrMalformedRecord, strings.Join(tokens, " "))
	}

	// Domain the record is added under: the owner, unless one more
	// name token precedes the TTL/class/type part.
	domain := ctx.owner
	if !isNumeric(rest[0]) && !isClassKeyword(rest[0]) && !isTypeKeyword(rest[0]) {
		domain = rest[0]
		rest = rest[1:]
	}

	ttl := ctx.defaultTTL
	class := ""
	seenTTL := false
scan:
	for len(rest) > 0 {
		switch {
		case !seenTTL && isNumeric(rest[0]):
			v, err := strconv.ParseUint(rest[0], 10, 32)
			if err != nil {
				return ctx, fmt.Errorf("%w: invalid TTL %q", ErrMalformedRecord, rest[0])
			}
			ttl = uint32(v)
			seenTTL = true
		case class == "" && isClassKeyword(rest[0]):
			class = rest[0]
		default:
			break scan
		}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return ctx, fmt.Errorf("%w: missing record type in %q", ErrMalformedRecord, strings.Join(tokens, " "))
	}
	if class != "" && class != "IN" {
		return ctx, fmt.Errorf("%w: %s", ErrUnsupportedClass, class)
	}

	typeKeyword := rest[0]
	build, ok := lookupBuilder(typeKeyword)
	if !ok {
		return ctx, fmt.Errorf("%w: %s", ErrUnsupportedType, typeKeyword)
	}
	data, err := build(rest[1:], ctx.origin)
	if err != nil {
		return ctx, err
	}

	name := normalizeDomain(domain, ctx.origin)
	store.Add(name, Record{Data: data, TTL: ttl, HasTTL: true})
	logger.Debug("adding IN record",
		"name", name,
		"ttl", ttl,
		"type", typeKeyword,
		"rdata", data.String(),
	)
	return ctx, nil
}

// normalizeDomain resolves a master-file name against the origin. A
// trailing dot marks the name absolute; anything else is relative to
// the origin. The result carries no trailing dot.
func normalizeDomain(name, origin string) string {
	if strings.HasSuffix(name, ".") {
		return strings.TrimSuffix(name, ".")
	}
	origin = strings.TrimSuffix(origin, ".")
	if origin == "" {
		return name
	}
	return name + "." + origin
}

// ensureAbsolute appends the trailing dot that marks a name absolute,
// if it is not already there.
func ensureAbsolute(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

var ttlPattern = regexp.MustCompile(`^(?:\d+[wdhmsWDHMS]?)+$`)

var ttlUnitSeconds = map[byte]uint64{
	'w': 7 * 24 * 3600,
	'd': 24 * 3600,
	'h': 3600,
	'm': 60,
	's': 1,
}

// parseTTL parses a BIND time value: plain seconds, or concatenated
// <number><unit> groups with w/d/h/m/s units, as in "1h30m".
func parseTTL(tok string) (uint32, error) {
	if !ttlPattern.MatchString(tok) {
		return 0, fmt.Errorf("%w: invalid TTL value %q", ErrMalformedRecord, tok)
	}
	var total, num uint64
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c >= '0' && c <= '9' {
			num = num*10 + uint64(c-'0')
			if num > math.MaxUint32 {
				return 0, fmt.Errorf("%w: TTL value %q out of range", ErrMalformedRecord, tok)
			}
			continue
		}
		total += num * ttlUnitSeconds[c|0x20]
		num = 0
		if total > math.MaxUint32 {
			return 0, fmt.Errorf("%w: TTL value %q out of range", ErrMalformedRecord, tok)
		}
	}
	total += num
	if total > math.MaxUint32 {
		return 0, fmt.Errorf("%w: TTL value %q out of range", ErrMalformedRecord, tok)
	}
	return uint32(total), nil
}

func isNumeric(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}

func isClassKeyword(tok string) bool {
	switch tok {
	case "IN", "CH", "HS":
		return true
	}
	return false
}

// DiscoverZoneFiles lists the regular files under dir in sorted order,
// one prospective zone file each.
func DiscoverZoneFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read zone directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
