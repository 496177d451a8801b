// Package version resolves opaque template version tokens.
//
// Tokens are recorded by the renderer at render time and are usually either a
// release tag ("v1.2.3") or a VCS describe string ("v1.2.3-4-gabc1234").
// Parse never fails: tokens that match neither shape become the Raw variant,
// which displays and compares by its raw text.
//
// Key components:
//   - Version: tagged variant over Raw and Parsed tokens
//   - Semantic: comparable release/post/dev/local parts of a parsed token
//   - ListNewerReleases: filters release tags against an installed version
package version

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Kind discriminates the Version variants.
type Kind int

const (
	// KindRaw is a token that could not be parsed.
	KindRaw Kind = iota

	// KindParsed is a token with a comparable semantic value.
	KindParsed
)

func (k Kind) String() string {
	if k == KindParsed {
		return "parsed"
	}
	return "raw"
}

// describePattern matches "<base>-<distance>-g<hash>".
var describePattern = regexp.MustCompile(`^(.+)-(\d+)-g(\w+)$`)

// Semantic is the comparable part of a parsed token.
type Semantic struct {
	// Release holds the numeric release components, e.g. [1 2 3].
	Release []int

	// Pre is the prerelease identifier without its leading "-", e.g. "rc.1".
	Pre string

	// Post is the number of commits since the release tag, -1 when absent.
	Post int

	// Dev is the development counter, -1 when absent.
	Dev int

	// Local is the local label, typically an abbreviated commit hash.
	Local string
}

// String renders the normalized form, e.g. "1.2.3.post4.dev0+abc1234".
func (s Semantic) String() string {
	var b strings.Builder
	for i, n := range s.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	if s.Pre != "" {
		b.WriteString("-" + s.Pre)
	}
	if s.Post >= 0 {
		fmt.Fprintf(&b, ".post%d", s.Post)
	}
	if s.Dev >= 0 {
		fmt.Fprintf(&b, ".dev%d", s.Dev)
	}
	if s.Local != "" {
		b.WriteString("+" + s.Local)
	}
	return b.String()
}

// Version is either a Raw token or a Parsed token that keeps its raw text.
type Version struct {
	raw string
	sem *Semantic
}

// Raw returns a Raw variant for token.
func Raw(token string) Version {
	return Version{raw: token}
}

// Parse resolves token into a Version. It never fails; unrecognised tokens
// yield the Raw variant.
func Parse(token string) Version {
	sem, err := ParseSemantic(token)
	if err != nil {
		return Raw(token)
	}
	return Version{raw: token, sem: &sem}
}

// ParseSemantic parses token strictly, returning a *ParseError when the
// token is neither a release nor a describe string.
func ParseSemantic(token string) (Semantic, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Semantic{}, &ParseError{Token: token, Reason: "empty token"}
	}

	if m := describePattern.FindStringSubmatch(token); m != nil {
		sem, err := parseRelease(m[1])
		if err != nil {
			return Semantic{}, &ParseError{Token: token, Reason: err.Error()}
		}
		distance, err := strconv.Atoi(m[2])
		if err != nil {
			return Semantic{}, &ParseError{Token: token, Reason: "invalid distance"}
		}
		sem.Post = distance
		sem.Dev = 0
		sem.Local = m[3]
		return sem, nil
	}

	sem, err := parseRelease(token)
	if err != nil {
		return Semantic{}, &ParseError{Token: token, Reason: err.Error()}
	}
	return sem, nil
}

// parseRelease parses a tag-like string such as "v1.2.3", "1.2" or
// "v1.0.0-rc.1+meta".
func parseRelease(s string) (Semantic, error) {
	s = strings.TrimPrefix(s, "v")
	canonical := "v" + s
	if !semver.IsValid(canonical) {
		return Semantic{}, fmt.Errorf("not a release version: %q", s)
	}

	sem := Semantic{
		Pre:   strings.TrimPrefix(semver.Prerelease(canonical), "-"),
		Local: strings.TrimPrefix(semver.Build(canonical), "+"),
		Post:  -1,
		Dev:   -1,
	}

	core := s
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	for _, part := range strings.Split(core, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Semantic{}, fmt.Errorf("invalid release component %q", part)
		}
		sem.Release = append(sem.Release, n)
	}
	return sem, nil
}

// Kind returns the variant.
func (v Version) Kind() Kind {
	if v.sem != nil {
		return KindParsed
	}
	return KindRaw
}

// IsParsed reports whether v is the Parsed variant.
func (v Version) IsParsed() bool {
	return v.sem != nil
}

// IsZero reports whether v was built from an empty token.
func (v Version) IsZero() bool {
	return v.raw == "" && v.sem == nil
}

// Raw returns the token exactly as recorded.
func (v Version) Raw() string {
	return v.raw
}

// Semantic returns the parsed value and true for the Parsed variant.
func (v Version) Semantic() (Semantic, bool) {
	if v.sem == nil {
		return Semantic{}, false
	}
	return *v.sem, true
}

// String returns the display value: the normalized form when parsed, the
// raw token otherwise.
func (v Version) String() string {
	if v.sem != nil {
		return v.sem.String()
	}
	return v.raw
}

// Compare orders two semantic values. It returns -1, 0 or +1.
func Compare(a, b Semantic) int {
	n := len(a.Release)
	if len(b.Release) > n {
		n = len(b.Release)
	}
	for i := 0; i < n; i++ {
		if c := cmpInt(component(a.Release, i), component(b.Release, i)); c != 0 {
			return c
		}
	}

	switch {
	case a.Pre == "" && b.Pre != "":
		return 1
	case a.Pre != "" && b.Pre == "":
		return -1
	case a.Pre != b.Pre:
		return semver.Compare("v0.0.0-"+a.Pre, "v0.0.0-"+b.Pre)
	}

	if c := cmpInt(a.Post, b.Post); c != 0 {
		return c
	}

	// A dev counter sorts before the same version without one.
	if c := cmpInt(devRank(a.Dev), devRank(b.Dev)); c != 0 {
		return c
	}

	return strings.Compare(a.Local, b.Local)
}

func component(release []int, i int) int {
	if i < len(release) {
		return release[i]
	}
	return 0
}

func devRank(dev int) int {
	if dev < 0 {
		return int(^uint(0) >> 1)
	}
	return dev
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal reports whether a and b name the same version. Two Parsed values
// compare semantically; anything involving a Raw value compares raw tokens.
func Equal(a, b Version) bool {
	if a.sem != nil && b.sem != nil {
		return Compare(*a.sem, *b.sem) == 0
	}
	return a.raw == b.raw
}

// IsNewer reports whether a is strictly newer than b. Raw values are never
// newer than anything.
func IsNewer(a, b Version) bool {
	if a.sem == nil || b.sem == nil {
		return false
	}
	return Compare(*a.sem, *b.sem) > 0
}

// Drifted reports whether two instances that should track the same release
// recorded different tokens. Raw tokens are compared even when both parse.
func Drifted(a, b Version) bool {
	return a.raw != b.raw
}

// ParseReleases parses tags and returns the Parsed ones in ascending order.
// Tags that do not parse are skipped.
func ParseReleases(tags []string) []Version {
	releases := make([]Version, 0, len(tags))
	for _, tag := range tags {
		v := Parse(tag)
		if v.IsParsed() {
			releases = append(releases, v)
		}
	}
	sort.SliceStable(releases, func(i, j int) bool {
		return Compare(*releases[i].sem, *releases[j].sem) < 0
	})
	return releases
}

// Latest returns the newest parsed release among tags.
func Latest(tags []string) (Version, bool) {
	releases := ParseReleases(tags)
	if len(releases) == 0 {
		return Version{}, false
	}
	return releases[len(releases)-1], true
}

// ListNewerReleases returns the releases among tags whose version is greater
// than or equal to currentToken, ascending. It returns nil when currentToken
// does not parse.
func ListNewerReleases(currentToken string, tags []string) []Version {
	current := Parse(currentToken)
	if !current.IsParsed() {
		return nil
	}

	var newer []Version
	for _, r := range ParseReleases(tags) {
		if Compare(*r.sem, *current.sem) >= 0 {
			newer = append(newer, r)
		}
	}
	return newer
}
