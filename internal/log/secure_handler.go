package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// secretNames are attribute keys and query parameter names that are masked
// although they contain none of the secretWords.
var secretNames = map[string]bool{
	"cookie":     true,
	"set-cookie": true,
	"x-api-key":  true,
	"api_key":    true,
	"api-key":    true,
	"apikey":     true,
	"sid":        true,
	"phpsessid":  true,
}

// secretWords mark a name as secret wherever they appear in it, so
// "access_token", "Authorization" and "jsessionid" are all caught. The
// bare word "key" is absent since it matches "cache_key" and "sort_key".
var secretWords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "session", "signature",
}

// secretValues match values that are masked whatever their key. Long hex
// strings are not among them because page hashes are logged on purpose.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`), // AWS access key id
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler is an slog.Handler that redacts secrets before passing a
// record on. A value is masked when its key names a secret or when the
// value itself looks like one. URL values are rewritten instead of
// dropped: only the password and secret query parameters are masked, so
// the crawled locator stays readable.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next falls back to the default
// logger's handler.
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled defers to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle redacts the attributes of r and forwards the copy.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, redact(a))
		return true
	})
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(attrs...)
	return h.next.Handle(ctx, out)
}

// WithAttrs redacts attrs once, when the child handler is built.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecureHandler{next: h.next.WithAttrs(redactAll(attrs))}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func redactAll(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redact(a)
	}
	return out
}

func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch {
	case a.Value.Kind() == slog.KindGroup:
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redactAll(a.Value.Group())...)}
	case isSecretName(a.Key):
		return slog.String(a.Key, MaskValue)
	case a.Value.Kind() != slog.KindString:
		return a
	}

	s := a.Value.String()
	if looksSecret(s) {
		return slog.String(a.Key, MaskValue)
	}
	if masked, ok := redactURL(s); ok {
		return slog.String(a.Key, masked)
	}
	return a
}

func isSecretName(name string) bool {
	name = strings.ToLower(name)
	return secretNames[name] || hasSecretWord(name)
}

func hasSecretWord(name string) bool {
	for _, w := range secretWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

func looksSecret(value string) bool {
	for _, re := range secretValues {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURL masks the user info password and every secret query parameter
// of an absolute URL. It reports false when s is not an absolute URL or
// carries nothing to mask.
func redactURL(s string) (string, bool) {
	if !strings.Contains(s, "://") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}

	masked := false
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), MaskValue)
		masked = true
	}

	q := u.Query()
	queryMasked := false
	for name, values := range q {
		if !isSecretName(name) {
			continue
		}
		for i := range values {
			values[i] = MaskValue
		}
		queryMasked = true
	}
	if queryMasked {
		u.RawQuery = q.Encode()
		masked = true
	}

	if !masked {
		return "", false
	}
	return strings.ReplaceAll(u.String(), url.QueryEscape(MaskValue), MaskValue), true
}

func newLogger(h slog.Handler) *slog.Logger {
	return slog.New(NewSecureHandler(h))
}

func options(verbose bool) *slog.HandlerOptions {
	if verbose {
		return &slog.HandlerOptions{Level: slog.LevelDebug}
	}
	return &slog.HandlerOptions{Level: slog.LevelWarn}
}

// NewSecureLogger returns a text logger writing to w. Verbose loggers
// emit Debug records; otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return newLogger(slog.NewTextHandler(w, options(verbose)))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return newLogger(slog.NewJSONHandler(w, options(verbose)))
}
