// Package guard decides whether a sensitive request may proceed: a fixed
// window rate limit per caller fingerprint plus user-agent bot detection.
package guard

import (
	"context"
	"strings"

	"coursehub/logger"
)

type Mode string

const (
	ModeLive   Mode = "LIVE"
	ModeDryRun Mode = "DRY_RUN"
)

type Reason string

const (
	ReasonNone      Reason = ""
	ReasonRateLimit Reason = "RATE_LIMIT"
	ReasonBot       Reason = "BOT"
	ReasonError     Reason = "ERROR"
)

type Request struct {
	// Fingerprint identifies the caller, usually the user id.
	Fingerprint string
	UserAgent   string
}

type Decision struct {
	Allowed bool
	Reason  Reason
	// DryRun is set when a denial was computed but not enforced.
	DryRun bool
}

type Options struct {
	Mode     Mode
	FailOpen bool
}

type Guard struct {
	counter Counter
	opts    Options
	log     *logger.Logger
}

func New(counter Counter, opts Options, baseLog *logger.Logger) *Guard {
	if opts.Mode != ModeLive {
		opts.Mode = ModeDryRun
	}
	return &Guard{counter: counter, opts: opts, log: baseLog.With("component", "Guard")}
}

// Protect evaluates rule for req. Counter failures follow the FailOpen
// option; in DRY_RUN mode denials are logged and the request is allowed.
func (g *Guard) Protect(ctx context.Context, req Request, rule Rule) Decision {
	d := g.evaluate(ctx, req, rule)
	if d.Allowed {
		return d
	}

	if g.opts.Mode == ModeDryRun {
		g.log.Info("guard would deny (dry run)", "rule", rule.Name, "reason", d.Reason, "fingerprint", req.Fingerprint)
		return Decision{Allowed: true, Reason: d.Reason, DryRun: true}
	}
	g.log.Warn("guard denied request", "rule", rule.Name, "reason", d.Reason, "fingerprint", req.Fingerprint)
	return d
}

func (g *Guard) evaluate(ctx context.Context, req Request, rule Rule) Decision {
	if rule.DetectBots && IsBot(req.UserAgent, rule.AllowBots) {
		return Decision{Allowed: false, Reason: ReasonBot}
	}
	if rule.Max <= 0 || g.counter == nil {
		return Decision{Allowed: true}
	}

	fingerprint := req.Fingerprint
	if fingerprint == "" {
		fingerprint = "anonymous"
	}
	count, err := g.counter.Incr(ctx, rule.Name+":"+fingerprint, rule.Window)
	if err != nil {
		g.log.Error("rate limit counter unavailable", "rule", rule.Name, "fail_open", g.opts.FailOpen, "error", err)
		return Decision{Allowed: g.opts.FailOpen, Reason: ReasonError}
	}
	if count > rule.Max {
		return Decision{Allowed: false, Reason: ReasonRateLimit}
	}
	return Decision{Allowed: true}
}

var botMarkers = []string{
	"bot", "crawler", "spider", "slurp", "scrapy", "curl/", "wget/",
	"python-requests", "python-urllib", "go-http-client", "java/",
	"libwww-perl", "httpclient", "headlesschrome", "phantomjs",
}

// IsBot reports whether userAgent looks automated. An entry of allow that
// appears in the user agent exempts it.
func IsBot(userAgent string, allow []string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, a := range allow {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" && strings.Contains(ua, a) {
			return false
		}
	}
	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}
