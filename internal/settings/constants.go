package settings

import "time"

// Site modes and defaults for the site configuration singleton.
const (
	// SiteModeLive enables challenges and flag submission.
	SiteModeLive = "live"
	// SiteModeLeaderboardOnly restricts non-admins to the leaderboard and auth pages.
	SiteModeLeaderboardOnly = "leaderboard_only"
	// DefaultSiteMode is the mode of a freshly created site configuration.
	DefaultSiteMode = SiteModeLive
	// SiteConfigID is the fixed primary key of the site configuration row.
	SiteConfigID = 1
)

// Session and request defaults.
const (
	// DefaultSessionName is the session cookie name.
	DefaultSessionName = "ctf_session"
	// DefaultSessionTTL is the session lifetime measured from the last write.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultDownloadLinkExpiry bounds the lifetime of signed download links.
	DefaultDownloadLinkExpiry = 5 * time.Minute
	// DefaultUploadDir is where challenge files are stored.
	DefaultUploadDir = "public/uploads"
	// DefaultUploadMaxSize is the upload size limit in bytes (10 MiB).
	DefaultUploadMaxSize = 10 * 1024 * 1024
	// DefaultMFAIssuer is the issuer label shown by authenticator apps.
	DefaultMFAIssuer = "CTF Platform"
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6
)

// Rate limit defaults.
const (
	// DefaultSubmissionRateLimit is the number of flag submissions per user per window.
	DefaultSubmissionRateLimit = 10
	// DefaultLoginRateLimit is the number of login attempts per client IP per window.
	DefaultLoginRateLimit = 20
	// DefaultRateLimitWindow is the fixed window length.
	DefaultRateLimitWindow = time.Minute
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "ctf:rl"
)

// Path classification used by the access gate.
const (
	// APIPrefix marks JSON API routes; everything else is a browser route.
	APIPrefix = "/api/"
	// LoginPath is the browser login page.
	LoginPath = "/login"
	// LeaderboardPath is the browser leaderboard page.
	LeaderboardPath = "/leaderboard"
)

// LeaderboardOnlyAllowedPaths are reachable by non-admins while the site is in
// leaderboard_only mode.
var LeaderboardOnlyAllowedPaths = []string{
	"/",
	"/leaderboard",
	"/login",
	"/register",
	"/healthz",
	"/api/leaderboard",
	"/api/admin/site-config/public",
}

// PublicPathPrefixes are never site-gated.
var PublicPathPrefixes = []string{
	"/public/",
	"/assets/",
	"/api/auth/",
	"/api/init/",
}

// ChallengeCategories lists the accepted challenge categories.
var ChallengeCategories = []string{
	"OSINT",
	"Forensics",
	"Cryptography",
	"Web",
	"Reverse Engineering",
}

// DefaultChallengeCategory is used when a challenge is created without a category.
const DefaultChallengeCategory = "Forensics"
