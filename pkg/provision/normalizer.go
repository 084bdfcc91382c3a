package provision

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/teamauth/pkg/i18n"
	"github.com/dmitrymomot/teamauth/pkg/sanitizer"
)

// Normalizer turns raw provider profiles into canonical profiles and user candidates.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a Normalizer. Zero-valued fields of cfg fall back to DefaultConfig.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg.withDefaults()}
}

// Normalize canonicalizes raw. It never fails: a bad display name is replaced
// by the configured default, an unknown locale leaves the language unset.
// Email syntax is checked later by the Provisioner.
func (n *Normalizer) Normalize(raw RawProfile) (ExternalProfile, UserCandidate) {
	email := NormalizeEmail(raw.Email)
	avatar := n.AvatarURL(raw.Picture)

	profile := ExternalProfile{
		ProviderUserID:     strings.TrimSpace(raw.ID),
		Email:              email,
		DisplayName:        n.DisplayName(raw.Name),
		AvatarURL:          avatar,
		OrganizationDomain: strings.ToLower(strings.TrimSpace(raw.HostedDomain)),
		LocaleHint:         strings.TrimSpace(raw.Locale),
	}

	candidate := UserCandidate{
		Email:        email,
		DisplayName:  profile.DisplayName,
		LanguageCode: i18n.Match(profile.LocaleHint, n.cfg.Languages),
		AvatarURL:    avatar,
	}

	return profile, candidate
}

// DisplayName strips markup from name and returns it when its length is within
// [MinNameLength, MaxNameLength] characters, or the default user name otherwise.
func (n *Normalizer) DisplayName(name string) string {
	name = sanitizer.PlainText(name)
	if !validNameLength(name) {
		return n.cfg.DefaultUserName
	}
	return name
}

// AvatarURL requests the larger rendition of a provider default avatar.
// URLs that do not end with the configured size token are returned unchanged.
func (n *Normalizer) AvatarURL(url string) string {
	url = strings.TrimSpace(url)
	if n.cfg.AvatarSizeFrom == "" || !strings.HasSuffix(url, n.cfg.AvatarSizeFrom) {
		return url
	}
	return strings.TrimSuffix(url, n.cfg.AvatarSizeFrom) + n.cfg.AvatarSizeTo
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validNameLength(s string) bool {
	l := utf8.RuneCountInString(s)
	return l >= MinNameLength && l <= MaxNameLength
}
