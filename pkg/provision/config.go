package provision

// Config carries the process-wide settings the normalizer and resolver need.
// Values are passed in explicitly; nothing is read from globals.
type Config struct {
	// Interface languages, in priority order. Locale hints are matched against them.
	Languages []string `env:"SUPPORTED_LANGUAGES" envSeparator:"," envDefault:"en_US,de_DE,es_ES,fr_FR,it_IT,ja_JP,ko_KR,nl_NL,pt_BR,pt_PT,ru_RU,tr_TR,uk_UA,vi_VN,zh_CN,zh_TW"`

	// Substituted when the provider's display name is empty or too long.
	DefaultUserName string `env:"DEFAULT_USER_NAME" envDefault:"Default User"`

	// Used when no organization domain yields a usable tenant name.
	DefaultTenantName string `env:"DEFAULT_TENANT_NAME" envDefault:"My Team"`

	// Avatar URL size token rewritten to request a larger rendition.
	AvatarSizeFrom string `env:"AVATAR_SIZE_FROM" envDefault:"=s96-c"`
	AvatarSizeTo   string `env:"AVATAR_SIZE_TO" envDefault:"=s128-c"`
}

// Name length bounds enforced by storage, in characters.
const (
	MinNameLength = 2
	MaxNameLength = 255
)

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Languages:         []string{"en_US"},
		DefaultUserName:   "Default User",
		DefaultTenantName: "My Team",
		AvatarSizeFrom:    "=s96-c",
		AvatarSizeTo:      "=s128-c",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultUserName == "" {
		c.DefaultUserName = d.DefaultUserName
	}
	if c.DefaultTenantName == "" {
		c.DefaultTenantName = d.DefaultTenantName
	}
	if c.AvatarSizeFrom == "" {
		c.AvatarSizeFrom, c.AvatarSizeTo = d.AvatarSizeFrom, d.AvatarSizeTo
	}
	return c
}
