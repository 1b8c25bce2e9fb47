package backends

// Type names a backend adapter family.
type Type string

const (
	// TypeBlob stores each collection as one JSON file behind a WebDAV
	// endpoint.
	TypeBlob Type = "blob"
	// TypeObject stores each document under its own key in Redis.
	TypeObject Type = "object"
)

// Config is the top-level structure of backends.yaml.
type Config struct {
	Backends []Definition `yaml:"backends"`
}

// Definition describes one configured remote backend.
type Definition struct {
	Name     string `yaml:"name"`
	Type     Type   `yaml:"type"`
	Disabled bool   `yaml:"disabled,omitempty"`

	// Blob backends.
	URL      string `yaml:"url,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Object backends.
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty"`
}
