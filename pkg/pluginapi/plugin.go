package pluginapi

// Registry receives the contributions a plugin makes while it is installed.
type Registry interface {
	RegisterReader(reader Reader) error
}

// Plugin is implemented by every reader module the host can install.
type Plugin interface {
	Name() string
	Version() string
	Register(Registry) error
}

const Version = "v1"
