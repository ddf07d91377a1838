package domain

import (
	"fmt"
	"strings"
)

// Strategy selects how diagrams reach the rendering engine.
type Strategy int

const (
	// StrategyLocal invokes the engine as one local process per page.
	StrategyLocal Strategy = iota
	// StrategyServer talks to a pre-existing remote rendering server.
	StrategyServer
	// StrategyLocalServer spawns a rendering server owned by the session.
	StrategyLocalServer
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyLocal:
		return "Local"
	case StrategyServer:
		return "PlantUMLServer"
	case StrategyLocalServer:
		return "LocalServer"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the configuration names, case-insensitively.
// "server" and "local-server" are accepted as short forms.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return StrategyLocal, nil
	case "plantumlserver", "server", "remote", "remote-server":
		return StrategyServer, nil
	case "localserver", "local-server", "spawned-server":
		return StrategyLocalServer, nil
	default:
		return StrategyLocal, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Settings is the resolved configuration for one source location.
type Settings struct {
	Render         Strategy `json:"render" yaml:"render" mapstructure:"render"`
	Server         string   `json:"server" yaml:"server" mapstructure:"server"`
	Jar            string   `json:"jar" yaml:"jar" mapstructure:"jar"`
	Java           string   `json:"java" yaml:"java" mapstructure:"java"`
	JarArgs        []string `json:"jar_args" yaml:"jar_args" mapstructure:"jar_args"`
	AutoUpdate     bool     `json:"auto_update" yaml:"auto_update" mapstructure:"auto_update"`
	SnapIndicators bool     `json:"snap_indicators" yaml:"snap_indicators" mapstructure:"snap_indicators"`
}

// DefaultSettings mirrors the editor defaults: local rendering with auto-update.
func DefaultSettings() Settings {
	return Settings{
		Render:     StrategyLocal,
		Java:       "java",
		AutoUpdate: true,
	}
}

// Support is what a server address is known to accept for the preferred
// request method. Facts only ever move away from SupportUnknown.
type Support int

const (
	SupportUnknown Support = iota
	SupportConfirmed
	SupportRejected
)

func (s Support) String() string {
	switch s {
	case SupportUnknown:
		return "unknown"
	case SupportConfirmed:
		return "confirmed"
	case SupportRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Support(%d)", int(s))
	}
}

// ParseSupport is the inverse of Support.String.
func ParseSupport(s string) Support {
	switch s {
	case "confirmed":
		return SupportConfirmed
	case "rejected":
		return SupportRejected
	default:
		return SupportUnknown
	}
}
