package server

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEServerConfig is the configuration shape of one ICE server entry, as it
// appears under webrtc.ice_servers in the config file.
type ICEServerConfig struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// parseICEServers validates the configured entries and converts them into
// the pion representation served to clients. TURN entries must carry
// credentials; STUN entries must not require any.
func parseICEServers(entries []ICEServerConfig) ([]webrtc.ICEServer, error) {
	servers := make([]webrtc.ICEServer, 0, len(entries))

	for i, entry := range entries {
		if len(entry.URLs) == 0 {
			return nil, fmt.Errorf("entry %d: no urls", i)
		}

		hasTURN := false
		for _, raw := range entry.URLs {
			url := strings.ToLower(strings.TrimSpace(raw))
			switch {
			case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
			case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
				hasTURN = true
			default:
				return nil, fmt.Errorf("entry %d: unsupported url scheme in %q", i, raw)
			}
		}

		if hasTURN && (strings.TrimSpace(entry.Username) == "" || strings.TrimSpace(entry.Credential) == "") {
			return nil, fmt.Errorf("entry %d: turn url requires username and credential", i)
		}

		server := webrtc.ICEServer{
			URLs:     append([]string(nil), entry.URLs...),
			Username: entry.Username,
		}
		if entry.Credential != "" {
			server.Credential = entry.Credential
		}
		servers = append(servers, server)
	}

	return servers, nil
}
