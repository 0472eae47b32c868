package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEServers builds the list handed to clients on registration. STUN urls
// share one entry; TURN urls share another carrying the credentials.
func (c *Config) ICEServers() ([]webrtc.ICEServer, error) {
	var stun, turn []string
	for _, raw := range c.ICEServerURLs {
		url := strings.TrimSpace(raw)
		switch {
		case url == "":
			continue
		case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
			stun = append(stun, url)
		case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
			turn = append(turn, url)
		default:
			return nil, fmt.Errorf("ice_servers: unsupported url scheme: %q", url)
		}
	}

	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		user := strings.TrimSpace(c.TURNUsername)
		cred := strings.TrimSpace(c.TURNCredential)
		if user == "" || cred == "" {
			return nil, errors.New("ice_servers: turn urls require turn_username and turn_credential")
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       user,
			Credential:     cred,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers, nil
}
