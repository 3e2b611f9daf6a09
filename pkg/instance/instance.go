package instance

import (
	"os"
	"strconv"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/env"
)

// GetID returns the daemon instance identifier. FORKFINDERZ_INSTANCE_ID wins;
// otherwise hostname and pid are combined.
func GetID() string {
	if id := env.Get("FORKFINDERZ_INSTANCE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "notifyd"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}
