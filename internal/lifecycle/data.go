package lifecycle

import (
	"net/url"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/pkg/retry"
)

type State int

const (
	StateNew State = iota
	StateInstalling
	// StateInstalled means installed and waiting to activate.
	StateInstalled
	StateActivating
	StateActive
	StateSuperseded
	// StateRedundant is terminal for a failed install.
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateRedundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// Manifest lists the URLs precached on install, grouped by target partition.
// Entries may be absolute or relative to the origin.
type Manifest struct {
	Critical []string `json:"critical"`
	Static   []string `json:"static"`
	Images   []string `json:"images"`
}

// Len reports the total number of URLs across all groups.
func (m Manifest) Len() int {
	return len(m.Critical) + len(m.Static) + len(m.Images)
}

// Params configures one Manager. A Manager is bound to a single version.
type Params struct {
	Origin   url.URL
	Version  string
	Names    partition.Set
	Manifest Manifest
	Retry    retry.RetryParam
	// LockKey serialises install and activate across processes sharing
	// one store.
	LockKey string
	// Concurrency caps parallel manifest fetches. Zero means no cap.
	Concurrency int
}

type precacheItem struct {
	partition string
	target    url.URL
}
