// Package delivery derives concrete adaptation decisions from the current
// environment profile.
package delivery

import "github.com/R3E-Network/offline_gateway/internal/app/domain/profile"

// Chunk sizes in bytes per optimization level.
const (
	chunkSmall  = 16 << 10
	chunkMedium = 64 << 10
	chunkLarge  = 256 << 10
)

// Selector maps profiles to delivery policy. It is stateless; identical
// profiles always yield identical policy, which keeps UI snapshots
// deterministic under test.
type Selector struct{}

// NewSelector constructs the policy selector.
func NewSelector() *Selector { return &Selector{} }

// Select evaluates the total policy function for a profile. A slow network
// or an explicit save-data preference forces aggressive optimization; 3g
// connections and mobile-class devices get the moderate tier; everything
// else gets the full experience.
func (Selector) Select(p profile.EnvironmentProfile) profile.DeliveryPolicy {
	switch {
	case p.SlowNetwork() || p.SaveData:
		return profile.DeliveryPolicy{
			Level:         profile.LevelAggressive,
			ImageQuality:  profile.QualityLow,
			Animation:     false,
			ReducedMotion: true,
			ChunkSize:     chunkSmall,
		}
	case p.NetworkTier == profile.Tier3G || p.DeviceClass == profile.DeviceMobile:
		return profile.DeliveryPolicy{
			Level:         profile.LevelModerate,
			ImageQuality:  profile.QualityMedium,
			Animation:     true,
			ReducedMotion: true,
			ChunkSize:     chunkMedium,
		}
	default:
		return profile.DeliveryPolicy{
			Level:         profile.LevelMinimal,
			ImageQuality:  profile.QualityHigh,
			Animation:     true,
			ReducedMotion: false,
			ChunkSize:     chunkLarge,
		}
	}
}
