// Package profile defines the detected environment profile and the delivery
// policy derived from it.
package profile

// DeviceClass buckets viewport width into interaction classes.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DevicePhablet DeviceClass = "phablet"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
)

// NetworkTier is the effective connection type reported by the client
// environment, or unknown when the signal is absent.
type NetworkTier string

const (
	TierSlow2G  NetworkTier = "slow-2g"
	Tier2G      NetworkTier = "2g"
	Tier3G      NetworkTier = "3g"
	Tier4G      NetworkTier = "4g"
	TierUnknown NetworkTier = "unknown"
)

// Orientation of the viewport.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Signals are the raw profiling inputs. Every field that a runtime may not
// expose is a pointer; absence falls back to the documented defaults rather
// than being treated as zero.
type Signals struct {
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Environment   string   `json:"environment,omitempty"`
	TouchPoints   *int     `json:"touch_points,omitempty"`
	CoarsePointer *bool    `json:"coarse_pointer,omitempty"`
	EffectiveType *string  `json:"effective_type,omitempty"`
	DownlinkMbps  *float64 `json:"downlink,omitempty"`
	SaveData      *bool    `json:"save_data,omitempty"`
}

// EnvironmentProfile is a complete snapshot of the detected environment.
// Profiles are recomputed whole on any signal change and swapped
// atomically; they are never partially mutated.
type EnvironmentProfile struct {
	DeviceClass   DeviceClass `json:"device_class"`
	Environment   string      `json:"environment"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	Orientation   Orientation `json:"orientation"`
	TouchCapable  bool        `json:"touch_capable"`
	CoarsePointer bool        `json:"coarse_pointer"`
	NetworkTier   NetworkTier `json:"network_tier"`
	DownlinkMbps  float64     `json:"downlink_mbps"`
	HasDownlink   bool        `json:"has_downlink"`
	SaveData      bool        `json:"save_data"`
}

// slowDownlinkMbps is the numeric threshold below which a reported downlink
// classifies the connection as slow.
const slowDownlinkMbps = 1.5

// SlowNetwork reports whether the connection should be treated as slow.
// Absence of both tier and downlink yields false: unknown connections fail
// open toward the richer experience.
func (p EnvironmentProfile) SlowNetwork() bool {
	if p.NetworkTier == TierSlow2G || p.NetworkTier == Tier2G {
		return true
	}
	if p.HasDownlink && p.DownlinkMbps < slowDownlinkMbps {
		return true
	}
	return false
}

// OptimizationLevel grades how aggressively delivery is degraded.
type OptimizationLevel string

const (
	LevelAggressive OptimizationLevel = "aggressive"
	LevelModerate   OptimizationLevel = "moderate"
	LevelMinimal    OptimizationLevel = "minimal"
)

// ImageQuality tiers delivered image fidelity.
type ImageQuality string

const (
	QualityLow    ImageQuality = "low"
	QualityMedium ImageQuality = "medium"
	QualityHigh   ImageQuality = "high"
)

// DeliveryPolicy is derived from the current profile and never persisted.
// Identical profiles always yield identical policy.
type DeliveryPolicy struct {
	Level         OptimizationLevel `json:"level"`
	ImageQuality  ImageQuality      `json:"image_quality"`
	Animation     bool              `json:"animation"`
	ReducedMotion bool              `json:"reduced_motion"`
	ChunkSize     int               `json:"chunk_size"`
}
