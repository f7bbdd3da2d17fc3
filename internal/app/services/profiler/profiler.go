// Package profiler classifies the runtime environment of an application
// instance from reported viewport, pointer and network signals.
package profiler

import (
	"sync/atomic"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/profile"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Device class width thresholds.
const (
	mobileMaxWidth  = 480
	phabletMaxWidth = 768
	tabletMaxWidth  = 1024
)

// Detect computes a complete profile from raw signals. It is pure and
// re-entrant: identical signals always yield an identical profile, and
// absent optional signals fall back to their documented defaults.
func Detect(sig profile.Signals) profile.EnvironmentProfile {
	p := profile.EnvironmentProfile{
		Width:       sig.Width,
		Height:      sig.Height,
		Environment: sig.Environment,
		NetworkTier: profile.TierUnknown,
		Orientation: profile.OrientationLandscape,
	}

	switch {
	case sig.Width < mobileMaxWidth:
		p.DeviceClass = profile.DeviceMobile
	case sig.Width < phabletMaxWidth:
		p.DeviceClass = profile.DevicePhablet
	case sig.Width < tabletMaxWidth:
		p.DeviceClass = profile.DeviceTablet
	default:
		p.DeviceClass = profile.DeviceDesktop
	}

	if sig.Height > sig.Width {
		p.Orientation = profile.OrientationPortrait
	}
	if sig.TouchPoints != nil {
		p.TouchCapable = *sig.TouchPoints > 0
	}
	if sig.CoarsePointer != nil {
		p.CoarsePointer = *sig.CoarsePointer
	}
	if sig.EffectiveType != nil {
		p.NetworkTier = normalizeTier(*sig.EffectiveType)
	}
	if sig.DownlinkMbps != nil {
		p.DownlinkMbps = *sig.DownlinkMbps
		p.HasDownlink = true
	}
	if sig.SaveData != nil {
		p.SaveData = *sig.SaveData
	}
	return p
}

func normalizeTier(effectiveType string) profile.NetworkTier {
	switch profile.NetworkTier(effectiveType) {
	case profile.TierSlow2G, profile.Tier2G, profile.Tier3G, profile.Tier4G:
		return profile.NetworkTier(effectiveType)
	default:
		return profile.TierUnknown
	}
}

// Service holds the current profile for the instance. Profiles swap
// atomically: a reader sees either the old or the new profile, never a
// partial update.
type Service struct {
	current atomic.Pointer[profile.EnvironmentProfile]
	log     *logger.Logger
}

// New creates a profiler with an unknown-environment default profile.
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profiler")
	}
	s := &Service{log: log}
	initial := Detect(profile.Signals{Width: tabletMaxWidth})
	s.current.Store(&initial)
	return s
}

// Observe recomputes the profile from fresh signals and swaps it in whole.
// Resize, orientation and network-change signals all funnel through here.
func (s *Service) Observe(sig profile.Signals) profile.EnvironmentProfile {
	p := Detect(sig)
	s.current.Store(&p)
	s.log.WithField("device_class", string(p.DeviceClass)).
		WithField("network_tier", string(p.NetworkTier)).
		Debug("environment profile updated")
	return p
}

// Current returns the latest profile.
func (s *Service) Current() profile.EnvironmentProfile {
	return *s.current.Load()
}
