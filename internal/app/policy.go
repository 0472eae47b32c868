package app

import "github.com/dkeye/Callwire/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a recipient whose send queue is full.
type Policy interface {
	OnBackPressure(to domain.Identity, event string) BackpressureAction
}

// DropPolicy drops the frame; signaling clients retry on their own.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.Identity, string) BackpressureAction { return DropFrame }

// KickPolicy closes the slow connection, which runs the disconnect path.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.Identity, string) BackpressureAction { return KickMember }

// PolicyByName maps the config value to a policy; unknown names drop.
func PolicyByName(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}
