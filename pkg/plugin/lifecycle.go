package plugin

import "adsbridge/pkg/host"

// OnLoaded attaches the runtime's delivery channel unless one is held.
func (p *Plugin) OnLoaded(rt *host.Runtime) {
	if p.dispatcher.Attach(rt.ID(), rt.Dispatcher()) {
		p.log.Debug("Delivery channel attached", "runtime_id", rt.ID())
	}
}

func (p *Plugin) OnStarted(*host.Runtime) {}

func (p *Plugin) OnSuspended(*host.Runtime) {
	p.activity.RunOnUIThread(p.sdk.OnPause)
}

func (p *Plugin) OnResumed(*host.Runtime) {
	p.activity.RunOnUIThread(p.sdk.OnResume)
}

// OnExiting drops the listener and the delivery channel of rt.
func (p *Plugin) OnExiting(rt *host.Runtime) {
	current := p.dispatcher.Current()
	if current == nil || current.ID != rt.ID() {
		return
	}

	sess := p.dispatcher.Detach()
	if sess != nil {
		sess.Listener.Release(rt.Lua())
	}
	p.log.Debug("Delivery channel detached", "runtime_id", rt.ID())
}
