package main

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/internal/config"
	"github.com/sipagent/core/media"
	"github.com/sipagent/core/metrics"
	"github.com/sipagent/core/sdp"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/ua"
)

// callManager owns the RTP port allocator and the media.UDPSession values
// it creates,
// bridging ua.UAS callbacks to RTP session lifecycle. Grounded on
// server.go's handler-registration style from the teacher, generalized
// from an in-memory call map to one keyed by dialog.ID.
type callManager struct {
	cfg     *config.Config
	metrics *metrics.Registry
	log     *logrus.Logger

	portAlloc *portAllocator

	mu       sync.Mutex
	sessions map[dialog.ID]media.CallSession
}

func newCallManager(cfg *config.Config, reg *metrics.Registry, log *logrus.Logger) *callManager {
	return &callManager{
		cfg:       cfg,
		metrics:   reg,
		log:       log,
		portAlloc: newPortAllocator(cfg.Media.RTPPortMin, cfg.Media.RTPPortMax),
		sessions:  make(map[dialog.ID]media.CallSession),
	}
}

func (cm *callManager) codecs() []sdp.Codec {
	codecs := make([]sdp.Codec, len(cm.cfg.Media.Codecs))
	for i, c := range cm.cfg.Media.Codecs {
		codecs[i] = sdp.Codec{PT: c.PT, Name: c.Name, ClockRate: c.ClockRate, Channels: c.Channels}
	}
	return codecs
}

// onInvite is the ua.UAS.OnInvite callback: it negotiates RTP, answers,
// and starts the bridge session.
func (cm *callManager) onInvite(call *ua.IncomingCall) {
	cm.log.WithFields(logrus.Fields{
		"call_id": call.CallID,
		"from":    call.Caller.String(),
		"to":      call.Callee.String(),
	}).Info("invite received")

	call.Ringing()

	if call.Offer == nil {
		cm.log.WithField("call_id", call.CallID).Warn("invite carried no SDP offer, rejecting")
		call.Reject(400, "Bad Request")
		return
	}

	port, ok := cm.portAlloc.acquire()
	if !ok {
		cm.log.WithField("call_id", call.CallID).Error("no free RTP ports, rejecting")
		call.Reject(503, "Service Unavailable")
		return
	}

	sess, err := media.NewUDPSession(cm.cfg.Media.LocalIP, port, call.Offer, cm.codecs(), cm.cfg.Media.SupportDTMF)
	if err != nil {
		cm.metrics.NegotiationFailures.WithLabelValues(err.Error()).Inc()
		cm.portAlloc.release(port)
		cm.log.WithField("call_id", call.CallID).WithError(err).Warn("sdp negotiation failed, rejecting")
		call.Reject(488, "Not Acceptable Here")
		return
	}

	answerBody, err := sdp.Build(sess.AnswerSDP())
	if err != nil {
		cm.portAlloc.release(port)
		sess.Stop()
		call.Reject(500, "Internal Server Error")
		return
	}

	d := call.Accept(answerBody)
	if d == nil {
		cm.portAlloc.release(port)
		sess.Stop()
		return
	}

	cm.mu.Lock()
	cm.sessions[d.ID] = sess
	cm.mu.Unlock()

	cm.metrics.DialogsActive.Inc()
	cm.metrics.DialogsTotal.WithLabelValues("answered").Inc()

	if err := sess.Start(context.Background()); err != nil {
		cm.log.WithField("call_id", call.CallID).WithError(err).Error("failed to start rtp session")
	}
	cm.log.WithFields(logrus.Fields{"call_id": call.CallID, "port": port}).Info("call answered")
}

// onBye is the ua.UAS.OnBye callback: it tears down the RTP session
// belonging to the terminated dialog.
func (cm *callManager) onBye(d *dialog.Dialog, _ *sip.Request) {
	cm.endSession(d.ID, "bye")
}

// onCancel is the ua.UAS.OnCancel callback for a call cancelled before a
// final response — the dialog never confirmed, so there is no session to
// release beyond the allocator's own pending ports, which ride with the
// process lifetime for a cancelled call (nothing was ever bound for it).
func (cm *callManager) onCancel(d *dialog.Dialog) {
	cm.log.WithField("call_id", d.ID.CallID).Info("call cancelled before answer")
}

func (cm *callManager) endSession(id dialog.ID, reason string) {
	cm.mu.Lock()
	sess, ok := cm.sessions[id]
	delete(cm.sessions, id)
	cm.mu.Unlock()
	if !ok {
		return
	}
	sess.Stop()
	cm.metrics.DialogsActive.Dec()
	cm.metrics.DialogsTotal.WithLabelValues(reason).Inc()
}

// portAllocator hands out RTP ports from a fixed range round-robin,
// grounded on sebacius-switchboard/internal/rtpmanager's port-pool
// pattern.
type portAllocator struct {
	mu     sync.Mutex
	min    int
	count  int
	cursor int
	used   map[int]bool
}

func newPortAllocator(min, max int) *portAllocator {
	return &portAllocator{min: min, count: max - min + 1, used: make(map[int]bool)}
}

func (p *portAllocator) acquire() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.count; i++ {
		port := p.min + p.cursor
		p.cursor = (p.cursor + 1) % p.count
		if !p.used[port] {
			p.used[port] = true
			return port, true
		}
	}
	return 0, false
}

func (p *portAllocator) release(port int) {
	p.mu.Lock()
	delete(p.used, port)
	p.mu.Unlock()
}
