package shell

import (
	"github.com/sirupsen/logrus"
)

// NewLayerSurface handles a client's new-layer-surface request. The entry
// is mapped immediately; its configure handshake starts on its first
// commit.
func (s *Shell) NewLayerSurface(surface SurfaceID, output string, layer Layer, namespace string) {
	s.enter()
	defer s.leave()

	if s.hasRole(surface) {
		logrus.WithField("surface", surface).Debugln("Duplicate layer role request ignored")
		return
	}
	entry := &LayerEntry{
		Surface:   surface,
		Namespace: namespace,
		Layer:     layer,
		Output:    output,
	}
	s.layers.Insert(entry)
	s.handler.OnShellEvent(LayerCreated{Layer: entry})
}

// AckLayerConfigure forwards a layer surface's ack verbatim. The serial is
// not validated against the outstanding configure — the client is trusted
// here and policing the serial is the handler's choice. A mismatch against
// the last serial this shell sent is logged so broken clients show up.
func (s *Shell) AckLayerConfigure(surface SurfaceID, serial uint32) {
	s.enter()
	defer s.leave()

	if last, ok := s.layerSerials[surface]; s.WarnLayerAckMismatch && ok && last != serial {
		logrus.WithFields(logrus.Fields{
			"surface":   surface,
			"acked":     serial,
			"last-sent": last,
		}).Warnln("Layer ack serial does not match last configure")
	}
	s.handler.OnShellEvent(LayerAckConfigure{Surface: surface, Serial: serial})
}
