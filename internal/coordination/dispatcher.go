package coordination

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mike-seger/polaris-player-2-sub001/internal/metrics"
	"github.com/mike-seger/polaris-player-2-sub001/internal/protocol"
	"github.com/mike-seger/polaris-player-2-sub001/internal/session"
)

// Initiator sentinels for commands not originated by a client session.
const (
	InitiatorServer  = "server"
	InitiatorConsole = "console"
)

// Options are the scheduling tunables of the dispatcher.
type Options struct {
	// PlayLookahead is added to now when scheduling a play so all clients,
	// sender included, resume at the same instant.
	PlayLookahead time.Duration
	// SeekLookahead is the (shorter) window for seeks; pause needs none.
	SeekLookahead time.Duration
	// SettleDelay is the grace period between a client reporting readiness
	// and its forced seek to the group baseline.
	SettleDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		PlayLookahead: 300 * time.Millisecond,
		SeekLookahead: 100 * time.Millisecond,
		SettleDelay:   time.Second,
	}
}

// --- Command types ---

type dispatcherCmd interface{ dispatcherCmd() }

type cmdConnect struct {
	sender  session.Sender
	replyCh chan string
}

func (cmdConnect) dispatcherCmd() {}

type cmdDisconnect struct {
	sessionID string
}

func (cmdDisconnect) dispatcherCmd() {}

type cmdInbound struct {
	sessionID string
	msg       *protocol.Inbound
}

func (cmdInbound) dispatcherCmd() {}

type cmdInitialSync struct {
	sessionID string
}

func (cmdInitialSync) dispatcherCmd() {}

type cmdOperatorPlay struct {
	position float64
}

func (cmdOperatorPlay) dispatcherCmd() {}

type cmdOperatorPause struct{}

func (cmdOperatorPause) dispatcherCmd() {}

type cmdOperatorSeek struct {
	position float64
}

func (cmdOperatorSeek) dispatcherCmd() {}

type cmdOperatorSync struct{}

func (cmdOperatorSync) dispatcherCmd() {}

type cmdSnapshot struct {
	replyCh chan []session.Info
}

func (cmdSnapshot) dispatcherCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) dispatcherCmd() {}

// --- Dispatcher ---

// Dispatcher is the synchronization core: a single goroutine that owns the
// session registry and the command ledger, validates inbound client events,
// suppresses echoes and broadcasts scheduled transport commands. Connection
// read pumps and the admin console are producers into its command channel;
// nothing else may touch the registry.
type Dispatcher struct {
	cmdCh    chan dispatcherCmd
	registry *session.Registry
	ledger   *Ledger
	clock    clockwork.Clock
	opts     Options

	commandSeq uint64
	done       chan struct{}
}

func NewDispatcher(registry *session.Registry, ledger *Ledger, clock clockwork.Clock, opts Options) *Dispatcher {
	return &Dispatcher{
		cmdCh:    make(chan dispatcherCmd, 256),
		registry: registry,
		ledger:   ledger,
		clock:    clock,
		opts:     opts,
		done:     make(chan struct{}),
	}
}

// Start begins the dispatcher's actor goroutine.
func (d *Dispatcher) Start() {
	go d.run()
}

// Connect registers a new session for the given sender, emits the welcome
// message and returns the minted session id.
func (d *Dispatcher) Connect(sender session.Sender) string {
	replyCh := make(chan string, 1)
	d.post(cmdConnect{sender: sender, replyCh: replyCh})
	select {
	case id := <-replyCh:
		return id
	case <-d.done:
		return ""
	}
}

// Disconnect removes the session. Idempotent; timers armed for the session
// become no-ops once it is gone.
func (d *Dispatcher) Disconnect(sessionID string) {
	d.post(cmdDisconnect{sessionID: sessionID})
}

// Dispatch decodes one raw client frame and queues it for processing.
// Malformed frames are logged and dropped; the connection stays up.
func (d *Dispatcher) Dispatch(sessionID string, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		metrics.MalformedMessages.Inc()
		slog.Warn("Discarding malformed client frame", "session_id", sessionID, "error", err)
		return
	}
	d.post(cmdInbound{sessionID: sessionID, msg: msg})
}

// Operator entry points. These mirror the client event handlers but bypass the
// echo check (operator input can never be a loopback) and never exclude a
// recipient.

func (d *Dispatcher) OperatorPlay(position float64) {
	d.post(cmdOperatorPlay{position: position})
}

func (d *Dispatcher) OperatorPause() {
	d.post(cmdOperatorPause{})
}

func (d *Dispatcher) OperatorSeek(position float64) {
	d.post(cmdOperatorSeek{position: position})
}

// OperatorSync forces every connected client back to position 0, each with a
// fresh command id.
func (d *Dispatcher) OperatorSync() {
	d.post(cmdOperatorSync{})
}

// Sessions returns a snapshot of all live sessions for diagnostics.
func (d *Dispatcher) Sessions() []session.Info {
	replyCh := make(chan []session.Info, 1)
	d.post(cmdSnapshot{replyCh: replyCh})
	select {
	case infos := <-replyCh:
		return infos
	case <-d.done:
		return nil
	}
}

// Stop shuts the dispatcher down and waits for the actor goroutine to drain.
func (d *Dispatcher) Stop() {
	doneCh := make(chan struct{})
	d.post(cmdStop{doneCh: doneCh})
	select {
	case <-doneCh:
	case <-d.done:
	}
}

// post queues a command unless the dispatcher has already stopped. Timer
// callbacks fire from their own goroutines, so the stop path must never
// strand them on a dead channel.
func (d *Dispatcher) post(cmd dispatcherCmd) {
	select {
	case d.cmdCh <- cmd:
	case <-d.done:
	}
}

func (d *Dispatcher) run() {
	for cmd := range d.cmdCh {
		switch c := cmd.(type) {
		case cmdConnect:
			d.handleConnect(c)
		case cmdDisconnect:
			d.handleDisconnect(c.sessionID)
		case cmdInbound:
			d.handleInbound(c.sessionID, c.msg)
		case cmdInitialSync:
			d.handleInitialSync(c.sessionID)
		case cmdOperatorPlay:
			d.broadcastPlay(c.position, InitiatorConsole)
		case cmdOperatorPause:
			d.broadcastPause(InitiatorConsole)
		case cmdOperatorSeek:
			d.broadcastSeek(c.position, InitiatorConsole, "")
		case cmdOperatorSync:
			d.handleOperatorSync()
		case cmdSnapshot:
			c.replyCh <- d.registry.Snapshot()
		case cmdStop:
			close(d.done)
			close(c.doneCh)
			return
		}
	}
}

// --- Connection lifecycle ---

func (d *Dispatcher) handleConnect(c cmdConnect) {
	s := d.registry.Register(c.sender)
	metrics.ConnectedClients.Set(float64(d.registry.Len()))
	slog.Info("Client connected", "session_id", s.ID, "total", d.registry.Len())

	d.unicast(s, protocol.Welcome{
		Type:       protocol.KindWelcome,
		ClientID:   s.ID,
		ServerTime: d.nowMillis(),
	})

	c.replyCh <- s.ID
}

func (d *Dispatcher) handleDisconnect(sessionID string) {
	if d.registry.Get(sessionID) == nil {
		return
	}
	d.registry.Unregister(sessionID)
	metrics.ConnectedClients.Set(float64(d.registry.Len()))
	slog.Info("Client disconnected", "session_id", sessionID, "remaining", d.registry.Len())
}

// --- Inbound events ---

func (d *Dispatcher) handleInbound(sessionID string, msg *protocol.Inbound) {
	s := d.registry.Get(sessionID)
	if s == nil {
		// Session disconnected between arrival and processing.
		return
	}

	// Advisory state piggybacks on any message kind.
	d.registry.UpdateState(sessionID, session.StateUpdate{
		CurrentTime: msg.CurrentTime,
		MediaReady:  msg.MediaReady,
	})

	// Explicit acknowledgments of server commands carry no further action.
	if msg.ResponseTo != "" {
		slog.Debug("Command acknowledged", "session_id", sessionID, "command_id", msg.ResponseTo)
		return
	}

	switch msg.Type {
	case protocol.KindSyncRequest:
		d.unicast(s, protocol.SyncReply{
			Type:           protocol.KindSync,
			ServerTime:     d.nowMillis(),
			ClientSendTime: msg.ClientTime,
			RequestID:      msg.RequestID,
		})

	case protocol.KindClientReady:
		d.handleClientReady(s)

	case protocol.KindClientPlay:
		if d.isEcho(sessionID, msg.CommandID) {
			return
		}
		position := s.CurrentTime
		if msg.Position != nil {
			position = *msg.Position
		}
		d.broadcastPlay(position, s.ID)

	case protocol.KindClientPause:
		if d.isEcho(sessionID, msg.CommandID) {
			return
		}
		d.broadcastPause(s.ID)

	case protocol.KindClientSeek:
		if d.isEcho(sessionID, msg.CommandID) {
			return
		}
		// Reactions to sync probes re-align only the reacting client;
		// only user-initiated scrubs propagate.
		if msg.IsResponse {
			return
		}
		if msg.Position == nil {
			metrics.MalformedMessages.Inc()
			slog.Warn("Discarding seek without position", "session_id", sessionID)
			return
		}
		d.broadcastSeek(*msg.Position, s.ID, s.ID)

	case protocol.KindHeartbeat:
		d.unicast(s, protocol.HeartbeatAck{
			Type:       protocol.KindHeartbeatAck,
			ServerTime: d.nowMillis(),
		})

	case protocol.KindStatusUpdate:
		// State already merged above; status updates never broadcast.

	default:
		slog.Debug("Ignoring unknown message type", "session_id", sessionID, "type", msg.Type)
	}
}

func (d *Dispatcher) handleClientReady(s *session.Session) {
	s.Ready = true
	s.MediaReady = true
	slog.Info("Client ready", "session_id", s.ID)

	// One forced baseline seek per connection lifetime, after the client had
	// a moment to buffer. Duplicate ready signals must not re-arm it.
	if s.PendingInitialSync {
		return
	}
	s.PendingInitialSync = true

	sessionID := s.ID
	d.clock.AfterFunc(d.opts.SettleDelay, func() {
		d.post(cmdInitialSync{sessionID: sessionID})
	})
}

// handleInitialSync fires after the settle delay. The session may have
// disconnected in the meantime, in which case this is a no-op.
func (d *Dispatcher) handleInitialSync(sessionID string) {
	s := d.registry.Get(sessionID)
	if s == nil {
		return
	}

	commandID := d.mintCommandID()
	d.ledger.Record(commandID)

	d.unicast(s, protocol.Seek{
		Type:          protocol.KindSeek,
		CommandID:     commandID,
		Timestamp:     d.nowMillis() + d.opts.SeekLookahead.Milliseconds(),
		Position:      0,
		InitiatedBy:   InitiatorServer,
		IsInitialSync: true,
	})
	s.LastCommandID = commandID
	slog.Info("Initial sync sent", "session_id", sessionID, "command_id", commandID)
}

func (d *Dispatcher) handleOperatorSync() {
	count := 0
	d.registry.ForEach(func(s *session.Session) {
		commandID := d.mintCommandID()
		d.ledger.Record(commandID)
		if !d.unicast(s, protocol.Seek{
			Type:          protocol.KindSeek,
			CommandID:     commandID,
			Timestamp:     d.nowMillis() + d.opts.SeekLookahead.Milliseconds(),
			Position:      0,
			InitiatedBy:   InitiatorServer,
			IsInitialSync: true,
		}) {
			return
		}
		s.LastCommandID = commandID
		count++
	})
	slog.Info("Forced resync to 0", "clients", count)
}

// --- Broadcast paths ---

// broadcastPlay fans a play command out to every client including the sender:
// the sender must re-align to the agreed future instant rather than trust its
// locally issued action time.
func (d *Dispatcher) broadcastPlay(position float64, initiatedBy string) {
	commandID := d.mintCommandID()
	d.ledger.Record(commandID)

	now := d.nowMillis()
	count := d.fanOut(protocol.Play{
		Type:        protocol.KindPlay,
		CommandID:   commandID,
		Timestamp:   now + d.opts.PlayLookahead.Milliseconds(),
		Position:    position,
		InitiatedBy: initiatedBy,
		ServerTime:  now,
	}, commandID, "")

	metrics.BroadcastsTotal.WithLabelValues(protocol.KindPlay).Inc()
	slog.Info("Play broadcast", "initiated_by", initiatedBy, "position", position,
		"command_id", commandID, "recipients", count)
}

// broadcastPause also includes the sender; pause carries no lookahead because
// pausing is not timing-sensitive the way resuming in sync is.
func (d *Dispatcher) broadcastPause(initiatedBy string) {
	commandID := d.mintCommandID()
	d.ledger.Record(commandID)

	count := d.fanOut(protocol.Pause{
		Type:        protocol.KindPause,
		CommandID:   commandID,
		Timestamp:   d.nowMillis(),
		InitiatedBy: initiatedBy,
	}, commandID, "")

	metrics.BroadcastsTotal.WithLabelValues(protocol.KindPause).Inc()
	slog.Info("Pause broadcast", "initiated_by", initiatedBy,
		"command_id", commandID, "recipients", count)
}

// broadcastSeek excludes the sender: it already knows its target position and
// re-delivering the same seek only risks re-triggering its input handling.
// Operator seeks pass an empty excludeID and reach everyone.
func (d *Dispatcher) broadcastSeek(position float64, initiatedBy, excludeID string) {
	commandID := d.mintCommandID()
	d.ledger.Record(commandID)

	count := d.fanOut(protocol.Seek{
		Type:        protocol.KindSeek,
		CommandID:   commandID,
		Timestamp:   d.nowMillis() + d.opts.SeekLookahead.Milliseconds(),
		Position:    position,
		InitiatedBy: initiatedBy,
	}, commandID, excludeID)

	metrics.BroadcastsTotal.WithLabelValues(protocol.KindSeek).Inc()
	slog.Info("Seek broadcast", "initiated_by", initiatedBy, "position", position,
		"command_id", commandID, "recipients", count)
}

// fanOut delivers one encoded command to every session except excludeID.
// A recipient that fails to accept the frame is skipped for this message;
// the fan-out never aborts.
func (d *Dispatcher) fanOut(msg any, commandID, excludeID string) int {
	data, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("Failed to encode broadcast", "command_id", commandID, "error", err)
		return 0
	}

	count := 0
	d.registry.ForEach(func(s *session.Session) {
		if s.ID == excludeID {
			return
		}
		if err := s.Sender.Send(data); err != nil {
			metrics.SendsDropped.Inc()
			slog.Warn("Skipping unreachable client", "session_id", s.ID, "error", err)
			return
		}
		s.LastCommandID = commandID
		count++
	})
	return count
}

// unicast sends one message to a single session, reporting delivery.
func (d *Dispatcher) unicast(s *session.Session, msg any) bool {
	data, err := protocol.Encode(msg)
	if err != nil {
		slog.Error("Failed to encode message", "session_id", s.ID, "error", err)
		return false
	}
	if err := s.Sender.Send(data); err != nil {
		metrics.SendsDropped.Inc()
		slog.Warn("Unicast dropped", "session_id", s.ID, "error", err)
		return false
	}
	return true
}

// --- Helpers ---

// isEcho reports whether the inbound event merely re-reports a command the
// server itself issued within the ledger TTL.
func (d *Dispatcher) isEcho(sessionID, commandID string) bool {
	if commandID == "" || !d.ledger.Contains(commandID) {
		return false
	}
	metrics.EchoesSuppressed.Inc()
	slog.Debug("Ignoring loopback command", "session_id", sessionID, "command_id", commandID)
	return true
}

func (d *Dispatcher) mintCommandID() string {
	d.commandSeq++
	return fmt.Sprintf("cmd_%d_%d", d.nowMillis(), d.commandSeq)
}

func (d *Dispatcher) nowMillis() int64 {
	return d.clock.Now().UnixMilli()
}
