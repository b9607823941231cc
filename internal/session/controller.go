// Package session composes microphone, transport, and playback into one chat
// session and derives the aggregate state the UI layer observes.
package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sawt-voice/sawt/internal/syncx"
	"github.com/sawt-voice/sawt/internal/transport"
)

// Message is one conversation entry. Role is "user", "ai", or "server".
type Message struct {
	Role    string
	Content string
}

// SystemIdle is the resting server pipeline state.
const SystemIdle = "idle"

// Conn is the transport surface the controller consumes.
type Conn interface {
	Inbound() <-chan transport.Message
	Status() transport.Status
	Loading() bool
}

// Player schedules synthesized speech.
type Player interface {
	Play(clip []byte)
	StopAll()
	Level() float64
}

// Mic is the microphone session surface.
type Mic interface {
	Run(ctx context.Context) error
	ToggleMute() bool
	Granted() bool
	Muted() bool
	Transmitting() bool
	Level() float64
}

// convo is the controller-owned conversation state. The log is append-only;
// it is never truncated or rewritten.
type convo struct {
	log         []Message
	systemState string
}

// Controller wires the pipeline together. It adds no algorithms of its own:
// microphone audio flows to the transport via the Sender the mic session
// holds, and inbound messages are routed here, in delivery order, to playback
// and the conversation state.
type Controller struct {
	conn   Conn
	player Player
	mic    Mic
	st     *syncx.Guard[convo]
}

// NewController creates a session controller over the three collaborators.
func NewController(conn Conn, player Player, mic Mic) *Controller {
	return &Controller{
		conn:   conn,
		player: player,
		mic:    mic,
		st:     syncx.NewGuard(convo{systemState: SystemIdle}),
	}
}

// Run drives the session until ctx ends, the transport's inbound stream
// closes, or the microphone fails terminally.
func (c *Controller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.mic.Run(ctx) })
	g.Go(func() error {
		c.dispatchLoop(ctx)
		return nil
	})
	return g.Wait()
}

// dispatchLoop is the single consumer of inbound messages; no two messages
// interleave their effects on the conversation state.
func (c *Controller) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.conn.Inbound():
			if !ok {
				return
			}
			c.dispatch(msg)
		}
	}
}

func (c *Controller) dispatch(msg transport.Message) {
	switch msg.Kind {
	case transport.KindAudio:
		c.player.Play(msg.Audio)
	case transport.KindControl:
		if msg.Event == transport.ControlStopAudio {
			c.player.StopAll()
		}
	case transport.KindText:
		c.st.Update(func(v *convo) {
			v.log = append(v.log, Message{Role: msg.Role, Content: msg.Content})
			v.systemState = SystemIdle
		})
		slog.Debug("conversation entry", "role", msg.Role)
	case transport.KindEvent:
		c.st.Update(func(v *convo) { v.systemState = msg.Event })
		slog.Debug("system state", "state", msg.Event)
	}
}

// ToggleMute flips the microphone mute flag and returns the new value.
func (c *Controller) ToggleMute() bool { return c.mic.ToggleMute() }

// Snapshot is the aggregate observable session state.
type Snapshot struct {
	Connection   transport.Status
	Loading      bool
	Granted      bool
	Muted        bool
	Transmitting bool
	MicLevel     float64
	PlayLevel    float64
	SystemState  string
	Messages     []Message
}

// Snapshot returns a copy of everything external collaborators consume.
func (c *Controller) Snapshot() Snapshot {
	v := c.st.Get()
	return Snapshot{
		Connection:   c.conn.Status(),
		Loading:      c.conn.Loading(),
		Granted:      c.mic.Granted(),
		Muted:        c.mic.Muted(),
		Transmitting: c.mic.Transmitting(),
		MicLevel:     c.mic.Level(),
		PlayLevel:    c.player.Level(),
		SystemState:  v.systemState,
		Messages:     append([]Message(nil), v.log...),
	}
}

// Latest returns the newest conversation entry, if any.
func (c *Controller) Latest() (Message, bool) {
	v := c.st.Get()
	if len(v.log) == 0 {
		return Message{}, false
	}
	return v.log[len(v.log)-1], true
}
