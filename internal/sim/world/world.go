package world

import (
	"fmt"
	"sync/atomic"

	"drawbridge.ai/internal/persistence/snapshot"
	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/catalogs"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	Height             int
	SnapshotEveryTicks int

	// ViewerQueue is the default per-viewer outbound buffer.
	ViewerQueue int
	MaxViewers  int
}

// InputRequest carries one external mutation into the world loop. Resp, when
// set, receives the outcome once the input has been applied.
type InputRequest struct {
	Input protocol.Input
	Resp  chan InputResult
}

type InputResult struct {
	Tick    uint64 `json:"tick"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// Taken is what a TAKE_SLOT removed from the buffer.
	Taken *protocol.ItemStack `json:"taken,omitempty"`
}

func (r InputResult) OK() bool { return r.Code == "" }

type ViewerJoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan ViewerJoinResponse
}

type ViewerJoinResponse struct {
	Welcome protocol.WelcomeMsg
	// Err is set when the viewer was refused.
	Err *protocol.ErrorMsg
}

// World is a single-threaded authoritative simulation hosting drawbridges.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	tick atomic.Uint64

	chunks *ChunkStore
	meta   map[model.Vec3i]int

	switches   map[model.Vec3i]bool
	mechanisms map[model.Vec3i]*mechanism.Mechanism
	// lastSync is the container view most recently pushed to viewers.
	lastSync map[model.Vec3i]mechanism.ContainerSync

	viewers       map[string]*viewerState
	nextViewerNum atomic.Uint64

	inbox       chan InputRequest
	viewerJoin  chan ViewerJoinRequest
	viewerLeave chan string
	admin       chan adminSnapshotReq
	stop        chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value // WorldMetrics

	blockAir        uint16
	blockDrawbridge uint16
	blockSwitch     uint16
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick   uint64           `json:"tick"`
	Inputs []protocol.Input `json:"inputs,omitempty"`
	Digest string           `json:"digest"`
}

// Audit actions.
const (
	AuditMechPlace    = "MECH_PLACE"
	AuditMechPickup   = "MECH_PICKUP"
	AuditMechConfig   = "MECH_CONFIG"
	AuditMechTake     = "MECH_TAKE"
	AuditMechAdd      = "MECH_ADD"
	AuditMechRemove   = "MECH_REMOVE"
	AuditSwitchToggle = "SWITCH_TOGGLE"
	AuditSetBlock     = "SET_BLOCK"
)

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	Pos     [3]int         `json:"pos"`
	From    uint16         `json:"from"`
	To      uint16         `json:"to"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be > 0")
	}
	if cfg.Height <= 0 {
		return nil, fmt.Errorf("height must be > 0")
	}
	if cfg.ViewerQueue <= 0 {
		cfg.ViewerQueue = 32
	}
	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.ID(id)
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	air, err := b("AIR")
	if err != nil {
		return nil, err
	}
	bridge, err := b("DRAWBRIDGE")
	if err != nil {
		return nil, err
	}
	sw, err := b("SWITCH")
	if err != nil {
		return nil, err
	}

	w := &World{
		cfg:             cfg,
		catalogs:        cats,
		chunks:          NewChunkStore(cfg.Height, air),
		meta:            map[model.Vec3i]int{},
		switches:        map[model.Vec3i]bool{},
		mechanisms:      map[model.Vec3i]*mechanism.Mechanism{},
		lastSync:        map[model.Vec3i]mechanism.ContainerSync{},
		viewers:         map[string]*viewerState{},
		inbox:           make(chan InputRequest, 1024),
		viewerJoin:      make(chan ViewerJoinRequest, 64),
		viewerLeave:     make(chan string, 64),
		admin:           make(chan adminSnapshotReq, 8),
		stop:            make(chan struct{}),
		blockAir:        air,
		blockDrawbridge: bridge,
		blockSwitch:     sw,
	}
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Inbox accepts inputs from transports; they are applied at the next tick.
func (w *World) Inbox() chan<- InputRequest { return w.inbox }

func (w *World) ViewerJoin() chan<- ViewerJoinRequest { return w.viewerJoin }

func (w *World) ViewerLeave() chan<- string { return w.viewerLeave }
