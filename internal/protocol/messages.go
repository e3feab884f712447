package protocol

// HELLO (viewer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> viewer)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	ViewerID        string    `json:"viewer_id"`
	WorldID         string    `json:"world_id"`
	Tick            uint64    `json:"tick"`
	TickRateHz      int       `json:"tick_rate_hz"`
	BlockPalette    DigestRef `json:"block_palette"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// SYNC (server -> viewer): the lightweight container view of one mechanism.
type SyncMsg struct {
	Type     string `json:"type"`
	Tick     uint64 `json:"tick"`
	Pos      [3]int `json:"pos"`
	Extended int    `json:"extended"`
	Speed    int    `json:"speed"`
	NeedsRS  bool   `json:"needsrs"`
}

// RENDER (server -> viewer): chunk-load view of one mechanism.
type RenderMsg struct {
	Type       string    `json:"type"`
	Tick       uint64    `json:"tick"`
	Pos        [3]int    `json:"pos"`
	Facing     string    `json:"facing"`
	RenderSlot ItemStack `json:"render_slot"`
}

// GONE (server -> viewer): the mechanism at pos was removed.
type GoneMsg struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	Pos  [3]int `json:"pos"`
}

type ItemStack struct {
	Block string `json:"block,omitempty"`
	Meta  int    `json:"meta,omitempty"`
	Count int    `json:"count,omitempty"`
}

// CONFIG (viewer -> server)
type ConfigMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Pos             [3]int `json:"pos"`
	Speed           int    `json:"speed"`
	NeedsRS         bool   `json:"needsrs"`
}

// INPUT (admin -> server)
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Input           Input  `json:"input"`
}

// Input kinds.
const (
	InputAddMechanism    = "ADD_MECHANISM"
	InputRemoveMechanism = "REMOVE_MECHANISM"
	InputToggleSwitch    = "TOGGLE_SWITCH"
	InputSetBlock        = "SET_BLOCK"
	InputSetRender       = "SET_RENDER"
	InputSetSlot         = "SET_SLOT"
	InputTakeSlot        = "TAKE_SLOT"
	InputConfig          = "CONFIG"
)

// Input is one world mutation requested from outside the simulation.
// It is recorded verbatim in the tick log so replays can re-apply it.
type Input struct {
	Kind    string    `json:"kind"`
	Pos     [3]int    `json:"pos"`
	Facing  string    `json:"facing,omitempty"`
	Block   string    `json:"block,omitempty"`
	Meta    int       `json:"meta,omitempty"`
	Slot    int       `json:"slot,omitempty"`
	Count   int       `json:"count,omitempty"`
	Item    ItemStack `json:"item,omitempty"`
	Speed   int       `json:"speed,omitempty"`
	NeedsRS bool      `json:"needsrs,omitempty"`
	Source  string    `json:"source,omitempty"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}
