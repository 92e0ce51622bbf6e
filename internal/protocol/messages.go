package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	WantMeshes bool `json:"want_meshes,omitempty"`
	MaxQueue   int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	TerrainID       string     `json:"terrain_id"`
	Grid            GridRef    `json:"grid"`
	Signature       string     `json:"signature"`
	TuningDigest    string     `json:"tuning_digest,omitempty"`
	Generation      *GenParams `json:"generation,omitempty"`
}

type GridRef struct {
	Rows     int     `json:"rows"`
	Columns  int     `json:"columns"`
	CellSize float64 `json:"cell_size"`
}

// ACT (client -> server): one terrain operation. Exactly one payload field
// matching Op is expected; extra payloads are ignored.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`

	Generation *GenParams   `json:"generation,omitempty"`
	Brush      *BrushParams `json:"brush,omitempty"`
	View       *ViewParams  `json:"view,omitempty"`
	Road       *RoadPayload `json:"road,omitempty"`
}

// GenParams mirrors the generator settings on the wire.
type GenParams struct {
	Seed            int64   `json:"seed"`
	Mode            string  `json:"mode"`
	NoiseScale      float64 `json:"noise_scale,omitempty"`
	NoiseAmplitude  float64 `json:"noise_amplitude,omitempty"`
	NoiseStrength   float64 `json:"noise_strength,omitempty"`
	DetailScale     float64 `json:"detail_scale,omitempty"`
	DetailAmplitude float64 `json:"detail_amplitude,omitempty"`
	EdgeFalloff     float64 `json:"edge_falloff,omitempty"`
}

type BrushParams struct {
	CenterX  float64  `json:"center_x"`
	CenterZ  float64  `json:"center_z"`
	Radius   float64  `json:"radius"`
	Strength float64  `json:"strength"`
	Shape    string   `json:"shape"`
	Op       string   `json:"op"`
	Target   *float64 `json:"target_height,omitempty"`
}

type ViewParams struct {
	Position [3]float64 `json:"position"`
	Radius   float64    `json:"radius,omitempty"`
}

type RoadPayload struct {
	ID       string       `json:"id"`
	Vertices [][2]float64 `json:"vertices"`
	Segments [][2]int     `json:"segments"`
}

// RESULT (server -> client): outcome of one ACT.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Changed    *bool      `json:"changed,omitempty"`
	Generation *GenParams `json:"generation,omitempty"`
	Signature  string     `json:"signature,omitempty"`
	Bodies     int        `json:"bodies,omitempty"`
	Tiles      int        `json:"tiles,omitempty"`
}
