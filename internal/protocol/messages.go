package protocol

// Request is the union of all client requests; fields unused by a type are
// left zero.
type Request struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// PLACE / REMOVE
	X *int `json:"x,omitempty"`
	Y *int `json:"y,omitempty"`
	// PLACE: index into the reserve.
	Reserve *int `json:"reserve,omitempty"`

	// BUY
	Soldier string `json:"soldier,omitempty"`
	// EARN
	Amount int `json:"amount,omitempty"`
	// SAVE / LOAD; empty selects the default save.
	Name string `json:"name,omitempty"`
}

type Pick struct {
	Item   string `json:"item"`
	Rarity string `json:"rarity"`
}

type Roll struct {
	Item   string `json:"item"`
	Rarity string `json:"rarity"`
	Cost   int    `json:"cost"`
	Picks  []Pick `json:"picks"`
}

// Soldier names a catalog type and tier, as stored in save documents.
type Soldier struct {
	Type string `json:"soldierTypeName"`
	Tier string `json:"soldierTierName"`
}

type Slot struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Type   string `json:"soldierTypeName,omitempty"`
	Tier   string `json:"soldierTierName,omitempty"`
	Filled bool   `json:"filled"`
}

type State struct {
	Points  int       `json:"points"`
	Cols    int       `json:"cols"`
	Rows    int       `json:"rows"`
	Slots   []Slot    `json:"slots"`
	Reserve []Soldier `json:"reserve"`
}

type SaveInfo struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Points  int    `json:"points"`
	Backup  string `json:"backup,omitempty"`
}

type LoadInfo struct {
	Path     string   `json:"path"`
	Soldiers int      `json:"soldiers"`
	Points   int      `json:"points"`
	Warnings []string `json:"warnings,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	ID              string    `json:"id"`
	For             string    `json:"for"`
	State           State     `json:"state"`
	Roll            *Roll     `json:"roll,omitempty"`
	Save            *SaveInfo `json:"save,omitempty"`
	Load            *LoadInfo `json:"load,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	For             string `json:"for,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewResult(req Request, st State) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: req.ID, For: req.Type, State: st}
}

func NewError(req Request, code, msg string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		ID:              req.ID,
		For:             req.Type,
		Code:            code,
		Message:         msg,
	}
}
